package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/notifier"
	"OrderFlowDash/internal/recorder"
	"OrderFlowDash/internal/refresh"
	"OrderFlowDash/internal/server"
	"OrderFlowDash/internal/view"
)

const usage = `usage: dash <command> [flags]

commands:
  watch     serve the dashboard (default)
  render    render one board's intraday chart to a PNG file
  settings  print or update backend settings
  batch     start a daily-history batch and optionally wait for it`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cmd, args := "watch", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "watch":
		err = runWatch(args)
	case "render":
		err = runRender(args)
	case "settings":
		err = runSettings(args)
	case "batch":
		err = runBatch(args)
	case "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[FATAL] %s: %v", cmd, err)
	}
}

// configFlag registers -config on fs. CONFIG_PATH sets its default.
func configFlag(fs *flag.FlagSet) *string {
	path := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	return fs.String("config", path, "config file")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second, cfg.Proxy)
}

func newPainter(cfg *config.Config, dir string) *chart.Painter {
	surface := chart.Surface{Width: cfg.Chart.Width, Height: cfg.Chart.Height, DPR: cfg.Chart.DPR}
	return chart.NewPainter(chart.NewSink(dir), surface, chart.ThemeByName(cfg.Chart.Theme))
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := configFlag(fs)
	route := fs.String("route", "home", "initial page")
	board := fs.String("board", "", "board code for the trend page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	log.Println("[INFO] OrderFlowDash starting...")

	// Init recorder
	rec := recorder.Open(cfg.Database.SQLitePath)
	defer rec.Close()

	// Init metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	var notify notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		notify = tn
	}

	app := view.New(ctx, view.Options{
		Backend:    newClient(cfg),
		Painter:    newPainter(cfg, cfg.Chart.OutDir),
		Refresher:  refresh.NewScheduler(refresh.NewMetrics(reg)),
		Recorder:   rec,
		Notifier:   notify,
		BoardTrend: cfg.BoardTrend,
		PageSize:   cfg.Grid.PageSize,
	})
	defer app.Close()

	srv := server.New(app, reg, reg)
	srv.Start(cfg.Server.Addr)

	query := map[string]string{}
	if *board != "" {
		query["board"] = *board
	}
	app.Boot(ctx, view.ParseRoute(*route), query)
	log.Printf("[INFO] route %s loaded, status: %s", app.Route(), app.Status().Text)

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, app.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	log.Println("[INFO] OrderFlowDash is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] server shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] OrderFlowDash stopped")
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	cfgPath := configFlag(fs)
	board := fs.String("board", "", "board code, e.g. BK0475")
	out := fs.String("o", "", "output file (default <board>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	code := strings.ToUpper(strings.TrimSpace(*board))
	if code == "" {
		return fmt.Errorf("-board is required")
	}
	path := *out
	if path == "" {
		path = code + ".png"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.API.TimeoutSeconds)*time.Second)
	defer cancel()
	series, err := newClient(cfg).BoardTrend(ctx, code)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", code, err)
	}
	s := chart.BoardTrendSeries(series.Points)
	if len(s.Values) < 2 {
		return fmt.Errorf("%s: not enough points to draw (%d)", code, len(s.Values))
	}
	surface := chart.Surface{Width: cfg.Chart.Width, Height: cfg.Chart.Height, DPR: cfg.Chart.DPR}
	png, err := chart.RenderPNG(surface, s, chart.ThemeByName(cfg.Chart.Theme))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("[INFO] wrote %s (%d points)", path, len(s.Values))
	return nil
}

func runSettings(args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	cfgPath := configFlag(fs)
	watchlist := fs.String("watchlist", "", "comma separated watchlist to save")
	clearList := fs.Bool("clear-watchlist", false, "empty the watchlist")
	rtInterval := fs.Int("realtime-interval", 0, "realtime collection interval in seconds")
	toplist := fs.Int("toplist-size", 0, "fund-flow toplist size")
	batchSize := fs.Int("trend-batch-size", 0, "board trend refresh batch size")
	concurrency := fs.Int("trend-concurrency", 0, "board trend refresh concurrency")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.API.TimeoutSeconds)*time.Second)
	defer cancel()
	app := view.New(ctx, view.Options{
		Backend:    newClient(cfg),
		Painter:    newPainter(cfg, ""),
		BoardTrend: cfg.BoardTrend,
	})
	defer app.Close()

	if _, err := app.RefreshConfig(ctx); err != nil {
		return err
	}
	switch {
	case *clearList:
		if _, err := app.SaveWatchlist(ctx, ""); err != nil {
			return err
		}
	case *watchlist != "":
		if _, err := app.SaveWatchlist(ctx, strings.ReplaceAll(*watchlist, ",", "\n")); err != nil {
			return err
		}
	}

	if *rtInterval > 0 || *toplist > 0 {
		f := app.Settings().Realtime
		if *rtInterval > 0 {
			f.IntervalSeconds = *rtInterval
		}
		if *toplist > 0 {
			f.ToplistSize = *toplist
		}
		if _, err := app.SaveRealtime(ctx, f); err != nil {
			return err
		}
	}
	if *batchSize > 0 || *concurrency > 0 {
		bt := app.BoardTrend()
		if *batchSize > 0 {
			bt.BatchSize = *batchSize
		}
		if *concurrency > 0 {
			bt.Concurrency = *concurrency
		}
		if _, err := app.SaveBoardTrend(ctx, bt); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(app.Settings())
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cfgPath := configFlag(fs)
	kind := fs.String("type", "industry", "board type: industry or concept")
	limit := fs.Int("limit", 120, "days per board")
	wait := fs.Bool("wait", false, "poll until the batch finishes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	t := model.BoardType(*kind)
	if !t.Valid() {
		return fmt.Errorf("unknown board type %q", *kind)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	rec := recorder.Open(cfg.Database.SQLitePath)
	defer rec.Close()
	app := view.New(ctx, view.Options{
		Backend:  newClient(cfg),
		Painter:  newPainter(cfg, ""),
		Notifier: notifier.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy),
		Recorder: rec,
	})
	defer app.Close()

	if err := app.StartBatch(ctx, t, *limit); err != nil {
		return err
	}
	fmt.Println(app.BatchText(t))
	if !*wait {
		return nil
	}

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		if s := app.Batch(t); s == nil || !s.Running {
			fmt.Println(app.BatchText(t))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			app.PollBatch(ctx, t)
			fmt.Println(app.BatchText(t))
		}
	}
}
