// Package view holds the dashboard state and the operations behind each page.
package view

import (
	"context"
	"log"
	"maps"
	"sync"
	"time"

	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/format"
	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/notifier"
	"OrderFlowDash/internal/recorder"
	"OrderFlowDash/internal/refresh"
	"OrderFlowDash/internal/scheduler"
)

const (
	realtimeEvery  = 10 * time.Second
	homeChartEvery = 30 * time.Second
	boardsEvery    = 30 * time.Second
	batchPollEvery = 3 * time.Second

	// boards shown on the trend grids
	boardGridLimit = 500
	// samples kept by the live industry chart
	homeChartMax = 800
	// rows requested when backfilling the industry chart
	priceSumBackfill = 1200

	// Shanghai Composite and Shenzhen Component, as Eastmoney secids
	secidSH = "1.000001"
	secidSZ = "0.399001"

	noDataHint     = "暂无数据"
	loadFailedHint = "加载失败"
	liveBoardsHint = "市场休市或未抓到快照，已即时拉取板块数据。"
)

// Chart names in the sink.
const (
	ChartHomeIndustry = "home-industry"
	ChartIndexSH      = "index-sh"
	ChartIndexSZ      = "index-sz"
	ChartTrend        = "trend"
	ChartHistory      = "history"
)

// TrendChartName names the intraday chart of one grid card.
func TrendChartName(t model.BoardType, code string) string {
	return "trend-" + string(t) + "-" + code
}

// DailyChartName names the daily history chart of one grid card.
func DailyChartName(t model.BoardType, code string) string {
	return "daily-" + string(t) + "-" + code
}

// Status is the connection indicator shown in the page header.
type Status struct {
	OK   bool   `json:"ok"`
	Text string `json:"text"`
}

// Options wires an App to its collaborators.
type Options struct {
	Backend    Backend
	Painter    *chart.Painter
	Refresher  *refresh.Scheduler
	Timers     *scheduler.Scheduler
	Recorder   recorder.Recorder
	Notifier   notifier.Notifier
	BoardTrend config.BoardTrend
	// PageSize is how many daily cards count as on screen.
	PageSize int
	// Now overrides the clock.
	Now func() time.Time
	// StatusRevert is how long "saved"/"loaded" stay before the status
	// returns to "connected".
	StatusRevert time.Duration
}

type homeChart struct {
	daily     bool
	tradeDate string
	value     float64
	items     []model.Point
}

type indexPoints struct {
	sh, sz []model.Point
}

// App is the dashboard state. Every exported method is safe for concurrent use.
type App struct {
	backend   Backend
	painter   *chart.Painter
	refresher *refresh.Scheduler
	timers    *scheduler.Scheduler
	rec       recorder.Recorder
	notify    notifier.Notifier
	now       func() time.Time
	pageSize  int
	revertIn  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	route        Route
	query        map[string]string
	cfg          *model.ConfigView
	version      string
	trendCfg     config.BoardTrend
	status       Status
	statusSeq    uint64
	marketClosed bool

	boards   map[model.BoardType][]model.Board
	trend    map[model.BoardType]*refresh.Cache
	fromLive map[model.BoardType]bool

	daily       map[model.BoardType]*dailyGrid
	batch       map[model.BoardType]*model.BatchStatus
	batchText   map[model.BoardType]string
	loadStatus  map[model.BoardType]string
	dailySeq    map[model.BoardType]uint64
	lastHistory HistoryQuery

	snapshot    *model.Snapshot
	realtime    *format.RealtimeView
	home        *homeChart
	index       *indexPoints
	trendCode   string
	trendPoints []model.Point
	history     *HistoryResult
	hints       map[string]string
}

// New creates an App. Background work stops when ctx is cancelled or Close
// is called.
func New(ctx context.Context, opts Options) *App {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		backend:    opts.Backend,
		painter:    opts.Painter,
		refresher:  opts.Refresher,
		timers:     opts.Timers,
		rec:        opts.Recorder,
		notify:     opts.Notifier,
		now:        opts.Now,
		pageSize:   opts.PageSize,
		revertIn:   opts.StatusRevert,
		ctx:        ctx,
		cancel:     cancel,
		route:      RouteHome,
		trendCfg:   opts.BoardTrend.Clamp(),
		boards:     make(map[model.BoardType][]model.Board),
		trend:      make(map[model.BoardType]*refresh.Cache),
		fromLive:   make(map[model.BoardType]bool),
		daily:      make(map[model.BoardType]*dailyGrid),
		batch:      make(map[model.BoardType]*model.BatchStatus),
		batchText:  make(map[model.BoardType]string),
		loadStatus: make(map[model.BoardType]string),
		dailySeq:   make(map[model.BoardType]uint64),
		hints:      make(map[string]string),
	}
	if a.refresher == nil {
		a.refresher = refresh.NewScheduler(nil)
	}
	if a.timers == nil {
		a.timers = scheduler.NewScheduler()
	}
	if a.rec == nil {
		a.rec = recorder.NewNoopRecorder()
	}
	if a.notify == nil {
		a.notify = notifier.NoopNotifier{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.pageSize <= 0 {
		a.pageSize = 24
	}
	if a.revertIn <= 0 {
		a.revertIn = 700 * time.Millisecond
	}
	if a.painter == nil {
		a.painter = chart.NewPainter(chart.NewSink(""), chart.Surface{Width: 600, Height: 240, DPR: 1}, chart.Dark)
	}
	a.timers.Start()
	return a
}

// Close stops every timer and waits for background refreshes to return.
func (a *App) Close() {
	a.cancel()
	a.timers.Stop()
	a.wg.Wait()
}

// Wait blocks until background refreshes started so far have returned.
func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) background(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) every(name string, d time.Duration, fn func()) {
	if err := a.timers.Every(name, d, fn); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}

// Sink returns the chart store.
func (a *App) Sink() *chart.Sink { return a.painter.Sink() }

// Route returns the current page.
func (a *App) Route() Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

// Config returns the last backend configuration read.
func (a *App) Config() *model.ConfigView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// BoardTrend returns the local refresh settings.
func (a *App) BoardTrend() config.BoardTrend {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trendCfg
}

// MarketClosed reports whether the after-close mode is active.
func (a *App) MarketClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.marketClosed
}

// Status returns the header status.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// alerting statuses are pushed to the operator
var alerting = map[string]bool{
	"rt error":      true,
	"config error":  true,
	"market closed": true,
}

func (a *App) setStatus(ok bool, text string) {
	a.mu.Lock()
	prev := a.status.Text
	a.status = Status{OK: ok, Text: text}
	a.statusSeq++
	a.mu.Unlock()

	if prev == text {
		return
	}
	if alerting[text] || (text == "connected" && alerting[prev] && prev != "market closed") {
		a.trySend(notifier.FormatStatusChange(prev, text))
	}
}

// flashStatus shows text briefly, then returns to "connected" unless the
// status changed meanwhile.
func (a *App) flashStatus(text string) {
	a.setStatus(true, text)
	a.mu.Lock()
	seq := a.statusSeq
	a.mu.Unlock()
	time.AfterFunc(a.revertIn, func() {
		if a.ctx.Err() != nil {
			return
		}
		a.mu.Lock()
		current := a.statusSeq == seq
		a.mu.Unlock()
		if current {
			a.setStatus(true, "connected")
		}
	})
}

func (a *App) trySend(text string) {
	if a.ctx.Err() != nil {
		return
	}
	a.background(func() {
		if err := a.notify.SendWithRetry(a.ctx, text, 3); err != nil {
			log.Printf("[ERROR] send notification: %v", err)
		}
	})
}

func (a *App) setHint(name, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if text == "" {
		delete(a.hints, name)
		return
	}
	a.hints[name] = text
}

func (a *App) paint(name string, s chart.Series) {
	if err := a.painter.Paint(name, s); err == nil {
		a.setHint(name, "")
	}
}

func (a *App) afterClose() bool {
	return market.AfterClose(a.now())
}

// Boot switches to route: every timer of the previous page stops, in-flight
// grid refreshes are superseded, page state is cleared and the new page loads.
func (a *App) Boot(ctx context.Context, route Route, query map[string]string) {
	a.timers.Reset()
	for _, t := range model.BoardTypes {
		a.refresher.Runs.Cancel(trendTarget(t))
		a.refresher.Runs.Cancel(dailyTarget(t))
	}
	if query == nil {
		query = map[string]string{}
	}

	a.mu.Lock()
	a.route = route
	a.query = maps.Clone(query)
	a.trendPoints = nil
	a.trendCode = ""
	a.index = nil
	a.hints = make(map[string]string)
	a.loadStatus = make(map[model.BoardType]string)
	for _, t := range model.BoardTypes {
		a.dailySeq[t]++
	}
	a.mu.Unlock()
	a.painter.Sink().Clear()
	log.Printf("[INFO] boot route %s", route)

	if _, err := a.RefreshConfig(ctx); err != nil {
		a.setStatus(false, "config error")
	}

	closed := a.afterClose()
	if !closed {
		a.mu.Lock()
		a.marketClosed = false
		a.mu.Unlock()
	}

	switch route {
	case RouteHome:
		a.RefreshRealtimeOnce(ctx)
		if !closed {
			a.every("realtime", realtimeEvery, func() { a.RefreshRealtimeOnce(a.ctx) })
		}
		a.LoadIndustryChartHome(ctx)
		if !closed {
			a.every("home-industry", homeChartEvery, func() { a.LoadIndustryChartHome(a.ctx) })
		} else {
			a.enterMarketClosed()
		}
		a.LoadIndexChartsHome(ctx)
		if !closed {
			a.every("home-index", homeChartEvery, func() { a.LoadIndexChartsHome(a.ctx) })
		}
		a.RefreshBuildInfo(ctx)

	case RouteIndustry, RouteConcept:
		t := model.BoardType(route)
		if err := a.LoadBoards(ctx, t); err != nil {
			log.Printf("[ERROR] %v", err)
		}
		if !closed {
			a.every("boards-"+string(t), boardsEvery, func() {
				if err := a.LoadBoards(a.ctx, t); err != nil {
					log.Printf("[ERROR] %v", err)
				}
			})
		} else {
			a.enterMarketClosed()
		}

	case RouteHistoryIndustry, RouteHistoryConcept:
		t := model.Industry
		if route == RouteHistoryConcept {
			t = model.Concept
		}
		if err := a.LoadBoardDailyView(ctx, t, a.dailyQuery(t, query)); err != nil {
			log.Printf("[ERROR] %v", err)
		}
		a.PollBatch(ctx, t)
		a.every(batchTimer(t), batchPollEvery, func() { a.PollBatch(a.ctx, t) })

	case RouteHistory:
		a.LoadHistory(ctx, a.historyQuery(query))

	case RouteTrend:
		if code := query["board"]; code != "" {
			a.LoadTrendView(ctx, code)
		} else {
			a.setHint(ChartTrend, "请输入板块代码")
		}

	case RouteSettings:
		// the form is filled from the config already read
	}
	a.armReopen()
}

// armReopen reboots the current page shortly before the next session opens,
// so a long-running dashboard leaves after-close mode on its own.
func (a *App) armReopen() {
	err := a.timers.Cron("reopen", "CRON_TZ=Asia/Shanghai 0 25 9 * * 1-5", func() {
		a.mu.Lock()
		route, query := a.route, a.query
		a.mu.Unlock()
		a.Boot(a.ctx, route, query)
	})
	if err != nil {
		log.Printf("[ERROR] %v", err)
	}
}

// enterMarketClosed switches to after-close mode and refreshes only the
// grid cards still missing data.
func (a *App) enterMarketClosed() {
	a.mu.Lock()
	a.marketClosed = true
	a.mu.Unlock()
	a.StartMissingTrendRefresh()
}

// RefreshConfig reads the backend configuration and adopts its board trend
// settings when present.
func (a *App) RefreshConfig(ctx context.Context) (*model.ConfigView, error) {
	cfg, err := a.backend.Config(ctx)
	if err != nil {
		log.Printf("[ERROR] refresh config: %v", err)
		return nil, err
	}
	a.applyConfig(cfg)
	return cfg, nil
}

func (a *App) applyConfig(cfg *model.ConfigView) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	if bt := cfg.BoardTrend; bt != nil {
		next := a.trendCfg
		if bt.BatchSize != 0 {
			next.BatchSize = bt.BatchSize
		}
		if bt.Concurrency != 0 {
			next.Concurrency = bt.Concurrency
		}
		if bt.GapMS != 0 {
			next.GapMS = bt.GapMS
		}
		if bt.AfterCloseMode != "" {
			next.AfterCloseMode = bt.AfterCloseMode
		}
		if bt.AfterCloseIntervalSeconds != 0 {
			next.AfterCloseIntervalSeconds = bt.AfterCloseIntervalSeconds
		}
		a.trendCfg = next.Bound()
	}
}

// RefreshBuildInfo reads the backend build stamp.
func (a *App) RefreshBuildInfo(ctx context.Context) {
	v, err := a.backend.Version(ctx)
	if err != nil {
		log.Printf("[WARN] refresh build info: %v", err)
		return
	}
	a.mu.Lock()
	a.version = v
	a.mu.Unlock()
}
