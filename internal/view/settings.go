package view

import (
	"context"
	"fmt"
	"log"
	"strings"

	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/model"
)

// RealtimeForm edits the realtime collection settings.
type RealtimeForm struct {
	IntervalSeconds        int  `json:"interval_seconds"`
	OnlyDuringTradingHours bool `json:"only_during_trading_hours"`
	ToplistSize            int  `json:"toplist_size"`
}

// BoardsForm edits the board collection settings.
type BoardsForm struct {
	IndustryEnabled         bool `json:"industry_enabled"`
	IndustryIntervalSeconds int  `json:"industry_interval_seconds"`
	ConceptEnabled          bool `json:"concept_enabled"`
	ConceptIntervalSeconds  int  `json:"concept_interval_seconds"`
	ConceptCollectAll       bool `json:"concept_collect_all"`
	ConceptTopSize          int  `json:"concept_top_size"`
}

// MarketAggForm edits the all-stock aggregation settings.
type MarketAggForm struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds"`
	Concurrency     int  `json:"concurrency"`
}

// Settings is the settings page filled from a backend configuration.
type Settings struct {
	DBPath     string            `json:"db_path"`
	Watchlist  []string          `json:"watchlist"`
	Realtime   RealtimeForm      `json:"realtime"`
	Boards     BoardsForm        `json:"boards"`
	MarketAgg  MarketAggForm     `json:"market_agg"`
	BoardTrend config.BoardTrend `json:"board_trend"`
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// SettingsFrom fills the settings forms from cfg, using the form defaults for
// unset values.
func SettingsFrom(cfg *model.ConfigView, bt config.BoardTrend) Settings {
	if cfg == nil {
		cfg = &model.ConfigView{}
	}
	return Settings{
		DBPath:    cfg.DBPath,
		Watchlist: append([]string(nil), cfg.Watchlist...),
		Realtime: RealtimeForm{
			IntervalSeconds:        orInt(cfg.Realtime.IntervalSeconds, 20),
			OnlyDuringTradingHours: cfg.Realtime.OnlyDuringTradingHours,
			ToplistSize:            orInt(cfg.Toplist.Size, 10),
		},
		Boards: BoardsForm{
			IndustryEnabled:         cfg.Industry.Enabled,
			IndustryIntervalSeconds: orInt(cfg.Industry.IntervalSeconds, 10),
			ConceptEnabled:          cfg.Concept.Enabled,
			ConceptIntervalSeconds:  orInt(cfg.Concept.IntervalSeconds, 60),
			ConceptCollectAll:       cfg.Concept.CollectAll,
			ConceptTopSize:          orInt(cfg.Concept.TopSize, 100),
		},
		MarketAgg: MarketAggForm{
			Enabled:         cfg.MarketAgg.Enabled,
			IntervalSeconds: orInt(cfg.MarketAgg.IntervalSeconds, 120),
			Concurrency:     orInt(cfg.MarketAgg.Concurrency, 4),
		},
		BoardTrend: bt,
	}
}

// Settings returns the settings page for the current configuration.
func (a *App) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return SettingsFrom(a.cfg, a.trendCfg)
}

// SplitWatchlist turns one symbol per line into a list, dropping blanks.
func SplitWatchlist(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func (a *App) save(ctx context.Context, patch model.ConfigPatch) (*model.ConfigView, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("save config: nothing to update")
	}
	a.setStatus(true, "saving...")
	cfg, err := a.backend.UpdateConfig(ctx, patch)
	if err != nil {
		log.Printf("[ERROR] save config: %v", err)
		a.setStatus(false, "save failed")
		return nil, fmt.Errorf("save config: %w", err)
	}
	a.applyConfig(cfg)
	a.flashStatus("saved")
	return cfg, nil
}

// SaveRealtime updates the realtime collection settings.
func (a *App) SaveRealtime(ctx context.Context, f RealtimeForm) (*model.ConfigView, error) {
	return a.save(ctx, model.ConfigPatch{
		RealtimeIntervalSeconds: ptr(f.IntervalSeconds),
		OnlyDuringTradingHours:  ptr(f.OnlyDuringTradingHours),
		ToplistSize:             ptr(f.ToplistSize),
	})
}

// SaveBoards updates the board collection settings.
func (a *App) SaveBoards(ctx context.Context, f BoardsForm) (*model.ConfigView, error) {
	return a.save(ctx, model.ConfigPatch{
		IndustryEnabled:         ptr(f.IndustryEnabled),
		IndustryIntervalSeconds: ptr(f.IndustryIntervalSeconds),
		ConceptEnabled:          ptr(f.ConceptEnabled),
		ConceptIntervalSeconds:  ptr(f.ConceptIntervalSeconds),
		ConceptCollectAll:       ptr(f.ConceptCollectAll),
		ConceptTopSize:          ptr(f.ConceptTopSize),
	})
}

// SaveMarketAgg updates the all-stock aggregation settings.
func (a *App) SaveMarketAgg(ctx context.Context, f MarketAggForm) (*model.ConfigView, error) {
	return a.save(ctx, model.ConfigPatch{
		MarketAggEnabled:         ptr(f.Enabled),
		MarketAggIntervalSeconds: ptr(f.IntervalSeconds),
		MarketAggConcurrency:     ptr(f.Concurrency),
	})
}

// SaveWatchlist replaces the watchlist with one symbol per line of text.
// Blank text clears it.
func (a *App) SaveWatchlist(ctx context.Context, text string) (*model.ConfigView, error) {
	wl := SplitWatchlist(text)
	if wl == nil {
		wl = []string{}
	}
	return a.save(ctx, model.ConfigPatch{Watchlist: wl})
}

// SaveBoardTrend bounds bt, adopts it locally and stores it on the backend.
func (a *App) SaveBoardTrend(ctx context.Context, bt config.BoardTrend) (config.BoardTrend, error) {
	bt = bt.Bound()
	a.mu.Lock()
	a.trendCfg = bt
	a.mu.Unlock()
	_, err := a.save(ctx, model.ConfigPatch{
		BoardTrendBatchSize:                 ptr(bt.BatchSize),
		BoardTrendConcurrency:               ptr(bt.Concurrency),
		BoardTrendGapMS:                     ptr(bt.GapMS),
		BoardTrendAfterCloseMode:            ptr(bt.AfterCloseMode),
		BoardTrendAfterCloseIntervalSeconds: ptr(bt.AfterCloseIntervalSeconds),
	})
	return bt, err
}
