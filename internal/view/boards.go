package view

import (
	"context"
	"fmt"
	"log"
	"sync"

	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/recorder"
	"OrderFlowDash/internal/refresh"
)

func trendTarget(t model.BoardType) string { return "trend-" + string(t) }

func dailyTarget(t model.BoardType) string { return "daily-" + string(t) }

// Boards returns the last board list of type t.
func (a *App) Boards(t model.BoardType) []model.Board {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.boards[t]
}

// FromLive reports whether the backend built the last board list of type t
// from a live fetch instead of a stored snapshot.
func (a *App) FromLive(t model.BoardType) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fromLive[t]
}

// TrendCache returns the intraday grid cache of type t, or nil.
func (a *App) TrendCache(t model.BoardType) *refresh.Cache {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trend[t]
}

// LoadBoards fetches the boards of type t, rebuilds the trend grid and
// refreshes every card in the background. Series already known, from the
// previous grid or from today's recordings, are kept and drawn at once.
func (a *App) LoadBoards(ctx context.Context, t model.BoardType) error {
	a.mu.Lock()
	fid := a.cfg.BoardFID(t)
	prev := a.trend[t]
	a.mu.Unlock()

	list, err := a.backend.Boards(ctx, t, fid, boardGridLimit)
	if err != nil {
		return fmt.Errorf("load %s boards: %w", t, err)
	}

	cache := refresh.NewCache(list.Rows, true)
	// After the close, a series cut short earlier in the day is shown but
	// still counts as missing.
	closed := a.afterClose()
	keep := func(code string, points []model.Point, stale bool) {
		if stale || (closed && !chart.SessionComplete(points)) {
			cache.Seed(code, points)
			return
		}
		cache.Store(code, points)
	}
	if seeded, err := a.rec.LoadSeries(recorder.KindTrend, t, market.DayStart(a.now())); err != nil {
		log.Printf("[WARN] seed %s trends: %v", t, err)
	} else {
		for code, points := range seeded {
			keep(code, points, false)
		}
	}
	if prev != nil {
		for _, e := range prev.Entries() {
			if e.HasData() {
				keep(e.Code, e.Points, e.Stale)
			}
		}
	}

	a.mu.Lock()
	a.boards[t] = list.Rows
	a.trend[t] = cache
	a.fromLive[t] = list.FromLive
	a.mu.Unlock()
	if list.FromLive {
		a.setHint("boards-"+string(t), liveBoardsHint)
	} else {
		a.setHint("boards-"+string(t), "")
	}

	a.renderTrendGrid(t)
	a.background(func() { a.refreshTrends(a.ctx, t, false) })
	return nil
}

// renderTrendGrid draws every card of the trend grid that has data.
func (a *App) renderTrendGrid(t model.BoardType) {
	cache := a.TrendCache(t)
	if cache == nil {
		return
	}
	render := a.trendRenderer(t)
	for _, e := range cache.Entries() {
		if e.HasData() {
			render(e.Code, e.Points)
			cache.MarkRendered(e.Code)
		}
	}
}

func (a *App) trendRenderer(t model.BoardType) refresh.RenderFunc {
	return func(code string, points []model.Point) {
		s := chart.BoardTrendSeries(points)
		if s.Len() < 2 {
			return
		}
		a.paint(TrendChartName(t, code), s)
	}
}

func (a *App) trendFetcher(t model.BoardType) refresh.FetchFunc {
	return func(ctx context.Context, code string) ([]model.Point, error) {
		series, err := a.backend.BoardTrend(ctx, code)
		if err != nil {
			return nil, err
		}
		if len(series.Points) >= 2 {
			if err := a.rec.RecordSeries(recorder.KindTrend, t, code, series.Points); err != nil {
				log.Printf("[WARN] record trend %s: %v", code, err)
			}
		}
		return series.Points, nil
	}
}

func (a *App) refreshOptions(onlyMissing bool) refresh.Options {
	cfg := a.BoardTrend()
	return refresh.Options{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Gap:         cfg.Gap(),
		OnlyMissing: onlyMissing,
	}
}

// refreshTrends refreshes the intraday grid of type t. A later call for the
// same type supersedes this one.
func (a *App) refreshTrends(ctx context.Context, t model.BoardType, onlyMissing bool) refresh.Result {
	a.mu.Lock()
	cache := a.trend[t]
	boards := a.boards[t]
	a.mu.Unlock()
	if cache == nil || cache.Len() == 0 {
		return refresh.Result{}
	}
	codes := model.BoardList{Rows: boards}.Codes()
	return a.refresher.Refresh(ctx, trendTarget(t), cache, codes, a.trendFetcher(t), a.trendRenderer(t), a.refreshOptions(onlyMissing))
}

// StartMissingTrendRefresh refreshes, for both board types, only the cards
// still without data. It does nothing unless the market is closed. In
// interval mode the refresh repeats until the next reset.
func (a *App) StartMissingTrendRefresh() {
	tick := func() {
		if !a.MarketClosed() {
			return
		}
		var wg sync.WaitGroup
		for _, t := range model.BoardTypes {
			wg.Add(1)
			go func(t model.BoardType) {
				defer wg.Done()
				a.refreshTrends(a.ctx, t, true)
			}(t)
		}
		wg.Wait()
	}
	a.background(tick)

	cfg := a.BoardTrend()
	if cfg.AfterCloseMode == "interval" {
		a.every("after-close", cfg.AfterCloseInterval(), tick)
	}
}
