package view

import (
	"context"
	"log"
	"math"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/format"
	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Realtime returns the last realtime view, or nil before the first fetch.
func (a *App) Realtime() *format.RealtimeView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realtime
}

// RefreshRealtimeOnce fetches the snapshot and rebuilds the realtime view.
// The first refresh at or after 15:00 switches the dashboard to after-close
// mode.
func (a *App) RefreshRealtimeOnce(ctx context.Context) {
	snap, err := a.backend.Realtime(ctx)
	if err != nil {
		log.Printf("[ERROR] refresh realtime: %v", err)
		a.setStatus(false, "rt error")
		return
	}

	a.mu.Lock()
	a.snapshot = snap
	if a.cfg != nil {
		v := format.Realtime(snap, a.cfg)
		a.realtime = &v
	}
	a.mu.Unlock()

	if err := a.rec.RecordRealtime(snap); err != nil {
		log.Printf("[WARN] record realtime: %v", err)
	}
	a.setStatus(true, "connected")

	a.mu.Lock()
	flip := !a.marketClosed && a.afterClose()
	if flip {
		a.marketClosed = true
	}
	a.mu.Unlock()
	if !flip {
		return
	}
	log.Println("[INFO] market closed, stopping live timers")
	a.timers.Reset()
	a.armReopen()
	a.setStatus(true, "market closed")
	a.StartMissingTrendRefresh()
}

// LoadIndustryChartHome updates the home industry chart. Weekends and
// mornings show the last daily value; after the close the chart keeps what
// it has, else falls back to rt snapshots then daily; during trading hours
// the live board price sum is appended to the backfilled series.
func (a *App) LoadIndustryChartHome(ctx context.Context) {
	now := a.now()
	a.mu.Lock()
	fid := a.cfg.AggFID()
	a.mu.Unlock()

	switch {
	case market.IsWeekend(now) || market.BeforeOpen(now):
		if !a.loadHomeDaily(ctx, fid) {
			a.loadHomeRT(ctx, fid)
		}
	case market.AfterClose(now):
		a.mu.Lock()
		cached := a.home != nil
		a.mu.Unlock()
		if cached {
			a.renderHomeIndustry()
			return
		}
		if !a.loadHomeRT(ctx, fid) {
			a.loadHomeDaily(ctx, fid)
		}
	default:
		a.mu.Lock()
		empty := a.home == nil || a.home.daily || len(a.home.items) == 0
		a.mu.Unlock()
		if empty {
			a.loadHomeBackfill(ctx, fid)
		}
		if !a.appendHomeLive(ctx, fid) {
			a.loadHomeRT(ctx, fid)
		}
	}
}

func (a *App) setHome(h *homeChart) {
	a.mu.Lock()
	a.home = h
	a.mu.Unlock()
	a.renderHomeIndustry()
}

func (a *App) loadHomeDaily(ctx context.Context, fid string) bool {
	rows, err := a.backend.MarketAggHistory(ctx, "industry_sum", fid, api.KindDaily, 5)
	if err != nil {
		log.Printf("[WARN] industry daily history: %v", err)
		return false
	}
	if len(rows) == 0 {
		return false
	}
	last := rows[len(rows)-1]
	a.setHome(&homeChart{daily: true, tradeDate: last.Label, value: last.Value})
	return true
}

func (a *App) loadHomeRT(ctx context.Context, fid string) bool {
	rows, err := a.backend.MarketAggHistory(ctx, "industry_sum", fid, api.KindRT, homeChartMax)
	if err != nil {
		log.Printf("[WARN] industry rt history: %v", err)
		return false
	}
	a.setHome(&homeChart{items: rows})
	return len(rows) > 0
}

func (a *App) loadHomeBackfill(ctx context.Context, fid string) bool {
	rows, err := a.backend.BoardPriceSum(ctx, model.Industry, fid, priceSumBackfill)
	if err != nil {
		log.Printf("[WARN] board price sum backfill: %v", err)
		return false
	}
	if len(rows) == 0 {
		return false
	}
	a.setHome(&homeChart{items: rows})
	return true
}

// appendHomeLive sums the current industry board prices and appends the
// total as the newest sample.
func (a *App) appendHomeLive(ctx context.Context, fid string) bool {
	list, err := a.backend.Boards(ctx, model.Industry, fid, boardGridLimit)
	if err != nil {
		log.Printf("[WARN] live industry boards: %v", err)
		return false
	}
	if len(list.Rows) == 0 {
		return false
	}
	sum := 0.0
	for _, b := range list.Rows {
		if finite(b.Price) {
			sum += b.Price
		}
	}
	if !finite(sum) {
		return false
	}

	a.mu.Lock()
	var items []model.Point
	if a.home != nil && !a.home.daily {
		items = append(items, a.home.items...)
	}
	items = append(items, model.Point{TS: a.now(), Value: sum})
	if len(items) > homeChartMax {
		items = items[len(items)-homeChartMax:]
	}
	a.home = &homeChart{items: items}
	a.mu.Unlock()
	a.renderHomeIndustry()
	return true
}

func (a *App) homeIndustrySeries() (chart.Series, bool) {
	a.mu.Lock()
	h := a.home
	a.mu.Unlock()
	if h == nil {
		return chart.Series{}, false
	}
	if h.daily {
		if !finite(h.value) {
			return chart.Series{}, false
		}
		day := h.tradeDate
		if day == "" {
			day = "-"
		}
		if len(day) >= 10 {
			day = day[5:10]
		}
		return chart.Series{
			Labels: []string{day + " 09:30", day + " 15:00"},
			Values: []float64{h.value, h.value},
		}, true
	}
	s := chart.WindowSeries(h.items, market.OpenMinute, market.CloseMinute, chart.LabelSec)
	switch s.Len() {
	case 0:
		return s, false
	case 1:
		s = s.AppendPoint(s.Labels[0], s.Values[0], 0)
	}
	return s, true
}

func (a *App) renderHomeIndustry() {
	s, ok := a.homeIndustrySeries()
	if !ok {
		a.setHint(ChartHomeIndustry, noDataHint)
		return
	}
	a.paint(ChartHomeIndustry, s)
}

// LoadIndexChartsHome renders the intraday SH and SZ index charts.
func (a *App) LoadIndexChartsHome(ctx context.Context) {
	sh, err := a.backend.SecIDTrend(ctx, secidSH)
	if err == nil {
		var sz *api.Series
		sz, err = a.backend.SecIDTrend(ctx, secidSZ)
		if err == nil {
			a.mu.Lock()
			a.index = &indexPoints{sh: sh.Points, sz: sz.Points}
			a.mu.Unlock()
			a.renderIndexCharts()
			return
		}
	}
	log.Printf("[WARN] index trends: %v", err)
	a.setHint(ChartIndexSH, loadFailedHint)
	a.setHint(ChartIndexSZ, loadFailedHint)
}

func (a *App) renderIndexCharts() {
	a.mu.Lock()
	idx := a.index
	a.mu.Unlock()
	if idx == nil {
		return
	}
	a.renderIndex(ChartIndexSH, idx.sh)
	a.renderIndex(ChartIndexSZ, idx.sz)
}

func (a *App) renderIndex(name string, points []model.Point) {
	s := chart.WindowSeries(points, market.OpenMinute, market.CloseMinute, chart.LabelHM)
	if s.Len() < 2 {
		a.setHint(name, noDataHint)
		return
	}
	a.paint(name, s)
}
