package view

import (
	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/model"
)

// Resize changes the chart surface and redraws every chart of the current
// page from cached data.
func (a *App) Resize(width, height int, dpr float64) {
	a.painter.Resize(chart.Surface{Width: width, Height: height, DPR: dpr})
	a.redraw()
}

// SetTheme switches the palette and redraws the current page.
func (a *App) SetTheme(th chart.Theme) {
	a.painter.SetTheme(th)
	a.redraw()
}

func (a *App) redraw() {
	switch route := a.Route(); route {
	case RouteHome:
		a.mu.Lock()
		hasHome := a.home != nil
		a.mu.Unlock()
		if hasHome {
			a.renderHomeIndustry()
		}
		a.renderIndexCharts()
	case RouteIndustry, RouteConcept:
		a.renderTrendGrid(model.BoardType(route))
	case RouteHistoryIndustry:
		a.redrawDaily(model.Industry)
	case RouteHistoryConcept:
		a.redrawDaily(model.Concept)
	case RouteHistory:
		a.renderHistory()
	case RouteTrend:
		a.renderTrend()
	}
}

// redrawDaily redraws the visible daily cards and marks the hidden ones
// stale so they are drawn at the new size once shown.
func (a *App) redrawDaily(t model.BoardType) {
	cache := a.DailyCache(t)
	if cache == nil {
		return
	}
	render := a.dailyRenderer(t)
	for _, e := range cache.Entries() {
		if !e.HasData() {
			continue
		}
		if !e.Visible {
			cache.Store(e.Code, e.Points)
			continue
		}
		render(e.Code, e.Points)
		cache.MarkRendered(e.Code)
	}
}
