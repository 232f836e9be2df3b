package view

import (
	"maps"

	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/format"
	"OrderFlowDash/internal/model"
)

// GridState summarises one intraday grid.
type GridState struct {
	Boards   int  `json:"boards"`
	WithData int  `json:"with_data"`
	FromLive bool `json:"from_live"`
}

// DailyState summarises one daily grid.
type DailyState struct {
	LoadStatus string      `json:"load_status,omitempty"`
	BatchText  string      `json:"batch_text,omitempty"`
	Cards      []DailyCard `json:"cards"`
}

// State is everything a client needs to draw the current page.
type State struct {
	Route        Route                          `json:"route"`
	Query        map[string]string              `json:"query,omitempty"`
	Status       Status                         `json:"status"`
	MarketClosed bool                           `json:"market_closed"`
	Version      string                         `json:"version,omitempty"`
	BoardTrend   config.BoardTrend              `json:"board_trend"`
	Trend        map[model.BoardType]GridState  `json:"trend"`
	Daily        map[model.BoardType]DailyState `json:"daily,omitempty"`
	Realtime     *format.RealtimeView           `json:"realtime,omitempty"`
	History      *HistoryResult                 `json:"history,omitempty"`
	TrendCode    string                         `json:"trend_code,omitempty"`
	Charts       []chart.Image                  `json:"charts"`
	Hints        map[string]string              `json:"hints,omitempty"`
}

// State returns a snapshot of the dashboard.
func (a *App) State() State {
	a.mu.Lock()
	st := State{
		Route:        a.route,
		Query:        maps.Clone(a.query),
		Status:       a.status,
		MarketClosed: a.marketClosed,
		Version:      a.version,
		BoardTrend:   a.trendCfg,
		Trend:        make(map[model.BoardType]GridState),
		Realtime:     a.realtime,
		History:      a.history,
		TrendCode:    a.trendCode,
	}
	trend := make(map[model.BoardType]GridState)
	for t, c := range a.trend {
		trend[t] = GridState{Boards: c.Len(), FromLive: a.fromLive[t]}
	}
	a.mu.Unlock()

	for t, g := range trend {
		for _, e := range a.TrendCache(t).Entries() {
			if e.HasData() {
				g.WithData++
			}
		}
		st.Trend[t] = g
	}
	if st.Route == RouteHistoryIndustry || st.Route == RouteHistoryConcept {
		t := model.Industry
		if st.Route == RouteHistoryConcept {
			t = model.Concept
		}
		st.Daily = map[model.BoardType]DailyState{
			t: {LoadStatus: a.LoadStatus(t), BatchText: a.BatchText(t), Cards: a.DailyCards(t)},
		}
	}

	sink := a.painter.Sink()
	for _, name := range sink.Names() {
		if img, ok := sink.Get(name); ok {
			st.Charts = append(st.Charts, img)
		}
	}
	st.Hints = a.Hints()
	return st
}
