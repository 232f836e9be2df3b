package view

import (
	"context"
	"fmt"
	"log"
	"strings"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/format"
	"OrderFlowDash/internal/model"
)

// History sources.
const (
	SourceMarketIndustry  = "market_industry_sum"
	SourceMarketAllStocks = "market_allstocks_sum"
	SourceBoardIndustry   = "board_industry_sum"
	SourceBoardConcept    = "board_concept_sum"
)

// HistoryQuery selects an aggregate history.
type HistoryQuery struct {
	Source string          `json:"source"`
	Kind   api.HistoryKind `json:"kind"`
	Limit  int             `json:"limit"`
}

func (q HistoryQuery) withDefaults() HistoryQuery {
	switch q.Source {
	case SourceMarketAllStocks, SourceBoardIndustry, SourceBoardConcept:
	default:
		q.Source = SourceMarketIndustry
	}
	if q.Kind != api.KindRT {
		q.Kind = api.KindDaily
	}
	if q.Limit <= 0 {
		q.Limit = 200
	}
	return q
}

// HistoryRow is one table row of the history page.
type HistoryRow struct {
	Time  string `json:"time"`
	Value string `json:"value"`
}

// HistoryResult is the loaded history page.
type HistoryResult struct {
	Query  HistoryQuery  `json:"query"`
	FID    string        `json:"fid"`
	Title  string        `json:"title"`
	Rows   []HistoryRow  `json:"rows"`
	Points []model.Point `json:"-"`
}

func (a *App) historyQuery(query map[string]string) HistoryQuery {
	q := HistoryQuery{
		Source: query["source"],
		Kind:   api.HistoryKind(query["kind"]),
		Limit:  atoiOr(query["limit"], 0),
	}
	if q.Source == "" && q.Kind == "" && q.Limit == 0 {
		a.mu.Lock()
		q = a.lastHistory
		a.mu.Unlock()
	}
	return q.withDefaults()
}

// History returns the loaded history page, or nil.
func (a *App) History() *HistoryResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history
}

// LoadHistory fetches a market or board-sum aggregate history and draws it.
func (a *App) LoadHistory(ctx context.Context, q HistoryQuery) error {
	q = q.withDefaults()
	a.setStatus(true, "loading...")
	a.mu.Lock()
	fid := a.cfg.AggFID()
	a.lastHistory = q
	a.mu.Unlock()

	var (
		points []model.Point
		err    error
	)
	if strings.HasPrefix(q.Source, "board_") {
		t := model.Industry
		if q.Source == SourceBoardConcept {
			t = model.Concept
		}
		points, err = a.backend.BoardSumHistory(ctx, t, fid, q.Kind, q.Limit)
	} else {
		src := "industry_sum"
		if q.Source == SourceMarketAllStocks {
			src = "allstocks_sum"
		}
		points, err = a.backend.MarketAggHistory(ctx, src, fid, q.Kind, q.Limit)
	}
	if err != nil {
		log.Printf("[ERROR] load history %s: %v", q.Source, err)
		a.setStatus(false, "history error")
		return fmt.Errorf("load history: %w", err)
	}

	realtime := q.Kind == api.KindRT
	unit := "天"
	if realtime {
		unit = "条"
	}
	res := &HistoryResult{
		Query:  q,
		FID:    fid,
		Title:  fmt.Sprintf("近 %d %s（折线）", q.Limit, unit),
		Rows:   make([]HistoryRow, 0, len(points)),
		Points: points,
	}
	for _, p := range points {
		row := HistoryRow{Time: format.Placeholder, Value: format.Money(p.Value)}
		switch {
		case realtime && !p.TS.IsZero():
			row.Time = format.BJTime(p.TS)
		case !realtime && p.Label != "":
			row.Time = p.Label
		}
		res.Rows = append(res.Rows, row)
	}

	a.mu.Lock()
	a.history = res
	a.mu.Unlock()
	a.renderHistory()
	a.flashStatus("loaded")
	return nil
}

func (a *App) renderHistory() {
	a.mu.Lock()
	res := a.history
	a.mu.Unlock()
	if res == nil {
		return
	}
	a.paint(ChartHistory, chart.HistorySeries(res.Points, res.Query.Kind == api.KindRT))
}

// TrendCode returns the board shown on the trend page.
func (a *App) TrendCode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trendCode
}

// LoadTrendView fetches and draws today's trend of one board.
func (a *App) LoadTrendView(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		a.setHint(ChartTrend, "请输入板块代码")
		return nil
	}
	a.setHint(ChartTrend, "加载中...")
	series, err := a.backend.BoardTrend(ctx, code)
	if err != nil {
		log.Printf("[ERROR] load trend %s: %v", code, err)
		a.setHint(ChartTrend, loadFailedHint)
		return fmt.Errorf("load trend %s: %w", code, err)
	}
	a.mu.Lock()
	a.trendCode = code
	a.trendPoints = series.Points
	a.mu.Unlock()
	a.renderTrend()
	return nil
}

func (a *App) renderTrend() {
	a.mu.Lock()
	code, points := a.trendCode, a.trendPoints
	a.mu.Unlock()
	if code == "" {
		return
	}
	s := chart.BoardTrendSeries(points)
	if s.Len() < 2 {
		a.setHint(ChartTrend, noDataHint)
		return
	}
	a.paint(ChartTrend, s)
}

// Hints returns the placeholder texts of charts that could not be drawn.
func (a *App) Hints() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.hints))
	for k, v := range a.hints {
		out[k] = v
	}
	return out
}
