package view

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/model"
)

func TestBoot_IndustryBuildsGridAndRefreshes(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.boards[model.Industry] = boards("BK01", "BK02", "BK03")
	h.backend.trends["BK01"] = intraday(5, 100)
	h.backend.trends["BK02"] = intraday(1, 100)
	h.backend.failCodes["BK03"] = true

	h.app.Boot(context.Background(), RouteIndustry, nil)
	h.app.Wait()

	cache := h.app.TrendCache(model.Industry)
	if cache.Len() != 3 {
		t.Fatalf("grid size = %d, want 3", cache.Len())
	}
	if e, _ := cache.Get("BK01"); !e.HasData() || !e.Rendered {
		t.Errorf("BK01 should be stored and rendered: %+v", e)
	}
	if e, _ := cache.Get("BK02"); e.HasData() {
		t.Error("a single-point series must not be stored")
	}
	if _, ok := h.app.Sink().Get(TrendChartName(model.Industry, "BK01")); !ok {
		t.Error("BK01 chart missing from sink")
	}
	if _, ok := h.app.Sink().Get(TrendChartName(model.Industry, "BK03")); ok {
		t.Error("failed board should have no chart")
	}
	if !h.app.timers.Has("boards-industry") {
		t.Error("boards timer not registered during trading hours")
	}
	if h.app.MarketClosed() {
		t.Error("market should be open at 10:00")
	}
	if h.rec.series["trend/BK01"] != 1 {
		t.Errorf("BK01 recorded %d times, want 1", h.rec.series["trend/BK01"])
	}
}

func TestBoot_AfterCloseRefreshesOnlyMissing(t *testing.T) {
	h := newHarness(t, bj(19, 15, 30))
	h.backend.boards[model.Industry] = boards("BK01", "BK02")
	h.backend.trends["BK01"] = intraday(3, 10)
	h.backend.trends["BK02"] = intraday(3, 20)

	h.app.Boot(context.Background(), RouteIndustry, nil)
	h.app.Wait()

	if !h.app.MarketClosed() {
		t.Fatal("expected after-close mode at 15:30")
	}
	if h.app.timers.Has("boards-industry") {
		t.Error("no live boards timer after the close")
	}
	if h.app.timers.Has("after-close") {
		t.Error("once mode must not register the after-close timer")
	}
	for _, code := range []string{"BK01", "BK02"} {
		if e, _ := h.app.TrendCache(model.Industry).Get(code); !e.HasData() {
			t.Errorf("%s missing after refresh", code)
		}
	}

	// everything is present now, so another missing-only pass fetches nothing
	calls := h.backend.trendCalls
	h.app.StartMissingTrendRefresh()
	h.app.Wait()
	if h.backend.trendCalls != calls {
		t.Errorf("missing-only refresh fetched %d boards, want 0", h.backend.trendCalls-calls)
	}
}

func TestBoot_AfterCloseReplacesMorningSeeds(t *testing.T) {
	h := newHarness(t, bj(19, 15, 30))
	codes := make([]string, 60)
	for i := range codes {
		codes[i] = fmt.Sprintf("BK%02d", i)
	}
	h.backend.boards[model.Industry] = boards(codes...)
	h.rec.trends = make(map[string][]model.Point)
	for i, code := range codes {
		h.backend.trends[code] = fullSession(float64(i))
		if i < 50 {
			h.rec.trends[code] = intraday(3, 1)
		}
	}

	h.app.Boot(context.Background(), RouteIndustry, nil)
	h.app.Wait()

	stale := 0
	for _, code := range codes {
		e, _ := h.app.TrendCache(model.Industry).Get(code)
		if len(e.Points) != 6 || e.Stale {
			stale++
		}
	}
	if stale != 0 {
		t.Errorf("%d/%d boards still hold the morning series after the close", stale, len(codes))
	}
}

func TestLoadBoards_SeedsCompleteSessionsAsFresh(t *testing.T) {
	h := newHarness(t, bj(19, 15, 30))
	h.backend.boards[model.Industry] = boards("BK01", "BK02")
	h.backend.failCodes["BK01"] = true
	h.backend.failCodes["BK02"] = true
	h.rec.trends = map[string][]model.Point{
		"BK01": intraday(3, 1),
		"BK02": fullSession(1),
	}

	if err := h.app.LoadBoards(context.Background(), model.Industry); err != nil {
		t.Fatal(err)
	}
	h.app.Wait()

	cache := h.app.TrendCache(model.Industry)
	if e, _ := cache.Get("BK01"); !e.HasData() || !e.Stale {
		t.Errorf("morning seed should be drawn but stale: %+v", e)
	}
	if e, _ := cache.Get("BK02"); !e.HasData() || e.Stale {
		t.Errorf("complete seed should be fresh: %+v", e)
	}
	if got := cache.Missing(cache.Codes()); len(got) != 1 || got[0] != "BK01" {
		t.Errorf("missing = %v, want [BK01]", got)
	}
}

func TestStartMissingTrendRefresh_IntervalMode(t *testing.T) {
	h := newHarness(t, bj(19, 15, 30))
	h.app.mu.Lock()
	h.app.trendCfg.AfterCloseMode = "interval"
	h.app.mu.Unlock()

	h.app.enterMarketClosed()
	h.app.Wait()
	if !h.app.timers.Has("after-close") {
		t.Error("interval mode should register the after-close timer")
	}
}

func TestBoot_ResetsPreviousRoute(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.boards[model.Industry] = boards("BK01")
	h.backend.trends["BK01"] = intraday(3, 1)

	h.app.Boot(context.Background(), RouteIndustry, nil)
	h.app.Wait()
	if h.app.Sink().Len() == 0 {
		t.Fatal("expected charts after industry boot")
	}

	h.app.Boot(context.Background(), RouteTrend, map[string]string{})
	if h.app.timers.Has("boards-industry") {
		t.Error("route change must stop the previous page's timers")
	}
	if h.app.Sink().Len() != 0 {
		t.Errorf("sink not cleared, %d charts left", h.app.Sink().Len())
	}
	if got := h.app.Hints()[ChartTrend]; got != "请输入板块代码" {
		t.Errorf("trend hint = %q", got)
	}
	if h.app.Route() != RouteTrend {
		t.Errorf("route = %s", h.app.Route())
	}
}

func TestRefreshRealtimeOnce_FlipsAtClose(t *testing.T) {
	h := newHarness(t, bj(19, 14, 59))
	h.backend.priceSum = []model.Point{{Label: "2026-10-19 14:58:00", Value: 1}, {Label: "2026-10-19 14:58:30", Value: 2}}
	h.backend.boards[model.Industry] = boards("BK01")

	h.app.Boot(context.Background(), RouteHome, nil)
	if !h.app.timers.Has("realtime") {
		t.Fatal("realtime timer not registered before the close")
	}
	if got := h.app.Status(); !got.OK || got.Text != "connected" {
		t.Errorf("status = %+v", got)
	}

	h.clock.Set(bj(19, 15, 1))
	h.app.RefreshRealtimeOnce(context.Background())
	h.app.Wait()

	if !h.app.MarketClosed() {
		t.Fatal("first refresh after 15:00 should flip to after-close mode")
	}
	if h.app.timers.Has("realtime") || h.app.timers.Has("home-industry") {
		t.Errorf("live timers survived the close: %v", h.app.timers.Names())
	}
	if got := h.app.Status().Text; got != "market closed" {
		t.Errorf("status = %q", got)
	}
	if !h.notify.contains("market closed") {
		t.Error("close transition not notified")
	}
	if h.rec.snaps != 2 {
		t.Errorf("recorded %d snapshots, want 2", h.rec.snaps)
	}
}

func TestRefreshRealtimeOnce_Error(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.realtimeErr = errBackend

	h.app.RefreshRealtimeOnce(context.Background())
	h.app.Wait()
	if got := h.app.Status(); got.OK || got.Text != "rt error" {
		t.Errorf("status = %+v", got)
	}
	if !h.notify.contains("rt error") {
		t.Error("rt error not notified")
	}
}

func TestLoadIndustryChartHome_WeekendShowsLastDaily(t *testing.T) {
	h := newHarness(t, bj(17, 11, 0)) // Saturday
	h.backend.aggDaily = days(5, 7, 9)

	h.app.LoadIndustryChartHome(context.Background())

	s, ok := h.app.homeIndustrySeries()
	if !ok {
		t.Fatal("expected a daily chart")
	}
	if s.Labels[0] != "10-12 09:30" || s.Labels[1] != "10-12 15:00" {
		t.Errorf("labels = %v", s.Labels)
	}
	if s.Values[0] != 9 || s.Values[1] != 9 {
		t.Errorf("values = %v", s.Values)
	}
	if _, ok := h.app.Sink().Get(ChartHomeIndustry); !ok {
		t.Error("home industry chart not painted")
	}
}

func TestLoadIndustryChartHome_TradingAppendsLiveSum(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.priceSum = []model.Point{
		{Label: "2026-10-19 09:31:00", Value: 1},
		{Label: "2026-10-19 09:31:30", Value: 2},
	}
	h.backend.boards[model.Industry] = []model.Board{{Code: "BK01", Price: 1.5}, {Code: "BK02", Price: 2.5}}

	h.app.LoadIndustryChartHome(context.Background())
	s, ok := h.app.homeIndustrySeries()
	if !ok || s.Len() != 3 {
		t.Fatalf("series = %+v", s)
	}
	if _, v, _ := s.Last(); v != 4 {
		t.Errorf("live sum = %v, want 4", v)
	}

	// the backfill only seeds an empty chart
	h.backend.priceSum = nil
	h.app.LoadIndustryChartHome(context.Background())
	if s, _ := h.app.homeIndustrySeries(); s.Len() != 4 {
		t.Errorf("second load should append one sample, got %d", s.Len())
	}
}

func TestLoadIndustryChartHome_NoData(t *testing.T) {
	h := newHarness(t, bj(19, 16, 0))

	h.app.LoadIndustryChartHome(context.Background())
	if got := h.app.Hints()[ChartHomeIndustry]; got != noDataHint {
		t.Errorf("hint = %q", got)
	}
}

func TestLoadIndexChartsHome(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.secids[secidSH] = intraday(4, 3000)
	h.backend.secids[secidSZ] = intraday(1, 9000)

	h.app.LoadIndexChartsHome(context.Background())
	if _, ok := h.app.Sink().Get(ChartIndexSH); !ok {
		t.Error("SH chart missing")
	}
	if got := h.app.Hints()[ChartIndexSZ]; got != noDataHint {
		t.Errorf("SZ hint = %q", got)
	}

	h.backend.failCodes[secidSZ] = true
	h.app.LoadIndexChartsHome(context.Background())
	if got := h.app.Hints()[ChartIndexSH]; got != loadFailedHint {
		t.Errorf("SH hint after failure = %q", got)
	}
}

func TestLoadTrendView(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.trends["BK0475"] = intraday(6, 50)

	if err := h.app.LoadTrendView(context.Background(), " bk0475 "); err != nil {
		t.Fatalf("load trend: %v", err)
	}
	if h.app.TrendCode() != "BK0475" {
		t.Errorf("code = %q", h.app.TrendCode())
	}
	if _, ok := h.app.Sink().Get(ChartTrend); !ok {
		t.Error("trend chart missing")
	}

	h.backend.failCodes["BK9999"] = true
	if err := h.app.LoadTrendView(context.Background(), "BK9999"); err == nil {
		t.Error("expected error")
	}
	if got := h.app.Hints()[ChartTrend]; got != loadFailedHint {
		t.Errorf("hint = %q", got)
	}
}

func TestLoadHistory(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.boardSum = []model.Point{
		{TS: time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC), Value: 15000},
		{TS: time.Date(2026, 10, 19, 2, 1, 0, 0, time.UTC), Value: 2e8},
	}

	err := h.app.LoadHistory(context.Background(), HistoryQuery{Source: SourceBoardConcept, Kind: "rt", Limit: 50})
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if h.backend.sumType != model.Concept || h.backend.sumKind != "rt" {
		t.Errorf("queried %s/%s", h.backend.sumType, h.backend.sumKind)
	}
	res := h.app.History()
	if res.Title != "近 50 条（折线）" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Rows[0].Time != "2026-10-19 10:00:00" || res.Rows[0].Value != "1.50万" {
		t.Errorf("row 0 = %+v", res.Rows[0])
	}
	if res.Rows[1].Value != "2.00亿" {
		t.Errorf("row 1 = %+v", res.Rows[1])
	}
	if got := h.app.Status().Text; got != "loaded" {
		t.Errorf("status = %q", got)
	}
	waitFor(t, "status revert", func() bool { return h.app.Status().Text == "connected" })
}

func TestHistoryQuery_Defaults(t *testing.T) {
	q := HistoryQuery{Source: "bogus", Kind: "weekly"}.withDefaults()
	if q.Source != SourceMarketIndustry || q.Kind != "daily" || q.Limit != 200 {
		t.Errorf("defaults = %+v", q)
	}
}

func TestSettings_SaveBoardTrendBounds(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))

	bt, err := h.app.SaveBoardTrend(context.Background(), config.BoardTrend{
		BatchSize: 1000, Concurrency: 0, GapMS: 50, AfterCloseMode: "bogus", AfterCloseIntervalSeconds: 9000,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	want := config.BoardTrend{BatchSize: 100, Concurrency: 1, GapMS: 100, AfterCloseMode: "once", AfterCloseIntervalSeconds: 1800}
	if bt != want || h.app.BoardTrend() != want {
		t.Errorf("bounded = %+v, local = %+v", bt, h.app.BoardTrend())
	}
	p := h.backend.patches[0]
	if *p.BoardTrendBatchSize != 100 || *p.BoardTrendAfterCloseMode != "once" || p.Watchlist != nil {
		t.Errorf("patch = %+v", p)
	}
	if got := h.app.Status().Text; got != "saved" {
		t.Errorf("status = %q", got)
	}
}

func TestSettings_SaveWatchlist(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))

	if _, err := h.app.SaveWatchlist(context.Background(), "600519.SH\r\n\n  000001.SZ \n"); err != nil {
		t.Fatal(err)
	}
	if wl := h.backend.patches[0].Watchlist; len(wl) != 2 || wl[0] != "600519.SH" || wl[1] != "000001.SZ" {
		t.Errorf("watchlist = %q", wl)
	}
	if _, err := h.app.SaveWatchlist(context.Background(), "  \n"); err != nil {
		t.Fatal(err)
	}
	if wl := h.backend.patches[1].Watchlist; wl == nil || len(wl) != 0 {
		t.Errorf("blank text should clear the list, got %#v", wl)
	}
}

func TestRefreshConfig_AdoptsBoardTrend(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.cfg = &model.ConfigView{BoardTrend: &model.BoardTrendConfig{BatchSize: 40, Concurrency: 9}}

	if _, err := h.app.RefreshConfig(context.Background()); err != nil {
		t.Fatal(err)
	}
	bt := h.app.BoardTrend()
	if bt.BatchSize != 40 || bt.Concurrency != 6 || bt.GapMS != 100 {
		t.Errorf("board trend = %+v", bt)
	}
}

func TestSettingsFrom_Defaults(t *testing.T) {
	s := SettingsFrom(nil, config.BoardTrend{})
	if s.Realtime.IntervalSeconds != 20 || s.Realtime.ToplistSize != 10 {
		t.Errorf("realtime = %+v", s.Realtime)
	}
	if s.Boards.IndustryIntervalSeconds != 10 || s.Boards.ConceptIntervalSeconds != 60 || s.Boards.ConceptTopSize != 100 {
		t.Errorf("boards = %+v", s.Boards)
	}
	if s.MarketAgg.IntervalSeconds != 120 || s.MarketAgg.Concurrency != 4 {
		t.Errorf("market agg = %+v", s.MarketAgg)
	}
}

func TestResize_RedrawsCurrentPage(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.trends["BK01"] = intraday(4, 1)
	h.app.Boot(context.Background(), RouteTrend, map[string]string{"board": "BK01"})

	h.app.Resize(300, 120, 2)
	img, ok := h.app.Sink().Get(ChartTrend)
	if !ok {
		t.Fatal("trend chart missing")
	}
	if img.Width != 600 || img.Height != 240 {
		t.Errorf("size = %dx%d, want 600x240", img.Width, img.Height)
	}
}

func TestState_QueryIsACopy(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.trends["BK01"] = intraday(3, 1)
	query := map[string]string{"board": "BK01"}
	h.app.Boot(context.Background(), RouteTrend, query)

	query["board"] = "BK99"
	st := h.app.State()
	st.Query["board"] = "BK77"
	if got := h.app.State().Query["board"]; got != "BK01" {
		t.Errorf("query board = %q, want BK01", got)
	}
}

func TestSetTheme_RepaintsCurrentPage(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.trends["BK01"] = intraday(4, 1)
	h.app.Boot(context.Background(), RouteTrend, map[string]string{"board": "BK01"})

	before, ok := h.app.Sink().Get(ChartTrend)
	if !ok {
		t.Fatal("trend chart missing")
	}
	h.app.SetTheme(chart.Light)
	after, _ := h.app.Sink().Get(ChartTrend)
	if string(after.PNG) == string(before.PNG) {
		t.Error("theme change did not repaint the trend chart")
	}
}

func TestHandleCommand(t *testing.T) {
	h := newHarness(t, bj(19, 10, 0))
	h.backend.batches = []*model.BatchStatus{{Type: "industry", Running: true, Total: 10}}
	if _, err := h.app.RefreshConfig(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := h.app.HandleCommand("/status@DashBot"); !strings.Contains(got, "看板状态") {
		t.Errorf("/status = %q", got)
	}
	if got := h.app.HandleCommand("/batch stocks"); !strings.Contains(got, "用法") {
		t.Errorf("/batch stocks = %q", got)
	}
	if got := h.app.HandleCommand("/batch industry"); !strings.Contains(got, "运行中") {
		t.Errorf("/batch industry = %q", got)
	}
	if got := h.app.HandleCommand("/realtime"); !strings.Contains(got, "实时资金") {
		t.Errorf("/realtime = %q", got)
	}
	if got := h.app.HandleCommand("hello"); got != commandHelp {
		t.Errorf("unknown = %q", got)
	}
}
