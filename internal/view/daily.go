package view

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/format"
	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/notifier"
	"OrderFlowDash/internal/recorder"
	"OrderFlowDash/internal/refresh"
)

// Daily grid sort modes.
const (
	SortValueDesc = "value_desc"
	SortValueAsc  = "value_asc"
	SortAbsDesc   = "abs_desc"
	SortNameAsc   = "name_asc"
)

// Daily grid filters.
const (
	FilterAll = "all"
	FilterIn  = "in"
	FilterOut = "out"
)

// DailyQuery selects the daily history loaded into a grid.
type DailyQuery struct {
	Limit   int  // days per board
	Boards  int  // boards on the grid
	Refresh bool // ask the backend to refetch from upstream
}

func (q DailyQuery) withDefaults() DailyQuery {
	if q.Limit <= 0 {
		q.Limit = 120
	}
	if q.Boards <= 0 {
		q.Boards = 80
	}
	return q
}

// DailyCard is one card of the daily grid as currently ordered.
type DailyCard struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	Date    string `json:"date"`
	HasData bool   `json:"has_data"`
	Visible bool   `json:"visible"`
}

type dailyGrid struct {
	cache  *refresh.Cache
	boards []model.Board
	query  DailyQuery
	sort   string
	filter string
	page   int
	order  []string
}

func batchTimer(t model.BoardType) string { return "batch-" + string(t) }

func (a *App) dailyQuery(t model.BoardType, query map[string]string) DailyQuery {
	q := DailyQuery{
		Limit:   atoiOr(query["limit"], 0),
		Boards:  atoiOr(query["boards"], 0),
		Refresh: query["refresh"] == "1",
	}
	if q.Limit == 0 && q.Boards == 0 {
		a.mu.Lock()
		if g := a.daily[t]; g != nil {
			q = g.query
		}
		a.mu.Unlock()
	}
	return q.withDefaults()
}

// LoadStatus returns the progress line of the daily grid of type t.
func (a *App) LoadStatus(t model.BoardType) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadStatus[t]
}

// setLoadStatus writes the progress line of run seq; lines from a run that
// is no longer the latest are dropped.
func (a *App) setLoadStatus(t model.BoardType, seq uint64, text string) {
	a.mu.Lock()
	if a.dailySeq[t] == seq {
		a.loadStatus[t] = text
	}
	a.mu.Unlock()
}

// DailyCache returns the daily grid cache of type t, or nil.
func (a *App) DailyCache(t model.BoardType) *refresh.Cache {
	a.mu.Lock()
	defer a.mu.Unlock()
	if g := a.daily[t]; g != nil {
		return g.cache
	}
	return nil
}

// LoadBoardDailyView fetches the boards of type t, rebuilds the daily grid
// and loads every card's history in the background. Only cards on the
// current page are drawn as their data arrives; the rest wait until shown.
func (a *App) LoadBoardDailyView(ctx context.Context, t model.BoardType, q DailyQuery) error {
	q = q.withDefaults()
	a.mu.Lock()
	fid := a.cfg.BoardFID(t)
	prev := a.daily[t]
	a.mu.Unlock()

	list, err := a.backend.Boards(ctx, t, fid, q.Boards)
	if err != nil {
		return fmt.Errorf("load %s daily boards: %w", t, err)
	}

	grid := &dailyGrid{
		cache:  refresh.NewCache(list.Rows, false),
		boards: list.Rows,
		query:  q,
		sort:   SortValueDesc,
		filter: FilterAll,
	}
	if prev != nil {
		grid.sort, grid.filter = prev.sort, prev.filter
	}
	if !q.Refresh {
		seeded, err := a.rec.LoadSeries(recorder.KindDaily, t, market.DayStart(a.now()))
		if err != nil {
			log.Printf("[WARN] seed %s daily: %v", t, err)
		}
		for code, points := range seeded {
			grid.cache.Store(code, points)
		}
	}

	a.mu.Lock()
	a.daily[t] = grid
	a.mu.Unlock()
	a.resortDaily(t)

	a.background(func() { a.refreshDaily(a.ctx, t, false) })
	return nil
}

func (a *App) dailyRenderer(t model.BoardType) refresh.RenderFunc {
	return func(code string, points []model.Point) {
		s := chart.DailySeries(points)
		if s.Len() < 2 {
			return
		}
		a.paint(DailyChartName(t, code), s)
	}
}

func (a *App) dailyFetcher(t model.BoardType, fid string, q DailyQuery) refresh.FetchFunc {
	return func(ctx context.Context, code string) ([]model.Point, error) {
		series, err := a.backend.BoardDaily(ctx, code, t, fid, q.Limit, q.Refresh)
		if err != nil {
			return nil, err
		}
		if len(series.Points) >= 2 {
			if err := a.rec.RecordSeries(recorder.KindDaily, t, code, series.Points); err != nil {
				log.Printf("[WARN] record daily %s: %v", code, err)
			}
		}
		return series.Points, nil
	}
}

// refreshDaily loads the daily history of every card of type t, re-sorting
// the grid after each batch.
func (a *App) refreshDaily(ctx context.Context, t model.BoardType, onlyMissing bool) refresh.Result {
	a.mu.Lock()
	grid := a.daily[t]
	fid := a.cfg.BoardFID(t)
	a.dailySeq[t]++
	seq := a.dailySeq[t]
	a.mu.Unlock()
	if grid == nil || grid.cache.Len() == 0 {
		return refresh.Result{}
	}

	codes := model.BoardList{Rows: grid.boards}.Codes()
	opts := a.refreshOptions(onlyMissing)
	opts.Progress = func(done, total int) {
		a.setLoadStatus(t, seq, format.Progress(done, total))
	}
	opts.OnChunk = func(int) { a.resortDaily(t) }

	if !onlyMissing {
		a.setLoadStatus(t, seq, format.Progress(0, len(codes)))
	}
	res := a.refresher.Refresh(ctx, dailyTarget(t), grid.cache, codes, a.dailyFetcher(t, fid, grid.query), a.dailyRenderer(t), opts)
	if res.Superseded {
		a.setLoadStatus(t, seq, "")
		return res
	}
	a.resortDaily(t)
	a.setLoadStatus(t, seq, "")
	return res
}

func lastValue(e refresh.Entry) (float64, bool) {
	p, ok := e.Last()
	if !ok || !finite(p.Value) {
		return 0, false
	}
	return p.Value, true
}

// orderDaily filters and sorts entries. Entries without a value always go
// last; ties keep grid order.
func orderDaily(entries []refresh.Entry, mode, filter string) []string {
	type row struct {
		code string
		name string
		v    float64
		ok   bool
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		v, ok := lastValue(e)
		if filter == FilterIn && (!ok || v <= 0) {
			continue
		}
		if filter == FilterOut && (!ok || v >= 0) {
			continue
		}
		rows = append(rows, row{code: e.Code, name: strings.ToLower(e.Name), v: v, ok: ok})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ok != b.ok {
			return a.ok
		}
		switch mode {
		case SortValueAsc:
			return a.v < b.v
		case SortAbsDesc:
			return math.Abs(a.v) > math.Abs(b.v)
		case SortNameAsc:
			return a.name < b.name
		default:
			return a.v > b.v
		}
	})
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.code
	}
	return out
}

// SortDaily changes the order and filter of the daily grid of type t and
// returns the resulting card order. Empty arguments keep the current mode.
func (a *App) SortDaily(t model.BoardType, mode, filter string) []string {
	a.mu.Lock()
	grid := a.daily[t]
	if grid == nil {
		a.mu.Unlock()
		return nil
	}
	if mode != "" {
		grid.sort = mode
	}
	if filter != "" {
		grid.filter = filter
	}
	grid.page = 0
	a.mu.Unlock()
	return a.resortDaily(t)
}

func (a *App) resortDaily(t model.BoardType) []string {
	a.mu.Lock()
	grid := a.daily[t]
	if grid == nil {
		a.mu.Unlock()
		return nil
	}
	order := orderDaily(grid.cache.Entries(), grid.sort, grid.filter)
	grid.order = order
	start := grid.page * a.pageSize
	a.mu.Unlock()

	if start > len(order) {
		start = len(order)
	}
	end := start + a.pageSize
	if end > len(order) {
		end = len(order)
	}
	a.SetVisible(t, order[start:end])
	return order
}

// ShowPage marks page n (zero-based) of the daily grid as on screen.
func (a *App) ShowPage(t model.BoardType, n int) {
	if n < 0 {
		n = 0
	}
	a.mu.Lock()
	grid := a.daily[t]
	if grid != nil {
		grid.page = n
	}
	a.mu.Unlock()
	a.resortDaily(t)
}

// SetVisible marks codes of the daily grid of type t as on screen and every
// other card as off screen. Cards that became visible with data not yet
// drawn are rendered now.
func (a *App) SetVisible(t model.BoardType, codes []string) {
	cache := a.DailyCache(t)
	if cache == nil {
		return
	}
	show := make(map[string]bool, len(codes))
	for _, c := range codes {
		show[c] = true
	}
	render := a.dailyRenderer(t)
	for _, code := range cache.Codes() {
		if !cache.SetVisible(code, show[code]) {
			continue
		}
		if e, ok := cache.Get(code); ok {
			render(code, e.Points)
			cache.MarkRendered(code)
		}
	}
}

// DailyCards returns the cards of the daily grid of type t in display order.
func (a *App) DailyCards(t model.BoardType) []DailyCard {
	a.mu.Lock()
	grid := a.daily[t]
	var order []string
	if grid != nil {
		order = append(order, grid.order...)
	}
	a.mu.Unlock()
	if grid == nil {
		return nil
	}

	out := make([]DailyCard, 0, len(order))
	for _, code := range order {
		e, ok := grid.cache.Get(code)
		if !ok {
			continue
		}
		card := DailyCard{Code: code, Name: e.Name, Value: format.Placeholder, Date: format.Placeholder, HasData: e.HasData(), Visible: e.Visible}
		if card.Name == "" {
			card.Name = format.Placeholder
		}
		if p, ok := e.Last(); ok {
			if finite(p.Value) {
				card.Value = format.SignedMoney(p.Value)
			}
			if p.Label != "" {
				card.Date = p.Label
			}
		}
		out = append(out, card)
	}
	return out
}

// BatchText returns the batch job status line of type t.
func (a *App) BatchText(t model.BoardType) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batchText[t]
}

// Batch returns the last batch job status of type t, or nil.
func (a *App) Batch(t model.BoardType) *model.BatchStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch[t]
}

func (a *App) setBatchText(t model.BoardType, text string) {
	a.mu.Lock()
	a.batchText[t] = text
	a.mu.Unlock()
}

// StartBatch asks the backend to fetch the daily history of every board of
// type t and polls the job until it finishes.
func (a *App) StartBatch(ctx context.Context, t model.BoardType, limit int) error {
	if limit <= 0 {
		limit = DailyQuery{}.withDefaults().Limit
	}
	a.setBatchText(t, "批量任务：启动中...")
	s, err := a.backend.StartBatch(ctx, t, limit)
	if err != nil {
		a.setBatchText(t, "批量任务：启动失败（可能已有任务在运行）")
		return fmt.Errorf("start %s batch: %w", t, err)
	}
	a.mu.Lock()
	a.batch[t] = s
	a.mu.Unlock()
	log.Printf("[INFO] %s daily batch started, limit %d", t, limit)

	a.PollBatch(ctx, t)
	if a.Batch(t).Running {
		a.every(batchTimer(t), batchPollEvery, func() { a.PollBatch(a.ctx, t) })
	}
	return nil
}

// PollBatch reads the batch job status of type t. The poll timer stops once
// the job is not running; a job seen finishing is recorded and reported.
func (a *App) PollBatch(ctx context.Context, t model.BoardType) {
	s, err := a.backend.BatchStatus(ctx, t)
	if err != nil {
		log.Printf("[WARN] poll %s batch: %v", t, err)
		a.setBatchText(t, "批量任务：状态获取失败")
		return
	}
	if s.Type == "" {
		s.Type = string(t)
	}

	a.mu.Lock()
	prev := a.batch[t]
	a.batch[t] = s
	a.batchText[t] = format.BatchStatus(s)
	a.mu.Unlock()

	if s.Running {
		return
	}
	a.timers.Cancel(batchTimer(t))
	if prev != nil && prev.Running {
		log.Printf("[INFO] %s daily batch finished: %d ok, %d failed", t, s.OK, s.Failed)
		if err := a.rec.RecordBatch(s); err != nil {
			log.Printf("[WARN] record batch: %v", err)
		}
		a.trySend(notifier.FormatBatchFinished(s))
	}
}
