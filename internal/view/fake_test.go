package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/config"
	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/recorder"
)

var errBackend = errors.New("backend unavailable")

type fakeBackend struct {
	mu sync.Mutex

	cfg         *model.ConfigView
	boards      map[model.BoardType][]model.Board
	fromLive    bool
	trends      map[string][]model.Point
	daily       map[string][]model.Point
	secids      map[string][]model.Point
	failCodes   map[string]bool
	snapshot    *model.Snapshot
	realtimeErr error
	aggRT       []model.Point
	aggDaily    []model.Point
	boardSum    []model.Point
	priceSum    []model.Point
	batches     []*model.BatchStatus
	startErr    error
	patches     []model.ConfigPatch

	trendCalls int
	sumType    model.BoardType
	sumKind    api.HistoryKind
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		cfg:       &model.ConfigView{},
		boards:    make(map[model.BoardType][]model.Board),
		trends:    make(map[string][]model.Point),
		daily:     make(map[string][]model.Point),
		secids:    make(map[string][]model.Point),
		failCodes: make(map[string]bool),
		snapshot:  &model.Snapshot{AggByKey: map[string]float64{}},
	}
}

func (f *fakeBackend) Config(ctx context.Context) (*model.ConfigView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, nil
}

func (f *fakeBackend) UpdateConfig(ctx context.Context, patch model.ConfigPatch) (*model.ConfigView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return f.cfg, nil
}

func (f *fakeBackend) Version(ctx context.Context) (string, error) { return "2026-10-18 21:00", nil }

func (f *fakeBackend) Realtime(ctx context.Context) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.realtimeErr != nil {
		return nil, f.realtimeErr
	}
	return f.snapshot, nil
}

func (f *fakeBackend) Boards(ctx context.Context, t model.BoardType, fid string, limit int) (*model.BoardList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.boards[t]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return &model.BoardList{Rows: rows, FromLive: f.fromLive}, nil
}

func (f *fakeBackend) BoardTrend(ctx context.Context, board string) (*api.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trendCalls++
	if f.failCodes[board] {
		return nil, errBackend
	}
	return &api.Series{Board: board, Points: f.trends[board]}, nil
}

func (f *fakeBackend) BoardDaily(ctx context.Context, board string, t model.BoardType, fid string, limit int, refresh bool) (*api.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCodes[board] {
		return nil, errBackend
	}
	return &api.Series{Board: board, Points: f.daily[board]}, nil
}

func (f *fakeBackend) SecIDTrend(ctx context.Context, secid string) (*api.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCodes[secid] {
		return nil, errBackend
	}
	return &api.Series{Board: secid, Points: f.secids[secid]}, nil
}

func (f *fakeBackend) BatchStatus(ctx context.Context, t model.BoardType) (*model.BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, errBackend
	}
	s := f.batches[0]
	if len(f.batches) > 1 {
		f.batches = f.batches[1:]
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) StartBatch(ctx context.Context, t model.BoardType, limit int) (*model.BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &model.BatchStatus{Type: string(t), Running: true}, nil
}

func (f *fakeBackend) MarketAggHistory(ctx context.Context, source, fid string, kind api.HistoryKind, limit int) ([]model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == api.KindRT {
		return f.aggRT, nil
	}
	return f.aggDaily, nil
}

func (f *fakeBackend) BoardSumHistory(ctx context.Context, t model.BoardType, fid string, kind api.HistoryKind, limit int) ([]model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumType, f.sumKind = t, kind
	return f.boardSum, nil
}

func (f *fakeBackend) BoardPriceSum(ctx context.Context, t model.BoardType, fid string, limit int) ([]model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priceSum, nil
}

type fakeRecorder struct {
	recorder.NoopRecorder
	mu      sync.Mutex
	series  map[string]int
	batches []*model.BatchStatus
	snaps   int
	// trends is what LoadSeries returns for intraday series.
	trends map[string][]model.Point
}

func (r *fakeRecorder) LoadSeries(kind recorder.SeriesKind, _ model.BoardType, _ time.Time) (map[string][]model.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]model.Point)
	if kind != recorder.KindTrend {
		return out, nil
	}
	for code, pts := range r.trends {
		out[code] = pts
	}
	return out, nil
}

func (r *fakeRecorder) RecordSeries(kind recorder.SeriesKind, t model.BoardType, code string, points []model.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.series == nil {
		r.series = make(map[string]int)
	}
	r.series[string(kind)+"/"+code]++
	return nil
}

func (r *fakeRecorder) RecordRealtime(*model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps++
	return nil
}

func (r *fakeRecorder) RecordBatch(s *model.BatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, s)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Send(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	return n.Send(text)
}

func (n *fakeNotifier) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.sent {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// bj builds a Beijing wall-clock time on Monday 2026-10-19 unless day says
// otherwise.
func bj(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, market.Beijing)
}

type harness struct {
	app     *App
	backend *fakeBackend
	rec     *fakeRecorder
	notify  *fakeNotifier
	clock   *clock
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		rec:     &fakeRecorder{},
		notify:  &fakeNotifier{},
		clock:   &clock{t: now},
	}
	h.app = New(context.Background(), Options{
		Backend:      h.backend,
		Painter:      chart.NewPainter(chart.NewSink(""), chart.Surface{Width: 160, Height: 80, DPR: 1}, chart.Dark),
		Recorder:     h.rec,
		Notifier:     h.notify,
		BoardTrend:   config.BoardTrend{GapMS: 100},
		PageSize:     2,
		Now:          h.clock.Now,
		StatusRevert: 100 * time.Millisecond,
	})
	t.Cleanup(h.app.Close)
	return h
}

// intraday returns n one-minute points from 09:31.
func intraday(n int, base float64) []model.Point {
	out := make([]model.Point, n)
	for i := range out {
		m := 31 + i
		out[i] = model.Point{
			Label: fmt.Sprintf("2026-10-19 %02d:%02d", 9+m/60, m%60),
			Value: base + float64(i),
		}
	}
	return out
}

// fullSession returns points from the open through the 15:00 close.
func fullSession(base float64) []model.Point {
	labels := []string{"09:31", "10:30", "11:30", "13:01", "14:00", "15:00"}
	out := make([]model.Point, len(labels))
	for i, l := range labels {
		out[i] = model.Point{Label: "2026-10-19 " + l, Value: base + float64(i)}
	}
	return out
}

// days returns daily points ending with last.
func days(last ...float64) []model.Point {
	out := make([]model.Point, len(last))
	for i, v := range last {
		out[i] = model.Point{Label: fmt.Sprintf("2026-10-%02d", 10+i), Value: v}
	}
	return out
}

func boards(codes ...string) []model.Board {
	out := make([]model.Board, len(codes))
	for i, c := range codes {
		out[i] = model.Board{Code: c, Name: "Board " + c, Price: float64(i + 1)}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
