package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/chart"
	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/view"
)

const trendBody = `{"board":"BK0475","points":[
{"ts":"2026-10-19 09:31","price":10},
{"ts":"2026-10-19 09:32","price":12},
{"ts":"2026-10-19 09:33","price":11}]}`

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"db_path":"/data/aof.db"}`))
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"last_commit_time":"2026-10-18 21:00"}`))
	})
	mux.HandleFunc("/api/board/trend", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("board") != "BK0475" {
			http.Error(w, "unknown board", http.StatusNotFound)
			return
		}
		w.Write([]byte(trendBody))
	})
	mux.HandleFunc("/api/board/daily/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "batch already running", http.StatusConflict)
			return
		}
		w.Write([]byte(`{"type":"industry","running":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	app *view.App
	srv *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := newBackend(t)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, market.Beijing)
	app := view.New(context.Background(), view.Options{
		Backend: api.NewClient(backend.URL, 5*time.Second, ""),
		Painter: chart.NewPainter(chart.NewSink(""), chart.Surface{Width: 160, Height: 80, DPR: 1}, chart.Dark),
		Now:     func() time.Time { return now },
	})
	t.Cleanup(app.Close)

	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(New(app, reg, reg).Handler())
	t.Cleanup(srv.Close)
	return &fixture{app: app, srv: srv}
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouteChangeServesChart(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/route", `{"location":"#/trend?board=bk0475"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("route status = %d", resp.StatusCode)
	}
	var st view.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Route != view.RouteTrend || st.TrendCode != "BK0475" {
		t.Errorf("state = %s/%s", st.Route, st.TrendCode)
	}

	png := f.get(t, "/charts/"+view.ChartTrend, nil)
	if png.StatusCode != http.StatusOK || png.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("chart response = %d %s", png.StatusCode, png.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(png.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("chart body is not a PNG")
	}

	if resp := f.get(t, "/charts/missing", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing chart status = %d", resp.StatusCode)
	}
}

func TestStateIsZstdEncoded(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/state", http.Header{"Accept-Encoding": {"zstd"}})
	if resp.Header.Get("Content-Encoding") != "zstd" {
		t.Fatalf("content encoding = %q", resp.Header.Get("Content-Encoding"))
	}
	dec, err := zstd.NewReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	var st view.State
	if err := json.NewDecoder(dec).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Route != view.RouteHome {
		t.Errorf("route = %q", st.Route)
	}

	plain := f.get(t, "/api/state", nil)
	if plain.Header.Get("Content-Encoding") != "" {
		t.Error("plain clients must not get zstd")
	}
}

func TestResize(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/route", `{"route":"trend","query":{"board":"BK0475"}}`)

	if resp := f.post(t, "/api/resize", `{"width":300,"height":0,"dpr":1}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid resize status = %d", resp.StatusCode)
	}
	if resp := f.post(t, "/api/resize", `{"width":300,"height":100,"dpr":2}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("resize status = %d", resp.StatusCode)
	}
	img, ok := f.app.Sink().Get(view.ChartTrend)
	if !ok || img.Width != 600 || img.Height != 200 {
		t.Errorf("chart after resize = %+v", img)
	}
}

func TestDailyEndpoints(t *testing.T) {
	f := newFixture(t)

	if resp := f.post(t, "/api/daily/stocks/sort", `{"sort":"value_asc"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown type status = %d", resp.StatusCode)
	}
	if resp := f.post(t, "/api/daily/industry/batch?limit=60", ``); resp.StatusCode != http.StatusConflict {
		t.Errorf("conflicting batch status = %d", resp.StatusCode)
	}
	if got := f.app.BatchText("industry"); got != "批量任务：启动失败（可能已有任务在运行）" {
		t.Errorf("batch text = %q", got)
	}
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/settings/board_trend", `{"batch_size":1000,"concurrency":3,"gap_ms":400,"after_close_mode":"interval","after_close_interval_seconds":30}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var s view.Settings
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.BoardTrend.BatchSize != 100 || s.BoardTrend.AfterCloseIntervalSeconds != 60 || s.BoardTrend.AfterCloseMode != "interval" {
		t.Errorf("board trend = %+v", s.BoardTrend)
	}
	if s.DBPath != "/data/aof.db" {
		t.Errorf("db path = %q", s.DBPath)
	}

	if resp := f.post(t, "/api/settings/realtime", `{"interval_seconds":"x"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d", resp.StatusCode)
	}
	if resp := f.post(t, "/api/settings/bogus", `{}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown form status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/state", nil)

	resp := f.get(t, "/metrics", nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `dash_http_requests_total{code="200",method="GET",route="/api/state"} 1`) {
		t.Errorf("request counter missing from:\n%s", body)
	}
}
