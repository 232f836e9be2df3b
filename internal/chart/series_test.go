package chart

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"OrderFlowDash/internal/model"
)

func TestBoardTrendSeries(t *testing.T) {
	pts := []model.Point{
		{Label: "2024-06-07 09:25:00", Value: 50},
		{Label: "2024-06-07 09:30:00", Value: 100},
		{Label: "2024-06-07 09:31:00", Value: 130},
		{Label: "09:32", Value: 90},
		{Label: "2024-06-07 15:01:00", Value: 500},
	}
	s := BoardTrendSeries(pts)
	if s.Len() != 3 {
		t.Fatalf("expected 3 points in session, got %d", s.Len())
	}
	want := []float64{0, 30, -10}
	for i, v := range want {
		if s.Values[i] != v {
			t.Errorf("value[%d] = %v, want %v", i, s.Values[i], v)
		}
	}
	if s.Labels[0] != "09:30" || s.Labels[2] != "09:32" {
		t.Errorf("labels = %v", s.Labels)
	}
}

func TestWindowSeries_LabelModes(t *testing.T) {
	pts := []model.Point{
		{Label: "2024-06-07 10:00:30", Value: 1},
		{Label: "2024-06-07 10:01:00", Value: 2},
		{Label: "2024-06-07 13:00:00", Value: 3},
	}
	s := WindowSeries(pts, 10*60, 11*60+30, LabelSec)
	if s.Len() != 2 || s.Labels[0] != "06-07 10:00:30" {
		t.Errorf("sec series = %+v", s)
	}
	s = WindowSeries(pts, 0, 24*60, LabelHM)
	if s.Len() != 3 || s.Labels[2] != "13:00" {
		t.Errorf("hm series = %+v", s)
	}
}

func TestWindowSeries_UsesTimestampForRFC3339(t *testing.T) {
	ts := time.Date(2024, 6, 7, 2, 15, 0, 0, time.UTC)
	s := WindowSeries([]model.Point{{TS: ts, Label: "2024-06-07T02:15:00Z", Value: 7}}, 0, 24*60, LabelHM)
	if s.Len() != 1 || s.Labels[0] != "10:15" {
		t.Errorf("series = %+v", s)
	}
}

func TestDailyAndHistorySeries(t *testing.T) {
	pts := []model.Point{
		{TS: time.Date(2024, 6, 6, 7, 0, 0, 0, time.UTC), Label: "2024-06-06", Value: 1e8},
		{TS: time.Date(2024, 6, 7, 7, 0, 0, 0, time.UTC), Label: "2024-06-07", Value: 2e8},
	}
	d := DailySeries(pts)
	if d.Labels[0] != "06-06" || d.Labels[1] != "06-07" {
		t.Errorf("daily labels = %v", d.Labels)
	}
	h := HistorySeries(pts, true)
	if h.Labels[1] != "06-07 15:00" {
		t.Errorf("rt history label = %q", h.Labels[1])
	}
	h = HistorySeries(pts, false)
	if h.Labels[0] != "2024-06-06" {
		t.Errorf("daily history label = %q", h.Labels[0])
	}
}

func TestSeriesAppendPoint(t *testing.T) {
	s := Series{Labels: []string{"a", "b"}, Values: []float64{1, 2}}
	out := s.AppendPoint("c", 3, 2)
	if out.Len() != 2 || out.Labels[0] != "b" || out.Values[1] != 3 {
		t.Errorf("appended = %+v", out)
	}
	if s.Len() != 2 || s.Labels[1] != "b" {
		t.Error("AppendPoint must not mutate the receiver")
	}
	l, v, ok := out.Last()
	if !ok || l != "c" || v != 3 {
		t.Errorf("last = %q %v %v", l, v, ok)
	}
}

func TestSink_PutWritesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewSink(dir)
	if err := s.Put("board/BK0475", []byte("png"), 600, 240); err != nil {
		t.Fatalf("put: %v", err)
	}
	img, ok := s.Get("board/BK0475")
	if !ok || string(img.PNG) != "png" || img.Width != 600 {
		t.Errorf("image = %+v", img)
	}
	data, err := os.ReadFile(filepath.Join(dir, "board_BK0475.png"))
	if err != nil || string(data) != "png" {
		t.Errorf("file: %q %v", data, err)
	}
	if names := s.Names(); len(names) != 1 || names[0] != "board/BK0475" {
		t.Errorf("names = %v", names)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Error("clear left images behind")
	}
}

func TestPainter_PaintAndResize(t *testing.T) {
	sink := NewSink("")
	p := NewPainter(sink, surface, Dark)
	if err := p.Paint("index-sh", Series{Labels: labels(3), Values: []float64{1, 2, 3}}); err != nil {
		t.Fatalf("paint: %v", err)
	}
	p.Resize(Surface{Width: 300, Height: 120, DPR: 2})
	if err := p.Paint("index-sh", Series{}); err != nil {
		t.Fatalf("paint: %v", err)
	}
	img, _ := sink.Get("index-sh")
	if img.Width != 600 || img.Height != 240 {
		t.Errorf("resized image = %dx%d", img.Width, img.Height)
	}
}

func TestSessionComplete(t *testing.T) {
	morning := []model.Point{{Label: "2026-10-19 09:31"}, {Label: "2026-10-19 11:30"}}
	full := append(morning, model.Point{Label: "2026-10-19 15:00"})
	if SessionComplete(morning) {
		t.Error("morning series should not be complete")
	}
	if !SessionComplete(full) {
		t.Error("series reaching 15:00 should be complete")
	}
	if SessionComplete(nil) {
		t.Error("empty series should not be complete")
	}
}
