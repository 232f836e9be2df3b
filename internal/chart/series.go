package chart

import (
	"strconv"
	"time"

	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
)

// LabelMode selects how intraday timestamps are labelled.
type LabelMode string

const (
	// LabelHM labels points "HH:mm".
	LabelHM LabelMode = "hm"
	// LabelSec labels points "MM-DD HH:mm:ss" for sub-minute cadences.
	LabelSec LabelMode = "sec"
)

// clock extracts the minute of day and display label from a point. Local
// labels ("YYYY-MM-DD HH:mm[:ss]" or "HH:mm") are read as written; anything
// else falls back to the parsed timestamp in Beijing time.
func clock(p model.Point, mode LabelMode) (minute int, label string, ok bool) {
	s := p.Label
	local := len(s) >= 16 && s[10] == ' '
	switch {
	case local && len(s) >= 19:
		minute, ok = hm(s[11:16])
		label = s[11:16]
		if mode == LabelSec {
			label = s[5:19]
		}
	case local:
		minute, ok = hm(s[11:16])
		label = s[11:16]
	case len(s) >= 5 && len(s) < 10:
		minute, ok = hm(s[:5])
		label = s[:5]
	}
	if ok {
		return minute, label, true
	}
	if p.TS.IsZero() {
		return 0, "", false
	}
	t := p.TS.In(market.Beijing)
	label = t.Format("15:04")
	if mode == LabelSec {
		label = t.Format("01-02 15:04:05")
	}
	return t.Hour()*60 + t.Minute(), label, true
}

func hm(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h, err1 := strconv.Atoi(s[:2])
	m, err2 := strconv.Atoi(s[3:])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

// SessionComplete reports whether the last point reaches the 15:00 close.
func SessionComplete(points []model.Point) bool {
	if len(points) == 0 {
		return false
	}
	m, _, ok := clock(points[len(points)-1], LabelHM)
	return ok && m >= market.CloseMinute
}

// BoardTrendSeries keeps the 09:30–15:00 session and expresses every value
// relative to the first kept point.
func BoardTrendSeries(points []model.Point) Series {
	var s Series
	base, haveBase := 0.0, false
	for _, p := range points {
		m, label, ok := clock(p, LabelHM)
		if !ok || m < market.OpenMinute || m > market.CloseMinute {
			continue
		}
		if !finite(p.Value) {
			continue
		}
		if !haveBase {
			base, haveBase = p.Value, true
		}
		s.Labels = append(s.Labels, label)
		s.Values = append(s.Values, p.Value-base)
	}
	return s
}

// WindowSeries keeps points whose minute of day lies in [startMin, endMin].
func WindowSeries(points []model.Point, startMin, endMin int, mode LabelMode) Series {
	var s Series
	for _, p := range points {
		m, label, ok := clock(p, mode)
		if !ok || m < startMin || m > endMin {
			continue
		}
		if !finite(p.Value) {
			continue
		}
		s.Labels = append(s.Labels, label)
		s.Values = append(s.Values, p.Value)
	}
	return s
}

// DailySeries labels one point per trade date as "MM-DD".
func DailySeries(points []model.Point) Series {
	var s Series
	for _, p := range points {
		if !finite(p.Value) {
			continue
		}
		s.Labels = append(s.Labels, mmdd(p))
		s.Values = append(s.Values, p.Value)
	}
	return s
}

func mmdd(p model.Point) string {
	if len(p.Label) >= 10 {
		return p.Label[5:10]
	}
	if p.Label != "" {
		return p.Label
	}
	if !p.TS.IsZero() {
		return p.TS.In(market.Beijing).Format("01-02")
	}
	return "-"
}

// HistorySeries labels realtime history by Beijing "MM-DD HH:mm" and daily
// history by its trade date.
func HistorySeries(points []model.Point, realtime bool) Series {
	var s Series
	for _, p := range points {
		if !finite(p.Value) {
			continue
		}
		label := "-"
		switch {
		case realtime && !p.TS.IsZero():
			label = p.TS.In(market.Beijing).Format("01-02 15:04")
		case !realtime && p.Label != "":
			label = p.Label
		}
		s.Labels = append(s.Labels, label)
		s.Values = append(s.Values, p.Value)
	}
	return s
}

// AppendPoint returns s with one more sample, dropping the oldest samples
// once max is exceeded.
func (s Series) AppendPoint(label string, v float64, max int) Series {
	s.Labels = append(append([]string(nil), s.Labels...), label)
	s.Values = append(append([]float64(nil), s.Values...), v)
	if max > 0 && len(s.Values) > max {
		drop := len(s.Values) - max
		s.Labels = s.Labels[drop:]
		s.Values = s.Values[drop:]
	}
	return s
}

// Last returns the final label and value.
func (s Series) Last() (string, float64, bool) {
	n := s.Len()
	if n == 0 {
		return "", 0, false
	}
	return s.Labels[n-1], s.Values[n-1], true
}

// TimeLabel formats t as an intraday "HH:mm:ss" label in Beijing time.
func TimeLabel(t time.Time) string {
	return t.In(market.Beijing).Format("15:04:05")
}
