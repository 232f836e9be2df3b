package format

import (
	"math"
	"testing"
	"time"

	"OrderFlowDash/internal/model"
)

func TestMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1e8, "1.00亿"},
		{15000, "1.50万"},
		{999, "999"},
		{-2.5e8, "-2.50亿"},
		{-15000, "-1.50万"},
		{9999.4, "9999"},
		{0, "0"},
		{-0.2, "0"},
		{math.NaN(), "-"},
		{math.Inf(1), "-"},
	}
	for _, c := range cases {
		if got := Money(c.in); got != c.want {
			t.Errorf("Money(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSignedMoney(t *testing.T) {
	if got := SignedMoney(15000); got != "+1.50万" {
		t.Errorf("got %q", got)
	}
	if got := SignedMoney(-15000); got != "-1.50万" {
		t.Errorf("got %q", got)
	}
	if got := SignedMoney(math.NaN()); got != "-" {
		t.Errorf("got %q", got)
	}
}

func TestQuota(t *testing.T) {
	q := Quota(40e8, 100e8)
	if q.Pct != "40.00" || q.Remain != "充足" {
		t.Errorf("sufficient quota: %+v", q)
	}
	q = Quota(12e8, 100e8)
	if q.Pct != "12.00" || q.Remain != "12.00" {
		t.Errorf("low quota: %+v", q)
	}
	q = Quota(1, 0)
	if q.Pct != "-" || q.Remain != "-" {
		t.Errorf("zero threshold: %+v", q)
	}
}

func TestBJTime(t *testing.T) {
	ts := time.Date(2024, 6, 7, 1, 30, 5, 0, time.UTC)
	if got := BJTime(ts); got != "2024-06-07 09:30:05" {
		t.Errorf("got %q", got)
	}
	if got := BJTime(time.Time{}); got != "-" {
		t.Errorf("zero time: %q", got)
	}
}

func TestBatchStatus(t *testing.T) {
	if got := BatchStatus(nil); got != "批量任务：未知" {
		t.Errorf("nil: %q", got)
	}
	if got := BatchStatus(&model.BatchStatus{}); got != "批量任务：未启动" {
		t.Errorf("idle: %q", got)
	}
	s := &model.BatchStatus{Running: true, Total: 10, OK: 3, Failed: 1, LastErr: "timeout"}
	want := "批量任务：运行中，进度 4/10，成功 3，失败 1，最后错误：timeout"
	if got := BatchStatus(s); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRealtime(t *testing.T) {
	cfg := &model.ConfigView{Watchlist: []string{"600519.SH", "000001.SZ"}}
	snap := &model.Snapshot{
		TSUTC: time.Date(2024, 6, 7, 6, 0, 0, 0, time.UTC),
		Northbound: &model.Northbound{
			SH: model.NorthboundLeg{DayAmtRemain: 4e10, DayAmtThreshold: 5.2e10, BuySellAmt: 1.234e10},
			SZ: model.NorthboundLeg{DayAmtRemain: 1e9, DayAmtThreshold: 5.2e10},
		},
		Fundflow: []model.FundflowRow{{Code: "600519", Name: "贵州茅台", NetMain: 1.5e8, NetXL: -2e4, NetL: 999, NetM: 0, NetS: 1}},
		AggByKey: map[string]float64{"industry_sum:f62": 2e8},
	}
	v := Realtime(snap, cfg)
	if v.Time != "2024-06-07 14:00:00" {
		t.Errorf("time = %q", v.Time)
	}
	if v.SH.Quota != "充足" || v.SH.Turnover != "123.40" {
		t.Errorf("sh = %+v", v.SH)
	}
	if v.SZ.Quota != "10.00" || v.SZ.QuotaPct != "1.92" || v.SZ.Turnover != "-" {
		t.Errorf("sz = %+v", v.SZ)
	}
	if v.Industry != "2.00亿" || v.AllStock != "-" {
		t.Errorf("aggregates = %q %q", v.Industry, v.AllStock)
	}
	if len(v.Watch) != 2 {
		t.Fatalf("watch rows = %d", len(v.Watch))
	}
	if v.Watch[0].NetMain != "1.50亿" || v.Watch[0].NetXL != "-2.00万" {
		t.Errorf("row 0 = %+v", v.Watch[0])
	}
	if v.Watch[1].Code != "000001" || v.Watch[1].Name != "-" || v.Watch[1].NetMain != "-" {
		t.Errorf("row 1 = %+v", v.Watch[1])
	}
}

func TestRealtime_NilSnapshot(t *testing.T) {
	v := Realtime(nil, nil)
	if v.Time != "-" || v.SH.QuotaPct != "-" || len(v.Watch) != 0 {
		t.Errorf("view = %+v", v)
	}
}
