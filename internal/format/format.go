// Package format renders numbers, times and job states for display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"OrderFlowDash/internal/model"
)

// Placeholder is shown for missing or non-finite values.
const Placeholder = "-"

// Money formats an amount with a magnitude-adaptive unit: 亿 (1e8), 万 (1e4),
// otherwise a rounded integer.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e8:
		return strconv.FormatFloat(v/1e8, 'f', 2, 64) + "亿"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e4, 'f', 2, 64) + "万"
	default:
		// half rounds up, matching the chart labels of the web UI
		r := math.Floor(v + 0.5)
		if r == 0 {
			r = 0 // drop negative zero
		}
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
}

// SignedMoney is Money with an explicit "+" for inflows.
func SignedMoney(v float64) string {
	s := Money(v)
	if s != Placeholder && v > 0 {
		return "+" + s
	}
	return s
}

// Yi formats an amount in units of 1e8 with two decimals.
func Yi(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return strconv.FormatFloat(v/1e8, 'f', 2, 64)
}

// Pct formats a percentage change with two decimals.
func Pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

var beijing = loadBeijing()

func loadBeijing() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*3600)
}

// BJTime formats t as "YYYY-MM-DD HH:mm:ss" in Beijing time.
func BJTime(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(beijing).Format("2006-01-02 15:04:05")
}

// QuotaView is the display form of one northbound quota leg.
type QuotaView struct {
	Pct    string `json:"pct"`
	Remain string `json:"remain"`
}

// Quota formats the remaining share of a daily quota. Above 30% the
// remainder is reported as sufficient instead of an amount.
func Quota(remain, threshold float64) QuotaView {
	if math.IsNaN(remain) || math.IsInf(remain, 0) || math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return QuotaView{Pct: Placeholder, Remain: Placeholder}
	}
	ratio := remain / threshold
	pct := strconv.FormatFloat(ratio*100, 'f', 2, 64)
	if ratio >= 0.3 {
		return QuotaView{Pct: pct, Remain: "充足"}
	}
	return QuotaView{Pct: pct, Remain: Yi(remain)}
}

// Turnover formats a positive turnover in 亿, or the placeholder.
func Turnover(v float64) string {
	if v > 0 {
		return Yi(v)
	}
	return Placeholder
}

// BatchStatus renders the server-side batch job state as a status line.
func BatchStatus(s *model.BatchStatus) string {
	if s == nil {
		return "批量任务：未知"
	}
	if !s.Running && s.Total == 0 && s.OK == 0 && s.Failed == 0 {
		return "批量任务：未启动"
	}
	prog := fmt.Sprintf("%d/?", s.Done())
	if s.Total > 0 {
		prog = fmt.Sprintf("%d/%d", s.Done(), s.Total)
	}
	state := "已完成"
	if s.Running {
		state = "运行中"
	}
	errPart := ""
	if s.LastErr != "" {
		errPart = "，最后错误：" + s.LastErr
	}
	return fmt.Sprintf("批量任务：%s，进度 %s，成功 %d，失败 %d%s", state, prog, s.OK, s.Failed, errPart)
}

// Progress renders the load status of a grid refresh.
func Progress(done, total int) string {
	return fmt.Sprintf("加载中... %d/%d", done, total)
}
