package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"OrderFlowDash/internal/format"
	"OrderFlowDash/internal/model"
)

// StatusReport is the dashboard state summarised for the /status command.
type StatusReport struct {
	Route        string
	Status       string
	MarketClosed bool
	Version      string
	TrendCached  map[model.BoardType][2]int // entries with data, total entries
	Charts       int
	UpdatedAt    time.Time
}

// FormatStatusChange announces a connection status transition.
func FormatStatusChange(from, to string) string {
	icon := "ℹ️"
	switch to {
	case "rt error":
		icon = "⚠️"
	case "connected":
		icon = "✅"
	case "market closed":
		icon = "🌙"
	}
	if from == "" {
		return fmt.Sprintf("%s <b>OrderFlowDash</b> 状态: %s", icon, to)
	}
	return fmt.Sprintf("%s <b>OrderFlowDash</b> 状态: %s → %s", icon, from, to)
}

// FormatBatchFinished reports a completed daily batch job.
func FormatBatchFinished(s *model.BatchStatus) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>日线批量完成</b> | %s\n\n", boardTypeName(s.Type)))
	b.WriteString(format.BatchStatus(s))
	if s.UpdatedAt != "" {
		b.WriteString(fmt.Sprintf("\n更新时间: %s", s.UpdatedAt))
	}
	return b.String()
}

// FormatRealtime renders the realtime panel as a message.
func FormatRealtime(v format.RealtimeView) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>实时资金</b> | %s\n\n", v.Time))
	b.WriteString(fmt.Sprintf("沪股通额度: %s%% (%s) 成交: %s\n", v.SH.QuotaPct, v.SH.Quota, v.SH.Turnover))
	b.WriteString(fmt.Sprintf("深股通额度: %s%% (%s) 成交: %s\n", v.SZ.QuotaPct, v.SZ.Quota, v.SZ.Turnover))
	b.WriteString(fmt.Sprintf("行业合计: %s\n", v.Industry))
	b.WriteString(fmt.Sprintf("全市场合计: %s\n", v.AllStock))
	if len(v.Watch) > 0 {
		b.WriteString("\n👀 <b>自选:</b>\n")
		for _, r := range v.Watch {
			b.WriteString(fmt.Sprintf("  %s %s 主力: %s\n", r.Code, r.Name, r.NetMain))
		}
	}
	return b.String()
}

// FormatStatus formats the dashboard state for display.
func FormatStatus(r StatusReport) string {
	var b strings.Builder
	b.WriteString("🖥 <b>看板状态</b>\n\n")
	b.WriteString(fmt.Sprintf("页面: %s\n", r.Route))
	b.WriteString(fmt.Sprintf("连接: %s\n", r.Status))
	if r.MarketClosed {
		b.WriteString("市场: 已收盘\n")
	}
	if r.Version != "" {
		b.WriteString(fmt.Sprintf("后端版本: %s\n", r.Version))
	}
	types := make([]string, 0, len(r.TrendCached))
	for t := range r.TrendCached {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		c := r.TrendCached[model.BoardType(t)]
		b.WriteString(fmt.Sprintf("%s走势: %d/%d\n", boardTypeName(t), c[0], c[1]))
	}
	b.WriteString(fmt.Sprintf("图表: %d\n", r.Charts))
	if !r.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("更新时间: %s\n", format.BJTime(r.UpdatedAt)))
	}
	return b.String()
}

func boardTypeName(t string) string {
	switch model.BoardType(t) {
	case model.Industry:
		return "行业"
	case model.Concept:
		return "概念"
	}
	return t
}
