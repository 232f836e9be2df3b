package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"OrderFlowDash/internal/model"
	"OrderFlowDash/internal/notifier"
)

const commandTimeout = 20 * time.Second

const commandHelp = `可用命令:
/status 看板状态
/realtime 实时资金
/batch industry|concept 启动日线批量任务`

// Report summarises the dashboard for the /status command.
func (a *App) Report() notifier.StatusReport {
	a.mu.Lock()
	r := notifier.StatusReport{
		Route:        string(a.route),
		Status:       a.status.Text,
		MarketClosed: a.marketClosed,
		Version:      a.version,
		TrendCached:  make(map[model.BoardType][2]int),
		UpdatedAt:    a.now(),
	}
	for t, c := range a.trend {
		withData := 0
		for _, e := range c.Entries() {
			if e.HasData() {
				withData++
			}
		}
		r.TrendCached[t] = [2]int{withData, c.Len()}
	}
	a.mu.Unlock()
	r.Charts = a.painter.Sink().Len()
	return r
}

// HandleCommand answers a bot command.
func (a *App) HandleCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return commandHelp
	}
	// "/status@SomeBot" in group chats
	cmd, _, _ := strings.Cut(fields[0], "@")

	ctx, cancel := context.WithTimeout(a.ctx, commandTimeout)
	defer cancel()

	switch cmd {
	case "/status":
		return notifier.FormatStatus(a.Report())
	case "/realtime":
		a.RefreshRealtimeOnce(ctx)
		v := a.Realtime()
		if v == nil {
			return "暂无实时数据"
		}
		return notifier.FormatRealtime(*v)
	case "/batch":
		if len(fields) < 2 || !model.BoardType(fields[1]).Valid() {
			return "用法: /batch industry|concept"
		}
		t := model.BoardType(fields[1])
		if err := a.StartBatch(ctx, t, 0); err != nil {
			return a.BatchText(t)
		}
		return fmt.Sprintf("已启动%s日线批量任务\n%s", boardTypeLabel(t), a.BatchText(t))
	default:
		return commandHelp
	}
}

func boardTypeLabel(t model.BoardType) string {
	if t == model.Concept {
		return "概念"
	}
	return "行业"
}
