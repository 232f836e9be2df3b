package format

import (
	"math"
	"strings"

	"OrderFlowDash/internal/model"
)

// LegView is the display form of one northbound leg.
type LegView struct {
	QuotaPct string `json:"quota_pct"`
	Quota    string `json:"quota"`
	Turnover string `json:"turnover"`
}

// WatchRow is one watchlist line of the realtime panel.
type WatchRow struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	NetMain string `json:"net_main"`
	NetXL   string `json:"net_xl"`
	NetL    string `json:"net_l"`
	NetM    string `json:"net_m"`
	NetS    string `json:"net_s"`
}

// RealtimeView is the realtime panel with every value already formatted.
type RealtimeView struct {
	Time     string     `json:"time"`
	SH       LegView    `json:"sh"`
	SZ       LegView    `json:"sz"`
	Industry string     `json:"industry"`
	AllStock string     `json:"all_stock"`
	Watch    []WatchRow `json:"watch"`
}

func leg(l model.NorthboundLeg) LegView {
	q := Quota(l.DayAmtRemain, l.DayAmtThreshold)
	return LegView{QuotaPct: q.Pct, Quota: q.Remain, Turnover: Turnover(l.BuySellAmt)}
}

// Realtime builds the realtime panel from a snapshot. Watchlist symbols such
// as "600519.SH" are matched on the code before the dot; symbols missing from
// the snapshot still get a row of placeholders.
func Realtime(snap *model.Snapshot, cfg *model.ConfigView) RealtimeView {
	empty := LegView{QuotaPct: Placeholder, Quota: Placeholder, Turnover: Placeholder}
	v := RealtimeView{Time: Placeholder, SH: empty, SZ: empty, Industry: Placeholder, AllStock: Placeholder}
	if snap == nil {
		return v
	}
	v.Time = BJTime(snap.TSUTC)
	if nb := snap.Northbound; nb != nil {
		v.SH = leg(nb.SH)
		v.SZ = leg(nb.SZ)
	}
	if x, ok := snap.AggByKey["industry_sum:"+cfg.BoardFID(model.Industry)]; ok {
		v.Industry = Money(x)
	}
	if x, ok := snap.AggByKey["allstocks_sum:"+cfg.AggFID()]; ok {
		v.AllStock = Money(x)
	}

	if cfg == nil {
		return v
	}
	byCode := make(map[string]model.FundflowRow, len(snap.Fundflow))
	for _, r := range snap.Fundflow {
		byCode[r.Code] = r
	}
	nan := math.NaN()
	for _, sym := range cfg.Watchlist {
		code, _, _ := strings.Cut(sym, ".")
		r, ok := byCode[code]
		if !ok {
			r = model.FundflowRow{Name: Placeholder, NetMain: nan, NetXL: nan, NetL: nan, NetM: nan, NetS: nan}
		}
		name := r.Name
		if name == "" {
			name = Placeholder
		}
		v.Watch = append(v.Watch, WatchRow{
			Code:    code,
			Name:    name,
			NetMain: Money(r.NetMain),
			NetXL:   Money(r.NetXL),
			NetL:    Money(r.NetL),
			NetM:    Money(r.NetM),
			NetS:    Money(r.NetS),
		})
	}
	return v
}
