package model

import "time"

// NorthboundLeg is one side (SH or SZ) of the northbound connect quota.
type NorthboundLeg struct {
	DayAmtRemain    float64 `json:"day_amt_remain"`
	DayAmtThreshold float64 `json:"day_amt_threshold"`
	BuySellAmt      float64 `json:"buy_sell_amt"`
}

// Northbound holds both legs of the northbound quota.
type Northbound struct {
	TradeDate string        `json:"trade_date"`
	SH        NorthboundLeg `json:"sh"`
	SZ        NorthboundLeg `json:"sz"`
}

// FundflowRow is the realtime fund flow of one watched stock.
type FundflowRow struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	NetMain float64 `json:"net_main"`
	NetXL   float64 `json:"net_xl"`
	NetL    float64 `json:"net_l"`
	NetM    float64 `json:"net_m"`
	NetS    float64 `json:"net_s"`
}

// Snapshot is the realtime market snapshot.
type Snapshot struct {
	TSUTC      time.Time          `json:"ts_utc"`
	Northbound *Northbound        `json:"northbound,omitempty"`
	Fundflow   []FundflowRow      `json:"fundflow"`
	AggByKey   map[string]float64 `json:"agg_by_key"`
}

// BatchStatus reports the progress of a server-side daily history batch.
type BatchStatus struct {
	Type      string `json:"type"`
	Running   bool   `json:"running"`
	StartedAt string `json:"started_at"`
	UpdatedAt string `json:"updated_at"`
	Total     int    `json:"total"`
	OK        int    `json:"ok"`
	Failed    int    `json:"failed"`
	LastErr   string `json:"last_err,omitempty"`
}

// Done returns how many boards have been processed either way.
func (s BatchStatus) Done() int {
	return s.OK + s.Failed
}
