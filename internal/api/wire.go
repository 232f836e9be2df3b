package api

import (
	"encoding/json"
	"math"
	"time"

	"OrderFlowDash/internal/market"
	"OrderFlowDash/internal/model"
)

// The backend serialises some records with Go field names and others with
// snake_case tags. encoding/json already matches keys case-insensitively, so
// only spellings that differ beyond case need a second field here.

type pointWire struct {
	TS          string   `json:"ts"`
	TSUTC       string   `json:"ts_utc"`
	TSUTCGo     string   `json:"TSUTC"`
	TradeDate   string   `json:"trade_date"`
	TradeDateGo string   `json:"TradeDate"`
	Price       *float64 `json:"price"`
	Value       *float64 `json:"value"`
}

func (w pointWire) value() (float64, bool) {
	var v *float64
	switch {
	case w.Price != nil:
		v = w.Price
	case w.Value != nil:
		v = w.Value
	default:
		return 0, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseStamp accepts RFC3339 UTC stamps and Beijing-local wall clock text.
func parseStamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, market.Beijing); err == nil {
			return t
		}
	}
	return time.Time{}
}

// normalizePoints converts wire points to the canonical shape, dropping points
// without a finite value. Order is preserved.
func normalizePoints(in []pointWire) []model.Point {
	out := make([]model.Point, 0, len(in))
	for _, w := range in {
		v, ok := w.value()
		if !ok {
			continue
		}
		label := firstNonEmpty(w.TS, w.TradeDate, w.TradeDateGo, w.TSUTC, w.TSUTCGo)
		out = append(out, model.Point{TS: parseStamp(label), Label: label, Value: v})
	}
	return out
}

type legWire struct {
	DayAmtRemain         *float64 `json:"DayAmtRemain"`
	DayAmtRemainSnake    *float64 `json:"day_amt_remain"`
	DayAmtThreshold      *float64 `json:"DayAmtThreshold"`
	DayAmtThresholdSnake *float64 `json:"day_amt_threshold"`
	BuySellAmt           *float64 `json:"BuySellAmt"`
	BuySellAmtSnake      *float64 `json:"buy_sell_amt"`
}

func pick(a, b *float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return math.NaN()
}

func (w legWire) normalize() model.NorthboundLeg {
	return model.NorthboundLeg{
		DayAmtRemain:    pick(w.DayAmtRemain, w.DayAmtRemainSnake),
		DayAmtThreshold: pick(w.DayAmtThreshold, w.DayAmtThresholdSnake),
		BuySellAmt:      pick(w.BuySellAmt, w.BuySellAmtSnake),
	}
}

type northboundWire struct {
	TradeDate   string  `json:"TradeDate"`
	TradeDateSn string  `json:"trade_date"`
	SH          legWire `json:"SH"`
	SZ          legWire `json:"SZ"`
}

type fundflowWire struct {
	Code         string   `json:"Code"`
	Name         string   `json:"Name"`
	NetMain      *float64 `json:"NetMain"`
	NetMainSnake *float64 `json:"net_main"`
	NetXL        *float64 `json:"NetXL"`
	NetXLSnake   *float64 `json:"net_xl"`
	NetL         *float64 `json:"NetL"`
	NetLSnake    *float64 `json:"net_l"`
	NetM         *float64 `json:"NetM"`
	NetMSnake    *float64 `json:"net_m"`
	NetS         *float64 `json:"NetS"`
	NetSSnake    *float64 `json:"net_s"`
}

func (w fundflowWire) normalize() model.FundflowRow {
	return model.FundflowRow{
		Code:    w.Code,
		Name:    w.Name,
		NetMain: pick(w.NetMain, w.NetMainSnake),
		NetXL:   pick(w.NetXL, w.NetXLSnake),
		NetL:    pick(w.NetL, w.NetLSnake),
		NetM:    pick(w.NetM, w.NetMSnake),
		NetS:    pick(w.NetS, w.NetSSnake),
	}
}

type snapshotWire struct {
	TSUTC      string             `json:"ts_utc"`
	TSUTCGo    string             `json:"TSUTC"`
	Northbound *northboundWire    `json:"Northbound"`
	Fundflow   []fundflowWire     `json:"Fundflow"`
	AggByKey   map[string]float64 `json:"agg_by_key"`
	AggByKeyGo map[string]float64 `json:"AggByKey"`
}

func (w snapshotWire) normalize() model.Snapshot {
	snap := model.Snapshot{
		TSUTC:    parseStamp(firstNonEmpty(w.TSUTC, w.TSUTCGo)),
		AggByKey: w.AggByKey,
	}
	if snap.AggByKey == nil {
		snap.AggByKey = w.AggByKeyGo
	}
	if snap.AggByKey == nil {
		snap.AggByKey = map[string]float64{}
	}
	if w.Northbound != nil {
		snap.Northbound = &model.Northbound{
			TradeDate: firstNonEmpty(w.Northbound.TradeDate, w.Northbound.TradeDateSn),
			SH:        w.Northbound.SH.normalize(),
			SZ:        w.Northbound.SZ.normalize(),
		}
	}
	snap.Fundflow = make([]model.FundflowRow, 0, len(w.Fundflow))
	for _, f := range w.Fundflow {
		snap.Fundflow = append(snap.Fundflow, f.normalize())
	}
	return snap
}

type boardWire struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
	Price float64 `json:"price"`
}

// boardListWire accepts both {"rows": [...], "from_live": bool} and a bare array.
type boardListWire struct {
	Rows     []boardWire
	FromLive bool
}

func (w *boardListWire) UnmarshalJSON(b []byte) error {
	var rows []boardWire
	if err := json.Unmarshal(b, &rows); err == nil {
		w.Rows = rows
		return nil
	}
	var obj struct {
		Rows     []boardWire `json:"rows"`
		FromLive bool        `json:"from_live"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	w.Rows = obj.Rows
	w.FromLive = obj.FromLive
	return nil
}

func (w boardListWire) normalize() model.BoardList {
	out := model.BoardList{Rows: make([]model.Board, 0, len(w.Rows)), FromLive: w.FromLive}
	for _, b := range w.Rows {
		if b.Code == "" {
			continue
		}
		name := b.Name
		if name == "" {
			name = "-"
		}
		out.Rows = append(out.Rows, model.Board{Code: b.Code, Name: name, Value: b.Value, Pct: b.Pct, Price: b.Price})
	}
	return out
}

type seriesResponseWire struct {
	Board  string      `json:"board"`
	Name   string      `json:"name"`
	SecID  string      `json:"secid"`
	Points []pointWire `json:"points"`
	Cached bool        `json:"cached"`
	Error  string      `json:"error"`
}
