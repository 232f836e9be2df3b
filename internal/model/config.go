package model

import (
	"encoding/json"
	"reflect"
)

// BoardConfig is the backend's collection setting for one board type.
type BoardConfig struct {
	Enabled         bool   `json:"enabled"`
	IntervalSeconds int    `json:"interval_seconds"`
	FS              string `json:"fs"`
	FID             string `json:"fid"`
	CollectAll      bool   `json:"collect_all"`
	TopSize         int    `json:"top_size"`
}

// MarketAggConfig is the backend's all-stock aggregation setting.
type MarketAggConfig struct {
	Enabled         bool   `json:"enabled"`
	IntervalSeconds int    `json:"interval_seconds"`
	FS              string `json:"fs"`
	FID             string `json:"fid"`
	Concurrency     int    `json:"concurrency"`
}

// BoardTrendConfig is the board trend refresh setting stored by the backend.
type BoardTrendConfig struct {
	BatchSize                 int    `json:"batch_size"`
	Concurrency               int    `json:"concurrency"`
	GapMS                     int    `json:"gap_ms"`
	AfterCloseMode            string `json:"after_close_mode,omitempty"`
	AfterCloseIntervalSeconds int    `json:"after_close_interval_seconds,omitempty"`
}

// ConfigView is the backend configuration as served by /api/config.
type ConfigView struct {
	DBPath    string   `json:"db_path"`
	Watchlist []string `json:"watchlist"`

	Realtime struct {
		IntervalSeconds        int  `json:"interval_seconds"`
		OnlyDuringTradingHours bool `json:"only_during_trading_hours"`
	} `json:"realtime"`

	Toplist struct {
		Size int    `json:"size"`
		FS   string `json:"fs"`
		FID  string `json:"fid"`
	} `json:"toplist"`

	Industry   BoardConfig       `json:"industry"`
	Concept    BoardConfig       `json:"concept"`
	MarketAgg  MarketAggConfig   `json:"market_agg"`
	BoardTrend *BoardTrendConfig `json:"board_trend,omitempty"`
}

// Board returns the collection setting of the given board type.
func (c *ConfigView) Board(t BoardType) BoardConfig {
	if c == nil {
		return BoardConfig{}
	}
	if t == Concept {
		return c.Concept
	}
	return c.Industry
}

// BoardFID returns the field id used for t, defaulting to main net inflow.
func (c *ConfigView) BoardFID(t BoardType) string {
	if fid := c.Board(t).FID; fid != "" {
		return fid
	}
	return "f62"
}

// AggFID returns the field id used for market aggregates.
func (c *ConfigView) AggFID() string {
	if c != nil && c.MarketAgg.FID != "" {
		return c.MarketAgg.FID
	}
	return "f62"
}

// ConfigPatch is a partial settings update.
// Fields are pointers so "not set" can be distinguished from zero values.
// A nil Watchlist is left out and leaves the list alone; an empty one is
// sent as [] and clears it.
type ConfigPatch struct {
	Watchlist []string `json:"watchlist"`

	RealtimeIntervalSeconds *int  `json:"realtime_interval_seconds,omitempty"`
	OnlyDuringTradingHours  *bool `json:"only_during_trading_hours,omitempty"`

	ToplistSize *int `json:"toplist_size,omitempty"`

	IndustryEnabled         *bool `json:"industry_enabled,omitempty"`
	IndustryIntervalSeconds *int  `json:"industry_interval_seconds,omitempty"`

	ConceptEnabled         *bool `json:"concept_enabled,omitempty"`
	ConceptIntervalSeconds *int  `json:"concept_interval_seconds,omitempty"`
	ConceptCollectAll      *bool `json:"concept_collect_all,omitempty"`
	ConceptTopSize         *int  `json:"concept_top_size,omitempty"`

	MarketAggEnabled         *bool `json:"market_agg_enabled,omitempty"`
	MarketAggIntervalSeconds *int  `json:"market_agg_interval_seconds,omitempty"`
	MarketAggConcurrency     *int  `json:"market_agg_concurrency,omitempty"`

	BoardTrendBatchSize                 *int    `json:"board_trend_batch_size,omitempty"`
	BoardTrendConcurrency               *int    `json:"board_trend_concurrency,omitempty"`
	BoardTrendGapMS                     *int    `json:"board_trend_gap_ms,omitempty"`
	BoardTrendAfterCloseMode            *string `json:"board_trend_after_close_mode,omitempty"`
	BoardTrendAfterCloseIntervalSeconds *int    `json:"board_trend_after_close_interval_seconds,omitempty"`
}

// MarshalJSON sends only the fields that are set.
func (p ConfigPatch) MarshalJSON() ([]byte, error) {
	type plain ConfigPatch
	if p.Watchlist != nil {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		Watchlist []string `json:"watchlist,omitempty"`
		plain
	}{plain: plain(p)})
}

// Empty reports whether the patch sets nothing.
func (p ConfigPatch) Empty() bool {
	return reflect.ValueOf(p).IsZero()
}
