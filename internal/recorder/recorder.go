package recorder

import (
	"time"

	"OrderFlowDash/internal/model"
)

// SeriesKind separates intraday trends from daily histories.
type SeriesKind string

const (
	KindTrend SeriesKind = "trend"
	KindDaily SeriesKind = "daily"
)

// Recorder persists fetched data so later runs can start warm.
type Recorder interface {
	// RecordSeries stores the latest series of one board, replacing the previous one.
	RecordSeries(kind SeriesKind, boardType model.BoardType, code string, points []model.Point) error
	// RecordRealtime appends one realtime snapshot summary.
	RecordRealtime(snap *model.Snapshot) error
	// RecordBatch appends a finished daily batch job status.
	RecordBatch(status *model.BatchStatus) error
	// LoadSeries returns the series recorded at or after since, keyed by board code.
	LoadSeries(kind SeriesKind, boardType model.BoardType, since time.Time) (map[string][]model.Point, error)
	Close() error
}
