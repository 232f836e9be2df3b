package recorder

import (
	"log"
	"time"

	"OrderFlowDash/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSeries(_ SeriesKind, _ model.BoardType, _ string, _ []model.Point) error {
	return nil
}
func (n *NoopRecorder) RecordRealtime(_ *model.Snapshot) error { return nil }
func (n *NoopRecorder) RecordBatch(_ *model.BatchStatus) error { return nil }
func (n *NoopRecorder) LoadSeries(_ SeriesKind, _ model.BoardType, _ time.Time) (map[string][]model.Point, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }

// Open returns a SQLite recorder for path, or a NoopRecorder when path is
// empty or the database cannot be opened.
func Open(path string) Recorder {
	if path == "" {
		return NewNoopRecorder()
	}
	r, err := NewSQLiteRecorder(path)
	if err != nil {
		log.Printf("[WARN] sqlite recorder unavailable, continuing without history: %v", err)
		return NewNoopRecorder()
	}
	return r
}
