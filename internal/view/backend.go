package view

import (
	"context"

	"OrderFlowDash/internal/api"
	"OrderFlowDash/internal/model"
)

// Backend is the part of the order-flow API the dashboard reads and writes.
// *api.Client implements it.
type Backend interface {
	Config(ctx context.Context) (*model.ConfigView, error)
	UpdateConfig(ctx context.Context, patch model.ConfigPatch) (*model.ConfigView, error)
	Version(ctx context.Context) (string, error)
	Realtime(ctx context.Context) (*model.Snapshot, error)
	Boards(ctx context.Context, t model.BoardType, fid string, limit int) (*model.BoardList, error)
	BoardTrend(ctx context.Context, board string) (*api.Series, error)
	BoardDaily(ctx context.Context, board string, t model.BoardType, fid string, limit int, refresh bool) (*api.Series, error)
	SecIDTrend(ctx context.Context, secid string) (*api.Series, error)
	BatchStatus(ctx context.Context, t model.BoardType) (*model.BatchStatus, error)
	StartBatch(ctx context.Context, t model.BoardType, limit int) (*model.BatchStatus, error)
	MarketAggHistory(ctx context.Context, source, fid string, kind api.HistoryKind, limit int) ([]model.Point, error)
	BoardSumHistory(ctx context.Context, t model.BoardType, fid string, kind api.HistoryKind, limit int) ([]model.Point, error)
	BoardPriceSum(ctx context.Context, t model.BoardType, fid string, limit int) ([]model.Point, error)
}

var _ Backend = (*api.Client)(nil)
