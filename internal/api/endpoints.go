package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"OrderFlowDash/internal/model"
)

// Series is a normalised per-board (or per-secid) response.
type Series struct {
	Board  string
	Name   string
	Points []model.Point
	Cached bool
	// Err carries a backend-side partial failure reported alongside data.
	Err string
}

func (w seriesResponseWire) normalize() *Series {
	board := w.Board
	if board == "" {
		board = w.SecID
	}
	return &Series{
		Board:  board,
		Name:   w.Name,
		Points: normalizePoints(w.Points),
		Cached: w.Cached,
		Err:    w.Error,
	}
}

// Config returns the backend configuration.
func (c *Client) Config(ctx context.Context) (*model.ConfigView, error) {
	var cfg model.ConfigView
	if err := c.GetJSON(ctx, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig applies a partial update and returns the resulting configuration.
func (c *Client) UpdateConfig(ctx context.Context, patch model.ConfigPatch) (*model.ConfigView, error) {
	var cfg model.ConfigView
	if _, err := c.PostJSON(ctx, "/api/config", nil, patch, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Version returns the backend build stamp (last commit time).
func (c *Client) Version(ctx context.Context) (string, error) {
	var v struct {
		LastCommitTime string `json:"last_commit_time"`
	}
	if err := c.GetJSON(ctx, "/api/version", nil, &v); err != nil {
		return "", err
	}
	return v.LastCommitTime, nil
}

// Realtime returns the latest realtime snapshot.
func (c *Client) Realtime(ctx context.Context) (*model.Snapshot, error) {
	var w snapshotWire
	if err := c.GetJSON(ctx, "/api/realtime", nil, &w); err != nil {
		return nil, err
	}
	snap := w.normalize()
	return &snap, nil
}

// Boards lists boards of type t ordered by the backend.
func (c *Client) Boards(ctx context.Context, t model.BoardType, fid string, limit int) (*model.BoardList, error) {
	q := url.Values{}
	q.Set("type", string(t))
	q.Set("fid", fid)
	q.Set("limit", strconv.Itoa(limit))
	var w boardListWire
	if err := c.GetJSON(ctx, "/api/boards", q, &w); err != nil {
		return nil, err
	}
	list := w.normalize()
	return &list, nil
}

// BoardTrend returns today's intraday trend of a board.
func (c *Client) BoardTrend(ctx context.Context, board string) (*Series, error) {
	q := url.Values{}
	q.Set("board", board)
	var w seriesResponseWire
	if err := c.GetJSON(ctx, "/api/board/trend", q, &w); err != nil {
		return nil, err
	}
	return w.normalize(), nil
}

// BoardDaily returns the daily fund flow history of a board.
func (c *Client) BoardDaily(ctx context.Context, board string, t model.BoardType, fid string, limit int, refresh bool) (*Series, error) {
	q := url.Values{}
	q.Set("board", board)
	q.Set("type", string(t))
	q.Set("fid", fid)
	q.Set("limit", strconv.Itoa(limit))
	if refresh {
		q.Set("refresh", "1")
	}
	var w seriesResponseWire
	if err := c.GetJSON(ctx, "/api/board/daily", q, &w); err != nil {
		return nil, err
	}
	return w.normalize(), nil
}

// SecIDTrend returns today's intraday trend of an index or stock secid (e.g. 1.000001).
func (c *Client) SecIDTrend(ctx context.Context, secid string) (*Series, error) {
	q := url.Values{}
	q.Set("secid", secid)
	var w seriesResponseWire
	if err := c.GetJSON(ctx, "/api/secid/trend", q, &w); err != nil {
		return nil, err
	}
	return w.normalize(), nil
}

// BatchStatus reports the daily history batch job of type t.
func (c *Client) BatchStatus(ctx context.Context, t model.BoardType) (*model.BatchStatus, error) {
	q := url.Values{}
	q.Set("type", string(t))
	var s model.BatchStatus
	if err := c.GetJSON(ctx, "/api/board/daily/batch", q, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StartBatch starts the daily history batch job of type t.
// The backend answers 409 when a job is already running.
func (c *Client) StartBatch(ctx context.Context, t model.BoardType, limit int) (*model.BatchStatus, error) {
	q := url.Values{}
	q.Set("type", string(t))
	q.Set("limit", strconv.Itoa(limit))
	var s model.BatchStatus
	if _, err := c.PostJSON(ctx, "/api/board/daily/batch", q, struct{}{}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HistoryKind selects intraday snapshots or daily rows.
type HistoryKind string

const (
	KindRT    HistoryKind = "rt"
	KindDaily HistoryKind = "daily"
)

func (c *Client) history(ctx context.Context, path string, q url.Values) ([]model.Point, error) {
	var rows []pointWire
	if err := c.GetJSON(ctx, path, q, &rows); err != nil {
		return nil, err
	}
	return normalizePoints(rows), nil
}

// MarketAggHistory returns the history of a market aggregate (industry_sum, allstocks_sum).
func (c *Client) MarketAggHistory(ctx context.Context, source, fid string, kind HistoryKind, limit int) ([]model.Point, error) {
	if source == "" || fid == "" {
		return nil, fmt.Errorf("market agg history: source and fid are required")
	}
	q := url.Values{}
	q.Set("source", source)
	q.Set("fid", fid)
	q.Set("kind", string(kind))
	q.Set("limit", strconv.Itoa(limit))
	return c.history(ctx, "/api/history/market_agg", q)
}

// BoardSumHistory returns the history of the summed board values of type t.
func (c *Client) BoardSumHistory(ctx context.Context, t model.BoardType, fid string, kind HistoryKind, limit int) ([]model.Point, error) {
	q := url.Values{}
	q.Set("type", string(t))
	q.Set("fid", fid)
	q.Set("kind", string(kind))
	q.Set("limit", strconv.Itoa(limit))
	return c.history(ctx, "/api/history/board_sum", q)
}

// BoardPriceSum returns today's intraday sum of board prices of type t.
func (c *Client) BoardPriceSum(ctx context.Context, t model.BoardType, fid string, limit int) ([]model.Point, error) {
	q := url.Values{}
	q.Set("type", string(t))
	q.Set("fid", fid)
	q.Set("limit", strconv.Itoa(limit))
	return c.history(ctx, "/api/history/board_price_sum", q)
}
