package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"OrderFlowDash/internal/model"
)

// SQLiteRecorder persists series and snapshots to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while a refresh writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS board_series (
			kind        TEXT NOT NULL,
			board_type  TEXT NOT NULL,
			code        TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			point_count INTEGER NOT NULL,
			last_value  REAL,
			points      TEXT NOT NULL,
			PRIMARY KEY (kind, board_type, code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_ts ON board_series(timestamp)`,

		`CREATE TABLE IF NOT EXISTS realtime_snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			ts_utc        INTEGER,
			sh_remain     REAL,
			sh_threshold  REAL,
			sh_turnover   REAL,
			sz_remain     REAL,
			sz_threshold  REAL,
			sz_turnover   REAL,
			fundflow_rows INTEGER,
			agg           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_realtime_ts ON realtime_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS batch_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			board_type TEXT,
			started_at TEXT,
			total      INTEGER,
			ok         INTEGER,
			failed     INTEGER,
			last_err   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_ts ON batch_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSeries(kind SeriesKind, boardType model.BoardType, code string, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}
	body, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT INTO board_series
		(kind, board_type, code, timestamp, point_count, last_value, points)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(kind, board_type, code) DO UPDATE SET
			timestamp = excluded.timestamp,
			point_count = excluded.point_count,
			last_value = excluded.last_value,
			points = excluded.points`,
		string(kind), string(boardType), code, time.Now().Unix(),
		len(points), points[len(points)-1].Value, string(body),
	)
	return err
}

func (r *SQLiteRecorder) RecordRealtime(snap *model.Snapshot) error {
	if snap == nil {
		return nil
	}
	var sh, sz model.NorthboundLeg
	if nb := snap.Northbound; nb != nil {
		sh, sz = nb.SH, nb.SZ
	}
	agg, err := json.Marshal(finiteAgg(snap.AggByKey))
	if err != nil {
		return fmt.Errorf("encode agg: %w", err)
	}
	var tsUTC any
	if !snap.TSUTC.IsZero() {
		tsUTC = snap.TSUTC.Unix()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT INTO realtime_snapshots
		(timestamp, ts_utc, sh_remain, sh_threshold, sh_turnover,
		 sz_remain, sz_threshold, sz_turnover, fundflow_rows, agg)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), tsUTC,
		nullable(sh.DayAmtRemain), nullable(sh.DayAmtThreshold), nullable(sh.BuySellAmt),
		nullable(sz.DayAmtRemain), nullable(sz.DayAmtThreshold), nullable(sz.BuySellAmt),
		len(snap.Fundflow), string(agg),
	)
	return err
}

func (r *SQLiteRecorder) RecordBatch(status *model.BatchStatus) error {
	if status == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO batch_runs
		(timestamp, board_type, started_at, total, ok, failed, last_err)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), status.Type, status.StartedAt,
		status.Total, status.OK, status.Failed, status.LastErr,
	)
	return err
}

func (r *SQLiteRecorder) LoadSeries(kind SeriesKind, boardType model.BoardType, since time.Time) (map[string][]model.Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT code, points FROM board_series
		WHERE kind = ? AND board_type = ? AND timestamp >= ?`,
		string(kind), string(boardType), since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Point)
	for rows.Next() {
		var code, body string
		if err := rows.Scan(&code, &body); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		var pts []model.Point
		if err := json.Unmarshal([]byte(body), &pts); err != nil {
			log.Printf("[WARN] skip corrupt series %s/%s/%s: %v", kind, boardType, code, err)
			continue
		}
		out[code] = pts
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func finiteAgg(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
