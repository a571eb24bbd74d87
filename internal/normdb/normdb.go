// Package normdb persists bench runs and their per-window statistics
// to SQLite so runs can be compared and charted after the fact.
package normdb

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/streamnorm/internal/monitoring"
	"github.com/banshee-data/streamnorm/norm"
)

// DB wraps the SQLite handle with the run-recording schema.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the run database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			variant TEXT NOT NULL,
			window INTEGER NOT NULL,
			simd INTEGER NOT NULL,
			epsilon DOUBLE NOT NULL,
			created_unix INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS window_stats (
			run_id TEXT NOT NULL,
			window_index INTEGER NOT NULL,
			mean DOUBLE NOT NULL,
			variance DOUBLE NOT NULL,
			mean_square DOUBLE NOT NULL,
			PRIMARY KEY (run_id, window_index),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Run describes one recorded pipeline run.
type Run struct {
	ID      string
	Variant string
	Window  int
	SIMD    int
	Epsilon float64
	Created time.Time
}

// RecordRun inserts a new run row and returns its generated ID.
func (db *DB) RecordRun(variant string, cfg norm.Config) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		"INSERT INTO runs (run_id, variant, window, simd, epsilon, created_unix) VALUES (?, ?, ?, ?, ?, ?)",
		id, variant, cfg.Window, cfg.SIMD, cfg.Epsilon, time.Now().Unix(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Runs returns all recorded runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(
		"SELECT run_id, variant, window, simd, epsilon, created_unix FROM runs ORDER BY created_unix DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Variant, &r.Window, &r.SIMD, &r.Epsilon, &created); err != nil {
			return nil, err
		}
		r.Created = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordWindowStats inserts the statistic of one completed window.
func (db *DB) RecordWindowStats(runID string, ws norm.WindowStats) error {
	_, err := db.Exec(
		"INSERT INTO window_stats (run_id, window_index, mean, variance, mean_square) VALUES (?, ?, ?, ?, ?)",
		runID, ws.Index, ws.Mean, ws.Variance, ws.MeanSquare,
	)
	return err
}

// WindowStats returns the recorded statistics for a run in window order.
func (db *DB) WindowStats(runID string) ([]norm.WindowStats, error) {
	rows, err := db.Query(
		"SELECT window_index, mean, variance, mean_square FROM window_stats WHERE run_id = ? ORDER BY window_index",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []norm.WindowStats
	for rows.Next() {
		var ws norm.WindowStats
		if err := rows.Scan(&ws.Index, &ws.Mean, &ws.Variance, &ws.MeanSquare); err != nil {
			return nil, err
		}
		stats = append(stats, ws)
	}
	return stats, rows.Err()
}

// Recorder returns an OnWindow callback that persists each window's
// statistic under runID. Insert failures are logged rather than
// propagated so a storage hiccup cannot take down the stage that
// produced the statistic.
func (db *DB) Recorder(runID string) func(norm.WindowStats) {
	return func(ws norm.WindowStats) {
		if err := db.RecordWindowStats(runID, ws); err != nil {
			monitoring.Logf("normdb: record window %d for run %s: %v", ws.Index, runID, err)
		}
	}
}
