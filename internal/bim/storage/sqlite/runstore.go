// Package sqlite persists job run history for diagnostics. The pipeline
// never reads it back; it exists so operators can inspect past runs.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/cloud2bim/internal/bim"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	stage TEXT NOT NULL,
	percent INTEGER NOT NULL,
	points INTEGER NOT NULL DEFAULT 0,
	slabs INTEGER NOT NULL DEFAULT 0,
	walls INTEGER NOT NULL DEFAULT 0,
	openings INTEGER NOT NULL DEFAULT 0,
	zones INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_job_id ON runs(job_id);
`

// RunStore records finished jobs in a SQLite database.
type RunStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the run database at path and ensures
// the schema exists.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs schema: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts one run record.
func (s *RunStore) RecordRun(rec bim.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (job_id, started_at, finished_at, stage, percent,
			points, slabs, walls, openings, zones, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Stage),
		rec.Percent,
		rec.Points, rec.Slabs, rec.Walls, rec.Openings, rec.Zones,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Runs returns the most recent records, newest first.
func (s *RunStore) Runs(limit int) ([]bim.RunRecord, error) {
	rows, err := s.db.Query(`
		SELECT job_id, started_at, finished_at, stage, percent,
			points, slabs, walls, openings, zones, error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []bim.RunRecord
	for rows.Next() {
		var rec bim.RunRecord
		var started, finished, stage string
		if err := rows.Scan(&rec.JobID, &started, &finished, &stage, &rec.Percent,
			&rec.Points, &rec.Slabs, &rec.Walls, &rec.Openings, &rec.Zones,
			&rec.Error); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		rec.Stage = bim.Stage(stage)
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			rec.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			rec.FinishedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
