package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"xppkb/internal/symbols"
)

// IndexRun records one bulk indexing pass.
type IndexRun struct {
	RunID         string    `json:"runId" yaml:"runId"`
	StartedAt     time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt" yaml:"finishedAt"`
	Models        []string  `json:"models,omitempty" yaml:"models,omitempty"`
	Files         int       `json:"files" yaml:"files"`
	Symbols       int       `json:"symbols" yaml:"symbols"`
	ParseFailures int       `json:"parseFailures" yaml:"parseFailures"`
	Status        string    `json:"status" yaml:"status"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// runTimeLayout is fixed-width so that stored timestamps sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Index run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RecordIndexRun stores the outcome of an indexing pass.
func (db *DB) RecordIndexRun(ctx context.Context, run IndexRun) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO index_runs
				(run_id, started_at, finished_at, models, files, symbols, parse_failures, status, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.RunID,
			run.StartedAt.UTC().Format(runTimeLayout),
			run.FinishedAt.UTC().Format(runTimeLayout),
			symbols.JoinList(run.Models), run.Files, run.Symbols, run.ParseFailures,
			run.Status, run.Error)
		if err != nil {
			return fmt.Errorf("failed to record index run: %w", classify(err))
		}
		return nil
	})
}

// LatestIndexRun returns the most recently finished run, or nil if the store
// has never been indexed.
func (db *DB) LatestIndexRun(ctx context.Context) (*IndexRun, error) {
	var (
		run               IndexRun
		started, finished string
		models            string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, models, files, symbols, parse_failures, status, error
		FROM index_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&run.RunID, &started, &finished, &models, &run.Files, &run.Symbols,
		&run.ParseFailures, &run.Status, &run.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index run: %w", classify(err))
	}

	if run.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at format: %w", err)
	}
	if run.FinishedAt, err = time.Parse(runTimeLayout, finished); err != nil {
		return nil, fmt.Errorf("invalid finished_at format: %w", err)
	}
	run.Models = symbols.SplitList(models)
	return &run, nil
}

// Stats summarizes store contents.
type Stats struct {
	Total   int            `json:"total" yaml:"total"`
	ByKind  map[string]int `json:"byKind" yaml:"byKind"`
	ByModel map[string]int `json:"byModel" yaml:"byModel"`
	LastRun *IndexRun      `json:"lastRun,omitempty" yaml:"lastRun,omitempty"`
}

// Stats counts symbols by kind and model.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByKind:  make(map[string]int),
		ByModel: make(map[string]int),
	}

	if err := db.countInto(ctx, "kind", st.ByKind); err != nil {
		return nil, err
	}
	if err := db.countInto(ctx, "model", st.ByModel); err != nil {
		return nil, err
	}
	for _, n := range st.ByKind {
		st.Total += n
	}

	run, err := db.LatestIndexRun(ctx)
	if err != nil {
		return nil, err
	}
	st.LastRun = run
	return st, nil
}

func (db *DB) countInto(ctx context.Context, column string, dst map[string]int) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM symbols GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("failed to count symbols by %s: %w", column, classify(err))
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return classify(rows.Err())
}
