package store

import (
	"context"
	"fmt"
	"time"
)

// TransformStat describes one transform request.
type TransformStat struct {
	Operation   string        `json:"operation"`
	Provider    string        `json:"provider"`
	Model       string        `json:"model,omitempty"`
	InputChars  int           `json:"inputChars"`
	OutputChars int           `json:"outputChars"`
	Duration    time.Duration `json:"durationMs"`
	ErrorKind   string        `json:"errorKind,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// OperationSummary aggregates transforms for one operation.
type OperationSummary struct {
	Operation   string        `json:"operation"`
	Count       int           `json:"count"`
	Failures    int           `json:"failures"`
	InputChars  int64         `json:"inputChars"`
	OutputChars int64         `json:"outputChars"`
	AvgDuration time.Duration `json:"avgDurationMs"`
}

// Summary aggregates usage since a point in time.
type Summary struct {
	Since      time.Time          `json:"since"`
	Total      int                `json:"total"`
	Failures   int                `json:"failures"`
	Operations []OperationSummary `json:"operations"`
	Plans      map[string]int     `json:"plans"`
}

// RecordTransform stores one transform stat. A zero CreatedAt means now.
func (db *DB) RecordTransform(ctx context.Context, s TransformStat) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO transform_stats
		   (operation, provider, model, input_chars, output_chars, duration_ms, error_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Operation, s.Provider, s.Model, s.InputChars, s.OutputChars,
		s.Duration.Milliseconds(), s.ErrorKind, s.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("recording transform stat: %w", err)
	}
	return nil
}

// RecordPlan stores the outcome of an executed agent plan.
func (db *DB) RecordPlan(ctx context.Context, action, status string) error {
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO plan_stats (action, status, created_at) VALUES (?, ?, ?)`,
		action, status, time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("recording plan stat: %w", err)
	}
	return nil
}

// Summary aggregates stats recorded at or after since. Operations are
// ordered by count, most used first.
func (db *DB) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	cutoff := since.UTC().Format(time.DateTime)

	rows, err := db.sql.QueryContext(ctx,
		`SELECT operation,
		        COUNT(*),
		        SUM(CASE WHEN error_kind != '' THEN 1 ELSE 0 END),
		        SUM(input_chars),
		        SUM(output_chars),
		        CAST(AVG(duration_ms) AS INTEGER)
		 FROM transform_stats
		 WHERE created_at >= ?
		 GROUP BY operation
		 ORDER BY COUNT(*) DESC, operation`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transform stats: %w", err)
	}
	defer rows.Close()

	sum := &Summary{Since: since, Operations: []OperationSummary{}, Plans: map[string]int{}}
	for rows.Next() {
		var op OperationSummary
		var avgMs int64
		if err := rows.Scan(&op.Operation, &op.Count, &op.Failures, &op.InputChars, &op.OutputChars, &avgMs); err != nil {
			return nil, fmt.Errorf("scanning transform stats: %w", err)
		}
		op.AvgDuration = time.Duration(avgMs) * time.Millisecond
		sum.Total += op.Count
		sum.Failures += op.Failures
		sum.Operations = append(sum.Operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	planRows, err := db.sql.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM plan_stats WHERE created_at >= ? GROUP BY status`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("querying plan stats: %w", err)
	}
	defer planRows.Close()

	for planRows.Next() {
		var status string
		var n int
		if err := planRows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning plan stats: %w", err)
		}
		sum.Plans[status] = n
	}
	return sum, planRows.Err()
}
