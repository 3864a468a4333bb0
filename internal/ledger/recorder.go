// Package ledger persists a record of every dispatched operation so the
// history and stats endpoints can report on past activity. Recording is
// observational: a ledger failure never fails the operation it describes.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"multitool/internal/infra"
)

// Entry is one recorded operation.
type Entry struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	Operation     string    `json:"operation"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	DurationMS    int64     `json:"duration_ms"`
	ArtifactCount int       `json:"artifact_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summary aggregates recorded operations per (category, operation) pair.
type Summary struct {
	Category      string  `json:"category"`
	Operation     string  `json:"operation"`
	Total         int64   `json:"total"`
	Succeeded     int64   `json:"succeeded"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

type Recorder struct {
	SQL infra.SQLExecutor
}

func NewRecorder(sql infra.SQLExecutor) *Recorder {
	return &Recorder{SQL: sql}
}

// Ensure creates the operations table if it does not exist yet.
func (r *Recorder) Ensure(ctx context.Context) error {
	if _, err := r.SQL.Exec(ctx, sqlEnsureSchema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Record inserts one entry. The caller supplies everything except the id,
// which is generated here.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	_, err := r.SQL.Exec(ctx, sqlInsertOperation,
		uuid.NewString(), e.Category, e.Operation, e.Success, e.Message, e.DurationMS, e.ArtifactCount)
	if err != nil {
		return fmt.Errorf("record operation: %w", err)
	}
	return nil
}

// Recent returns the newest entries, capped at limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.SQL.Query(ctx, sqlRecentOperations, limit)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Category, &e.Operation, &e.Success, &e.Message, &e.DurationMS, &e.ArtifactCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operation row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation rows: %w", err)
	}
	return entries, nil
}

// Summarize returns per-operation aggregates over the whole ledger.
func (r *Recorder) Summarize(ctx context.Context) ([]Summary, error) {
	rows, err := r.SQL.Query(ctx, sqlOperationSummary)
	if err != nil {
		return nil, fmt.Errorf("summarize operations: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Category, &s.Operation, &s.Total, &s.Succeeded, &s.AvgDurationMS); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summaries, nil
}
