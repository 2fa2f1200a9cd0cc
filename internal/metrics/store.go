package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ai-diet-planner/internal/shared"
)

const timeLayout = "2006-01-02 15:04:05"

// OutcomeOK marks a generation that produced a plan.
const OutcomeOK = "ok"

// ExecutionMetric records metadata for a single plan generation.
type ExecutionMetric struct {
	AgentName        string
	Surface          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Outcome          string
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	outcome := m.Outcome
	if outcome == "" {
		outcome = OutcomeOK
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_metrics
			(agent_name, surface, model, prompt_tokens, completion_tokens, latency_ms, outcome, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Surface, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, outcome,
		ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordMeta records a successful generation from its metadata.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	return s.Record(ctx, MapUsage(meta))
}

// RecordFailure records a generation that ended with a classified error.
func (s *Store) RecordFailure(ctx context.Context, meta shared.AgentMeta, kind shared.Kind) error {
	m := MapUsage(meta)
	m.Outcome = kind.String()
	return s.Record(ctx, m)
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Failures        int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(CASE WHEN outcome != ? THEN 1 ELSE 0 END), 0)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, OutcomeOK, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalExecution, &u.TotalPrompt, &u.TotalCompletion, &u.Failures); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timeLayout)

	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage converts generation metadata to an ExecutionMetric.
func MapUsage(meta shared.AgentMeta) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        meta.AgentName,
		Surface:          meta.Surface,
		Model:            meta.Usage.Model,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		LatencyMS:        meta.Latency.Milliseconds(),
		Outcome:          OutcomeOK,
		Timestamp:        time.Now().UTC(),
	}
}
