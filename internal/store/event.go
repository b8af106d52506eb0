package store

import (
	"context"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter manages the global monotonic sequence number shared across
// all event types. Exam and review events live in separate tables, so
// per-table auto-increment IDs can't establish cross-type ordering. This
// shared counter assigns a single increasing sequence to every event
// regardless of type.
//
// The builders have no atomic counter primitive, so the increment is raw
// SQL. The mutex serializes within the process; the RETURNING clause makes
// the increment atomic at the database level. Next runs on whatever
// connection it is given, so events appended inside a transaction take
// their sequence number from the same transaction.
type sequenceCounter struct {
	mu sync.Mutex
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(ctx context.Context, conn dialect.ExecQuerier) (*sequenceCounter, error) {
	err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`, []any{}, nil)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	err = conn.Exec(ctx, `INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`, []any{}, nil)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context, conn dialect.ExecQuerier) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var rows entsql.Rows
	err := conn.Query(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
		[]any{}, &rows)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var seq int64
	if err := rows.Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
