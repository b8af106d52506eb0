package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableSimulados    = "simulados"
	tableQuestoes     = "questoes"
	tableExamSessions = "exam_sessions"
	tableExamResults  = "exam_results"
	tableUserPlans    = "user_plans"
	tableExamAttempts = "exam_attempts"
	tableReviewStates = "review_states"
	tableExamEvents   = "exam_events"
	tableReviewEvents = "review_events"
)

// Timestamps are stored as INTEGER unix milliseconds in UTC.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS simulados (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		difficulty TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		passing_threshold INTEGER NOT NULL DEFAULT 0,
		imported_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questoes (
		simulado_id TEXT NOT NULL REFERENCES simulados(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		alternatives TEXT NOT NULL,
		correct_answer TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (simulado_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS exam_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		simulado_id TEXT NOT NULL REFERENCES simulados(id),
		state TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		record TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS exam_sessions_one_in_progress
		ON exam_sessions (user_id, simulado_id) WHERE state = 'in_progress'`,
	`CREATE INDEX IF NOT EXISTS exam_sessions_user ON exam_sessions (user_id, started_at)`,
	`CREATE TABLE IF NOT EXISTS exam_results (
		session_id TEXT PRIMARY KEY REFERENCES exam_sessions(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		simulado_id TEXT NOT NULL,
		answers TEXT NOT NULL,
		correct_answers INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		elapsed_ms INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		grace_submit INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exam_results_user ON exam_results (user_id, completed_at)`,
	`CREATE TABLE IF NOT EXISTS user_plans (
		user_id TEXT PRIMARY KEY,
		plan TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exam_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		attempted_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exam_attempts_user ON exam_attempts (user_id, attempted_at)`,
	`CREATE TABLE IF NOT EXISTS review_states (
		user_id TEXT NOT NULL,
		card_id TEXT NOT NULL,
		status TEXT NOT NULL,
		interval_days INTEGER NOT NULL,
		ease_factor REAL NOT NULL,
		quality_sum INTEGER NOT NULL,
		consecutive_good INTEGER NOT NULL,
		last_reviewed_at INTEGER NOT NULL,
		next_due_at INTEGER NOT NULL,
		total_reviews INTEGER NOT NULL,
		perfect_reviews INTEGER NOT NULL,
		PRIMARY KEY (user_id, card_id)
	)`,
	`CREATE INDEX IF NOT EXISTS review_states_due ON review_states (user_id, next_due_at)`,
	`CREATE TABLE IF NOT EXISTS exam_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		question_id TEXT NOT NULL DEFAULT '',
		alternative_id TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		remaining_secs INTEGER NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS exam_events_session ON exam_events (session_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS review_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		card_id TEXT NOT NULL,
		quality INTEGER NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		interval_days INTEGER NOT NULL,
		ease_factor REAL NOT NULL,
		next_due_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_events_card ON review_events (user_id, card_id, sequence)`,
}

// migrate creates every table and index that does not exist yet.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range migrations {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
