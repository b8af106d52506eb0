package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/belmiro-kunga/certquest/internal/exam"
)

// sessionRepo implements SessionRepo. The session body is stored as its
// JSON record; state and start time are mirrored into columns so they can
// be indexed.
type sessionRepo struct {
	conn dialect.ExecQuerier
}

func (r *sessionRepo) Insert(ctx context.Context, s *exam.Session) error {
	rec, err := json.Marshal(s.Record())
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.ID(), err)
	}
	query, args := builder().Insert(tableExamSessions).
		Columns("id", "user_id", "simulado_id", "state", "started_at", "record", "updated_at").
		Values(s.ID(), s.UserID(), s.SimuladoID(), string(s.State()), toMillis(s.StartedAt()), string(rec), toMillis(time.Now())).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("insert session %s: %w", s.ID(), ErrConflict)
		}
		return fmt.Errorf("insert session %s: %w", s.ID(), err)
	}
	return nil
}

func (r *sessionRepo) Update(ctx context.Context, s *exam.Session) error {
	rec, err := json.Marshal(s.Record())
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.ID(), err)
	}
	query, args := builder().Update(tableExamSessions).
		Set("state", string(s.State())).
		Set("record", string(rec)).
		Set("updated_at", toMillis(time.Now())).
		Where(entsql.EQ("id", s.ID())).
		Query()

	var res entsql.Result
	if err := r.conn.Exec(ctx, query, args, &res); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("update session %s: %w", s.ID(), ErrConflict)
		}
		return fmt.Errorf("update session %s: %w", s.ID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID(), err)
	}
	if n == 0 {
		return fmt.Errorf("update session %s: %w", s.ID(), ErrNotFound)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*exam.Session, error) {
	sessions, err := r.query(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sessions[0], nil
}

func (r *sessionRepo) Active(ctx context.Context, userID string) ([]*exam.Session, error) {
	return r.query(ctx, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("state", string(exam.StateInProgress)),
	))
}

func (r *sessionRepo) Unscored(ctx context.Context, userID string) ([]*exam.Session, error) {
	sessions, err := r.query(ctx, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.In("state", string(exam.StateInProgress), string(exam.StateExpired)),
	))
	if err != nil {
		return nil, err
	}
	out := sessions[:0]
	for _, s := range sessions {
		if !s.Scored() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *sessionRepo) ActiveOnSimulado(ctx context.Context, simuladoID string) ([]*exam.Session, error) {
	return r.query(ctx, entsql.And(
		entsql.EQ("simulado_id", simuladoID),
		entsql.EQ("state", string(exam.StateInProgress)),
	))
}

func (r *sessionRepo) query(ctx context.Context, where *entsql.Predicate) ([]*exam.Session, error) {
	query, args := builder().
		Select("record").
		From(entsql.Table(tableExamSessions)).
		Where(where).
		OrderBy(entsql.Asc("started_at"), entsql.Asc("id")).
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	var out []*exam.Session
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var rec exam.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode session: %w", err)
		}
		s, err := exam.RestoreSession(rec)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, s)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return out, nil
}
