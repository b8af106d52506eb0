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

// resultRepo implements ResultRepo. Results are written once and never
// updated.
type resultRepo struct {
	conn dialect.ExecQuerier
}

var resultColumns = []string{
	"session_id", "user_id", "simulado_id", "answers", "correct_answers", "total_questions",
	"score", "elapsed_ms", "passed", "grace_submit", "completed_at",
}

func (r *resultRepo) Save(ctx context.Context, res exam.Result) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers of %s: %w", res.SessionID, err)
	}
	query, args := builder().Insert(tableExamResults).
		Columns(resultColumns...).
		Values(res.SessionID, res.UserID, res.SimuladoID, string(answers), res.CorrectAnswers, res.TotalQuestions,
			res.Score, res.Elapsed.Milliseconds(), boolInt(res.Passed), boolInt(res.GraceSubmit), toMillis(res.CompletedAt)).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("save result of %s: %w", res.SessionID, ErrConflict)
		}
		return fmt.Errorf("save result of %s: %w", res.SessionID, err)
	}
	return nil
}

func (r *resultRepo) ListByUser(ctx context.Context, userID string, limit int) ([]exam.Result, error) {
	sel := builder().
		Select(resultColumns...).
		From(entsql.Table(tableExamResults)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("completed_at"), entsql.Desc("session_id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.query(ctx, sel)
}

func (r *resultRepo) BySession(ctx context.Context, sessionID string) (exam.Result, error) {
	sel := builder().
		Select(resultColumns...).
		From(entsql.Table(tableExamResults)).
		Where(entsql.EQ("session_id", sessionID))
	results, err := r.query(ctx, sel)
	if err != nil {
		return exam.Result{}, err
	}
	if len(results) == 0 {
		return exam.Result{}, fmt.Errorf("result of %s: %w", sessionID, ErrNotFound)
	}
	return results[0], nil
}

func (r *resultRepo) query(ctx context.Context, sel *entsql.Selector) ([]exam.Result, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	var out []exam.Result
	for rows.Next() {
		var (
			res                  exam.Result
			answers              string
			elapsedMs, completed int64
			passed, grace        int
		)
		if err := rows.Scan(&res.SessionID, &res.UserID, &res.SimuladoID, &answers, &res.CorrectAnswers,
			&res.TotalQuestions, &res.Score, &elapsedMs, &passed, &grace, &completed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &res.Answers); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode answers of %s: %w", res.SessionID, err)
		}
		res.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		res.Passed = passed != 0
		res.GraceSubmit = grace != 0
		res.CompletedAt = fromMillis(completed)
		out = append(out, res)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return out, nil
}
