package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/belmiro-kunga/certquest/internal/quota"
)

// quotaRepo implements QuotaRepo. Attempts are kept as one row each so the
// sliding window can be evaluated at any instant.
type quotaRepo struct {
	conn dialect.ExecQuerier
}

func (r *quotaRepo) GetQuota(ctx context.Context, userID string, now time.Time, cfg quota.Config) (*quota.AttemptQuota, error) {
	plan, err := r.plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := quota.New(userID, plan, cfg)
	if err != nil {
		return nil, fmt.Errorf("quota for %s: %w", userID, err)
	}

	query, args := builder().
		Select("attempted_at").
		From(entsql.Table(tableExamAttempts)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.GT("attempted_at", toMillis(now.Add(-cfg.Window))),
			entsql.LTE("attempted_at", toMillis(now)),
		)).
		OrderBy(entsql.Asc("attempted_at")).
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query attempts of %s: %w", userID, err)
	}
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		q.Attempts = append(q.Attempts, fromMillis(ms))
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query attempts of %s: %w", userID, err)
	}
	return q, nil
}

// plan returns the user's plan, free when none was ever set.
func (r *quotaRepo) plan(ctx context.Context, userID string) (quota.Plan, error) {
	query, args := builder().
		Select("plan").
		From(entsql.Table(tableUserPlans)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return "", fmt.Errorf("query plan of %s: %w", userID, err)
	}
	plan := quota.PlanFree
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return "", fmt.Errorf("scan plan: %w", err)
		}
		p, err := quota.ParsePlan(raw)
		if err != nil {
			rows.Close()
			return "", fmt.Errorf("plan of %s: %w", userID, err)
		}
		plan = p
	}
	if err := closeRows(&rows); err != nil {
		return "", fmt.Errorf("query plan of %s: %w", userID, err)
	}
	return plan, nil
}

func (r *quotaRepo) IncrementAttempts(ctx context.Context, userID, sessionID string, at time.Time) error {
	query, args := builder().Insert(tableExamAttempts).
		Columns("user_id", "session_id", "attempted_at").
		Values(userID, sessionID, toMillis(at)).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("record attempt of %s: %w", userID, err)
	}
	return nil
}

func (r *quotaRepo) SetPlan(ctx context.Context, userID string, plan quota.Plan, at time.Time) error {
	query, args := builder().Insert(tableUserPlans).
		Columns("user_id", "plan", "updated_at").
		Values(userID, string(plan), toMillis(at)).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues()).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("set plan of %s: %w", userID, err)
	}
	return nil
}
