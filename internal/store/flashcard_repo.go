package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/belmiro-kunga/certquest/internal/spacedrep"
)

// flashcardRepo implements FlashcardRepo.
type flashcardRepo struct {
	conn dialect.ExecQuerier
}

var reviewColumns = []string{
	"user_id", "card_id", "status", "interval_days", "ease_factor", "quality_sum",
	"consecutive_good", "last_reviewed_at", "next_due_at", "total_reviews", "perfect_reviews",
}

func (r *flashcardRepo) Get(ctx context.Context, userID, cardID string) (spacedrep.ReviewState, error) {
	states, err := r.query(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("card_id", cardID)))
	if err != nil {
		return spacedrep.ReviewState{}, err
	}
	if len(states) == 0 {
		return spacedrep.ReviewState{}, fmt.Errorf("card %s of %s: %w", cardID, userID, ErrNotFound)
	}
	return states[0], nil
}

func (r *flashcardRepo) Save(ctx context.Context, rs spacedrep.ReviewState) error {
	query, args := builder().Insert(tableReviewStates).
		Columns(reviewColumns...).
		Values(rs.UserID, rs.CardID, string(rs.Status), rs.IntervalDays, rs.EaseFactor, rs.QualitySum,
			rs.ConsecutiveGood, toMillis(rs.LastReviewedAt), toMillis(rs.NextDueAt), rs.TotalReviews, rs.PerfectReviews).
		OnConflict(entsql.ConflictColumns("user_id", "card_id"), entsql.ResolveWithNewValues()).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save card %s of %s: %w", rs.CardID, rs.UserID, err)
	}
	return nil
}

func (r *flashcardRepo) ListByUser(ctx context.Context, userID string) ([]spacedrep.ReviewState, error) {
	return r.query(ctx, entsql.EQ("user_id", userID))
}

func (r *flashcardRepo) query(ctx context.Context, where *entsql.Predicate) ([]spacedrep.ReviewState, error) {
	query, args := builder().
		Select(reviewColumns...).
		From(entsql.Table(tableReviewStates)).
		Where(where).
		OrderBy(entsql.Asc("card_id")).
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query review states: %w", err)
	}
	var out []spacedrep.ReviewState
	for rows.Next() {
		var (
			rs             spacedrep.ReviewState
			status         string
			lastMs, nextMs int64
		)
		if err := rows.Scan(&rs.UserID, &rs.CardID, &status, &rs.IntervalDays, &rs.EaseFactor, &rs.QualitySum,
			&rs.ConsecutiveGood, &lastMs, &nextMs, &rs.TotalReviews, &rs.PerfectReviews); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan review state: %w", err)
		}
		rs.Status = spacedrep.Status(status)
		rs.LastReviewedAt = fromMillis(lastMs)
		rs.NextDueAt = fromMillis(nextMs)
		out = append(out, rs)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query review states: %w", err)
	}
	return out, nil
}
