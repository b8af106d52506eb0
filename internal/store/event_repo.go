package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/spacedrep"
)

// eventRepo implements EventRepo. Every event takes a number from the
// shared sequence counter before it is written.
type eventRepo struct {
	conn dialect.ExecQuerier
	seq  *sequenceCounter
}

func (r *eventRepo) AppendExamEvent(ctx context.Context, data ExamEventData) error {
	seqNum, err := r.seq.Next(ctx, r.conn)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(tableExamEvents).
		Columns("sequence", "timestamp", "session_id", "user_id", "action", "question_id", "alternative_id",
			"state", "remaining_secs", "detail").
		Values(seqNum, toMillis(time.Now()), data.SessionID, data.UserID, data.Action, data.QuestionID,
			data.AlternativeID, string(data.State), data.RemainingSecs, data.Detail).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save exam event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendReviewEvent(ctx context.Context, data ReviewEventData) error {
	seqNum, err := r.seq.Next(ctx, r.conn)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(tableReviewEvents).
		Columns("sequence", "timestamp", "user_id", "card_id", "quality", "from_status", "to_status",
			"interval_days", "ease_factor", "next_due_at").
		Values(seqNum, toMillis(time.Now()), data.UserID, data.CardID, int(data.Quality), string(data.FromStatus),
			string(data.ToStatus), data.IntervalDays, data.EaseFactor, toMillis(data.NextDueAt)).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save review event: %w", err)
	}
	return nil
}

func (r *eventRepo) ExamEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]ExamEventRecord, error) {
	sel := builder().
		Select("sequence", "timestamp", "session_id", "user_id", "action", "question_id", "alternative_id",
			"state", "remaining_secs", "detail").
		From(entsql.Table(tableExamEvents)).
		Where(entsql.EQ("session_id", sessionID))
	applyOpts(sel, opts)
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query exam events: %w", err)
	}
	var out []ExamEventRecord
	for rows.Next() {
		var (
			e     ExamEventRecord
			ts    int64
			state string
		)
		if err := rows.Scan(&e.Sequence, &ts, &e.SessionID, &e.UserID, &e.Action, &e.QuestionID,
			&e.AlternativeID, &state, &e.RemainingSecs, &e.Detail); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan exam event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		e.State = exam.State(state)
		out = append(out, e)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query exam events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) ReviewEvents(ctx context.Context, userID, cardID string, opts QueryOpts) ([]ReviewEventRecord, error) {
	sel := builder().
		Select("sequence", "timestamp", "user_id", "card_id", "quality", "from_status", "to_status",
			"interval_days", "ease_factor", "next_due_at").
		From(entsql.Table(tableReviewEvents)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("card_id", cardID)))
	applyOpts(sel, opts)
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query review events: %w", err)
	}
	var out []ReviewEventRecord
	for rows.Next() {
		var (
			e        ReviewEventRecord
			ts, due  int64
			quality  int
			from, to string
		)
		if err := rows.Scan(&e.Sequence, &ts, &e.UserID, &e.CardID, &quality, &from, &to,
			&e.IntervalDays, &e.EaseFactor, &due); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan review event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		e.NextDueAt = fromMillis(due)
		e.Quality = spacedrep.Quality(quality)
		e.FromStatus = spacedrep.Status(from)
		e.ToStatus = spacedrep.Status(to)
		out = append(out, e)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query review events: %w", err)
	}
	return out, nil
}

// applyOpts adds sequence filtering, ordering and limit to an event query.
func applyOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	sel.OrderBy(entsql.Asc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}
