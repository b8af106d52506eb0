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

// simuladoRepo implements SimuladoRepo with the ent SQL builders.
type simuladoRepo struct {
	conn dialect.ExecQuerier
}

func (r *simuladoRepo) Save(ctx context.Context, sim exam.Simulado) error {
	query, args := builder().Insert(tableSimulados).
		Columns("id", "title", "duration_minutes", "difficulty", "active", "passing_threshold", "imported_at").
		Values(sim.ID, sim.Title, sim.DurationMinutes, string(sim.Difficulty), boolInt(sim.Active), sim.PassingThreshold, toMillis(time.Now())).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save simulado %s: %w", sim.ID, err)
	}

	query, args = builder().Delete(tableQuestoes).
		Where(entsql.EQ("simulado_id", sim.ID)).
		Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("clear questions of %s: %w", sim.ID, err)
	}

	if len(sim.Questions) == 0 {
		return nil
	}
	ins := builder().Insert(tableQuestoes).
		Columns("simulado_id", "id", "position", "prompt", "alternatives", "correct_answer", "explanation")
	for i, q := range sim.Questions {
		alts, err := json.Marshal(q.Alternatives)
		if err != nil {
			return fmt.Errorf("marshal alternatives of %s/%s: %w", sim.ID, q.ID, err)
		}
		ins.Values(sim.ID, q.ID, i, q.Prompt, string(alts), q.CorrectAnswer, q.Explanation)
	}
	query, args = ins.Query()
	if err := r.conn.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save questions of %s: %w", sim.ID, err)
	}
	return nil
}

func (r *simuladoRepo) Get(ctx context.Context, id string) (exam.Simulado, error) {
	query, args := builder().
		Select("id", "title", "duration_minutes", "difficulty", "active", "passing_threshold").
		From(entsql.Table(tableSimulados)).
		Where(entsql.EQ("id", id)).
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return exam.Simulado{}, fmt.Errorf("query simulado %s: %w", id, err)
	}
	var (
		sim        exam.Simulado
		difficulty string
		active     int
		found      bool
	)
	for rows.Next() {
		if err := rows.Scan(&sim.ID, &sim.Title, &sim.DurationMinutes, &difficulty, &active, &sim.PassingThreshold); err != nil {
			rows.Close()
			return exam.Simulado{}, fmt.Errorf("scan simulado %s: %w", id, err)
		}
		found = true
	}
	if err := closeRows(&rows); err != nil {
		return exam.Simulado{}, fmt.Errorf("query simulado %s: %w", id, err)
	}
	if !found {
		return exam.Simulado{}, fmt.Errorf("simulado %s: %w", id, ErrNotFound)
	}
	sim.Difficulty = exam.Difficulty(difficulty)
	sim.Active = active != 0

	questions, err := r.questions(ctx, id)
	if err != nil {
		return exam.Simulado{}, err
	}
	sim.Questions = questions
	return sim, nil
}

func (r *simuladoRepo) questions(ctx context.Context, simuladoID string) ([]exam.Question, error) {
	query, args := builder().
		Select("id", "prompt", "alternatives", "correct_answer", "explanation").
		From(entsql.Table(tableQuestoes)).
		Where(entsql.EQ("simulado_id", simuladoID)).
		OrderBy(entsql.Asc("position")).
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query questions of %s: %w", simuladoID, err)
	}
	var out []exam.Question
	for rows.Next() {
		q := exam.Question{SimuladoID: simuladoID}
		var alts string
		if err := rows.Scan(&q.ID, &q.Prompt, &alts, &q.CorrectAnswer, &q.Explanation); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question of %s: %w", simuladoID, err)
		}
		if err := json.Unmarshal([]byte(alts), &q.Alternatives); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode alternatives of %s/%s: %w", simuladoID, q.ID, err)
		}
		out = append(out, q)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("query questions of %s: %w", simuladoID, err)
	}
	return out, nil
}

func (r *simuladoRepo) List(ctx context.Context, activeOnly bool) ([]SimuladoSummary, error) {
	counts := builder().
		Select("simulado_id", entsql.As(entsql.Count("*"), "n")).
		From(entsql.Table(tableQuestoes)).
		GroupBy("simulado_id").
		As("qc")

	t := entsql.Table(tableSimulados).As("s")
	sel := builder().
		Select(t.C("id"), t.C("title"), t.C("duration_minutes"), t.C("difficulty"), t.C("active"), t.C("passing_threshold"), "COALESCE(qc.n, 0)").
		From(t).
		LeftJoin(counts).
		On(t.C("id"), counts.C("simulado_id")).
		OrderBy(entsql.Asc(t.C("id")))
	if activeOnly {
		sel.Where(entsql.EQ(t.C("active"), 1))
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("list simulados: %w", err)
	}
	var out []SimuladoSummary
	for rows.Next() {
		var (
			s          SimuladoSummary
			difficulty string
			active     int
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.DurationMinutes, &difficulty, &active, &s.PassingThreshold, &s.QuestionCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan simulado: %w", err)
		}
		s.Difficulty = exam.Difficulty(difficulty)
		s.Active = active != 0
		out = append(out, s)
	}
	if err := closeRows(&rows); err != nil {
		return nil, fmt.Errorf("list simulados: %w", err)
	}
	return out, nil
}

// closeRows closes rows and reports any iteration error.
func closeRows(rows *entsql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}
