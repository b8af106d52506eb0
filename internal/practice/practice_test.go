package practice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belmiro-kunga/certquest/internal/catalog"
	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/spacedrep"
	"github.com/belmiro-kunga/certquest/internal/store"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct{ t time.Time }

func newClock() *clock                   { return &clock{t: t0} }
func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:practice_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func simulado(id string, n int) exam.Simulado {
	sim := exam.Simulado{
		ID:              id,
		Title:           "Simulado " + id,
		DurationMinutes: 30,
		Difficulty:      exam.DifficultyIntermediate,
		Active:          true,
	}
	for i := 1; i <= n; i++ {
		sim.Questions = append(sim.Questions, exam.Question{
			ID:         fmt.Sprintf("q%d", i),
			SimuladoID: id,
			Prompt:     fmt.Sprintf("Question %d?", i),
			Alternatives: []exam.Alternative{
				{ID: "a", Text: "right", Correct: true},
				{ID: "b", Text: "wrong"},
			},
		})
	}
	return sim
}

type fixture struct {
	store *store.Store
	clock *clock
	exams *ExamService
	cards *CardService
	warn  *bytes.Buffer
}

func newFixture(t *testing.T, sims ...exam.Simulado) *fixture {
	t.Helper()
	f := &fixture{store: openStore(t), clock: newClock(), warn: &bytes.Buffer{}}
	opts := []Option{WithClock(f.clock.now), WithWarnings(f.warn)}
	f.exams = NewExamService(f.store, DefaultConfig(), opts...)
	f.cards = NewCardService(f.store, DefaultConfig(), opts...)
	if len(sims) > 0 {
		_, err := f.exams.Import(context.Background(), &catalog.Document{Version: "v1.0.0", Simulados: sims})
		require.NoError(t, err)
	}
	return f
}

func TestConfig_DefaultIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Exam.PassingThreshold = 101
	assert.Error(t, cfg.Validate())
}

func TestStart_PersistsSessionAndAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 3))

	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	assert.Equal(t, exam.StateInProgress, sess.State())

	loaded, err := f.exams.Session(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), loaded.ID())
	assert.Equal(t, 3, loaded.QuestionCount())

	qs, err := f.exams.Quota(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, qs.Used)
	assert.Equal(t, 2, qs.Remaining)
	assert.Equal(t, quota.PlanFree, qs.Plan)
	assert.Equal(t, t0.Add(quota.DefaultWindow), qs.ResetsAt)

	events, err := f.exams.Events(ctx, "ana", sess.ID(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionStart, events[0].Action)
	assert.Equal(t, 30*60, events[0].RemainingSecs)
}

func TestStart_SecondInProgressSessionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	first, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)

	_, err = f.exams.Start(ctx, "ana", "aws")
	require.ErrorIs(t, err, ErrSessionInProgress)
	var ae *ActiveSessionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, first.ID(), ae.SessionID)

	// The rejected start did not cost an attempt.
	qs, err := f.exams.Quota(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, qs.Used)
}

func TestStart_ExpiredSessionNoLongerBlocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	first, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	f.clock.advance(31 * time.Minute)

	second, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	old, err := f.exams.Session(ctx, "ana", first.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.StateExpired, old.State())
}

func TestStart_QuotaExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 1))

	for i := 0; i < 3; i++ {
		sess, err := f.exams.Start(ctx, "ana", "aws")
		require.NoError(t, err)
		_, err = f.exams.Submit(ctx, "ana", sess.ID())
		require.NoError(t, err)
		f.clock.advance(time.Hour)
	}

	_, err := f.exams.Start(ctx, "ana", "aws")
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	var qe *quota.ExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, t0.Add(quota.DefaultWindow), qe.ResetsAt)

	// A week after the first attempt one slot frees up.
	f.clock.t = t0.Add(quota.DefaultWindow)
	_, err = f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
}

func TestStart_PremiumPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 1))
	require.NoError(t, f.exams.SetPlan(ctx, "ana", quota.PlanPremium))

	qs, err := f.exams.Quota(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, quota.PlanPremium, qs.Plan)
	assert.Equal(t, 20, qs.Remaining)
	assert.True(t, qs.ResetsAt.IsZero())

	assert.Error(t, f.exams.SetPlan(ctx, "ana", quota.Plan("gold")))
}

func TestStart_UnknownAndInactiveSimulado(t *testing.T) {
	ctx := context.Background()
	inactive := simulado("old", 1)
	inactive.Active = false
	f := newFixture(t, inactive)

	_, err := f.exams.Start(ctx, "ana", "missing")
	assert.ErrorIs(t, err, exam.ErrInvalidSimulado)

	_, err = f.exams.Start(ctx, "ana", "old")
	assert.ErrorIs(t, err, exam.ErrInvalidSimulado)

	qs, err := f.exams.Quota(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, qs.Used)
}

func TestAnswerAndSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 10))

	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		alt := "b"
		if i <= 7 {
			alt = "a"
		}
		require.NoError(t, f.exams.Answer(ctx, "ana", sess.ID(), fmt.Sprintf("q%d", i), alt))
	}
	f.clock.advance(12 * time.Minute)

	res, err := f.exams.Submit(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, 7, res.CorrectAnswers)
	assert.Equal(t, 70, res.Score)
	assert.True(t, res.Passed)
	assert.Equal(t, 12*time.Minute, res.Elapsed)
	assert.False(t, res.GraceSubmit)

	stored, err := f.exams.Result(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, res.Score, stored.Score)

	loaded, err := f.exams.Session(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.StateSubmitted, loaded.State())

	_, err = f.exams.Submit(ctx, "ana", sess.ID())
	assert.ErrorIs(t, err, exam.ErrInvalidState)

	history, err := f.exams.History(ctx, "ana", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)

	events, err := f.exams.Events(ctx, "ana", sess.ID(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 12)
	assert.Equal(t, ActionSubmit, events[11].Action)
	assert.Contains(t, events[11].Detail, "score=70")
}

func TestAnswer_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))
	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)

	assert.ErrorIs(t, f.exams.Answer(ctx, "ana", sess.ID(), "q9", "a"), exam.ErrUnknownQuestion)
	assert.ErrorIs(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "z"), exam.ErrUnknownAlternative)
	assert.ErrorIs(t, f.exams.Answer(ctx, "ana", "nope", "q1", "a"), store.ErrNotFound)

	f.clock.advance(30 * time.Minute)
	assert.ErrorIs(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "a"), exam.ErrInvalidState)

	loaded, err := f.exams.Session(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.StateExpired, loaded.State())
}

func TestTick_ExpiresOnceThenGraceSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))
	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	require.NoError(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "a"))

	f.clock.advance(29*time.Minute + 30*time.Second)
	st, err := f.exams.Tick(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, 30, st.RemainingSeconds)
	assert.False(t, st.Expired)

	f.clock.advance(30 * time.Second)
	st, err = f.exams.Tick(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.True(t, st.Expired)
	assert.Equal(t, exam.StateExpired, st.State)
	assert.Equal(t, 0, st.RemainingSeconds)

	st, err = f.exams.Tick(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.False(t, st.Expired, "expire is reported once")

	res, err := f.exams.Submit(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.True(t, res.GraceSubmit)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, 30*time.Minute, res.Elapsed)

	loaded, err := f.exams.Session(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.StateExpired, loaded.State())
	assert.True(t, loaded.Scored())

	_, err = f.exams.Submit(ctx, "ana", sess.ID())
	assert.ErrorIs(t, err, exam.ErrInvalidState)
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	first, err := f.exams.Resume(ctx, "ana", "aws")
	require.NoError(t, err)
	again, err := f.exams.Resume(ctx, "ana", "aws")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), again.ID())

	running, err := f.exams.ActiveSessions(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, running, 1)

	f.clock.advance(time.Hour)
	running, err = f.exams.ActiveSessions(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestClientViewHidesCorrectness(t *testing.T) {
	ctx := context.Background()
	sim := simulado("aws", 2)
	sim.Questions[0].Explanation = "secret"
	f := newFixture(t, sim)

	view, err := f.exams.ClientView(ctx, "aws")
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	assert.Len(t, view.Questions[0].Alternatives, 2)

	list, err := f.exams.Simulados(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].QuestionCount)
}

func TestCards_ReviewLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rs, err := f.cards.Review(ctx, "ana", "s3-classes", "5")
	require.NoError(t, err)
	assert.Equal(t, spacedrep.StatusLearning, rs.Status)
	assert.Equal(t, 1, rs.IntervalDays)

	f.clock.advance(24 * time.Hour)
	rs, err = f.cards.Review(ctx, "ana", "s3-classes", "5")
	require.NoError(t, err)
	assert.Equal(t, spacedrep.StatusLearning, rs.Status)
	assert.Equal(t, 3, rs.IntervalDays)

	f.clock.advance(3 * 24 * time.Hour)
	rs, err = f.cards.Review(ctx, "ana", "s3-classes", "5")
	require.NoError(t, err)
	assert.Equal(t, spacedrep.StatusReview, rs.Status)
	assert.Equal(t, 8, rs.IntervalDays)

	stored, err := f.cards.Card(ctx, "ana", "s3-classes")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalReviews)
	assert.Equal(t, 3, stored.PerfectReviews)

	history, err := f.cards.History(ctx, "ana", "s3-classes", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, spacedrep.StatusNew, history[0].FromStatus)
	assert.Equal(t, spacedrep.StatusReview, history[2].ToStatus)
}

func TestCards_FailureResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.cards.Review(ctx, "ana", "iam", "5")
	require.NoError(t, err)
	rs, err := f.cards.Review(ctx, "ana", "iam", "1")
	require.NoError(t, err)
	assert.Equal(t, spacedrep.StatusLearning, rs.Status)
	assert.Equal(t, 1, rs.IntervalDays)
	assert.Equal(t, 0, rs.ConsecutiveGood)
}

func TestCards_InvalidQuality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, raw := range []string{"6", "-1", "great", ""} {
		_, err := f.cards.Review(ctx, "ana", "iam", raw)
		assert.ErrorIs(t, err, spacedrep.ErrInvalidQuality, raw)
	}
	_, err := f.cards.Card(ctx, "ana", "iam")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCards_DueAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, card := range []string{"b", "a", "c"} {
		_, err := f.cards.Review(ctx, "ana", card, "4")
		require.NoError(t, err)
	}
	due, err := f.cards.Due(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, due)

	f.clock.advance(25 * time.Hour)
	due, err = f.cards.Due(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, "a", due[0].CardID)
	assert.Equal(t, "c", due[2].CardID)

	stats, err := f.cards.Stats(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Cards)
	assert.Equal(t, 3, stats.ByStatus[spacedrep.StatusLearning])
	assert.InDelta(t, 4.0, stats.AverageQuality, 1e-9)
}

func TestWarningsDoNotFailOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 1))
	_, err := f.store.DB().Exec("DROP TABLE exam_events")
	require.NoError(t, err)

	_, err = f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	assert.Contains(t, f.warn.String(), "warning: failed to log start event")
}

func TestImport_RejectedWhileSessionRunning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	require.NoError(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "a"))
	require.NoError(t, f.exams.Answer(ctx, "ana", sess.ID(), "q2", "a"))

	edited := simulado("aws", 4)
	edited.Questions[0].Alternatives[0].Correct = false
	edited.Questions[0].Alternatives[1].Correct = true
	_, err = f.exams.Import(ctx, &catalog.Document{Version: "v1.0.0", Simulados: []exam.Simulado{edited}})
	assert.ErrorIs(t, err, store.ErrConflict)
	var inUse *SimuladoInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 1, inUse.Sessions)

	res, err := f.exams.Submit(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, res.CorrectAnswers)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, 100, res.Score)

	// Nothing is running any more, so the edit goes through.
	_, err = f.exams.Import(ctx, &catalog.Document{Version: "v1.0.0", Simulados: []exam.Simulado{edited}})
	require.NoError(t, err)
	sim, err := f.exams.Simulado(ctx, "aws")
	require.NoError(t, err)
	assert.Len(t, sim.Questions, 4)
}

func TestImport_ScoresExpiredSessionsFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	require.NoError(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "a"))
	f.clock.advance(31 * time.Minute)

	_, err = f.exams.Import(ctx, &catalog.Document{Version: "v1.0.0", Simulados: []exam.Simulado{simulado("aws", 3)}})
	require.NoError(t, err)

	res, err := f.exams.Result(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.True(t, res.GraceSubmit)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 2, res.TotalQuestions)
}

func TestSessionBelongsToItsUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	require.NoError(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "a"))

	assert.ErrorIs(t, f.exams.Answer(ctx, "bob", sess.ID(), "q1", "b"), store.ErrNotFound)
	_, err = f.exams.Tick(ctx, "bob", sess.ID())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.exams.Submit(ctx, "bob", sess.ID())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.exams.Events(ctx, "bob", sess.ID(), store.QueryOpts{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.exams.Session(ctx, "bob", sess.ID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	loaded, err := f.exams.Session(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.StateInProgress, loaded.State())
	a, _ := loaded.Answer("q1")
	assert.Equal(t, "a", a, "another user's answer must not overwrite")

	_, err = f.exams.Submit(ctx, "ana", sess.ID())
	require.NoError(t, err)
	_, err = f.exams.Result(ctx, "bob", sess.ID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResume_ScoresSessionThatExpiredUnattended(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	first, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	require.NoError(t, f.exams.Answer(ctx, "ana", first.ID(), "q1", "a"))
	f.clock.advance(31 * time.Minute)

	second, err := f.exams.Resume(ctx, "ana", "aws")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	res, err := f.exams.Result(ctx, "ana", first.ID())
	require.NoError(t, err)
	assert.True(t, res.GraceSubmit)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 50, res.Score)

	history, err := f.exams.History(ctx, "ana", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	old, err := f.exams.Session(ctx, "ana", first.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.StateExpired, old.State())
	assert.True(t, old.Scored())

	events, err := f.exams.Events(ctx, "ana", first.ID(), store.QueryOpts{})
	require.NoError(t, err)
	var actions []string
	for _, ev := range events {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []string{ActionStart, ActionAnswer, ActionExpire, ActionSubmit}, actions)
}

func TestActiveSessions_ScoresSessionExpiredByLateAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, simulado("aws", 2))

	sess, err := f.exams.Start(ctx, "ana", "aws")
	require.NoError(t, err)
	f.clock.advance(31 * time.Minute)
	assert.ErrorIs(t, f.exams.Answer(ctx, "ana", sess.ID(), "q1", "a"), exam.ErrInvalidState)

	_, err = f.exams.Result(ctx, "ana", sess.ID())
	assert.ErrorIs(t, err, store.ErrNotFound, "expired but not yet scored")

	_, err = f.exams.ActiveSessions(ctx, "ana")
	require.NoError(t, err)
	res, err := f.exams.Result(ctx, "ana", sess.ID())
	require.NoError(t, err)
	assert.True(t, res.GraceSubmit)
	assert.Equal(t, 0, res.CorrectAnswers)
}
