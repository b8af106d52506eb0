package examrun

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/belmiro-kunga/certquest/internal/catalog"
	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/practice"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/router"
	"github.com/belmiro-kunga/certquest/internal/screens/summary"
	"github.com/belmiro-kunga/certquest/internal/store"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

type testEnv struct {
	svc *practice.ExamService
	now time.Time
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:examrun_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{now: t0}
	env.svc = practice.NewExamService(st, practice.DefaultConfig(),
		practice.WithClock(func() time.Time { return env.now }),
		practice.WithWarnings(io.Discard))

	sim := exam.Simulado{
		ID:              "aws",
		Title:           "AWS Practice",
		DurationMinutes: 10,
		Active:          true,
	}
	for i := 1; i <= 3; i++ {
		sim.Questions = append(sim.Questions, exam.Question{
			ID:     fmt.Sprintf("q%d", i),
			Prompt: fmt.Sprintf("Question %d?", i),
			Alternatives: []exam.Alternative{
				{ID: "a", Text: "right", Correct: true},
				{ID: "b", Text: "wrong"},
			},
		})
	}
	if _, err := env.svc.Import(context.Background(), &catalog.Document{Version: "v1.0.0", Simulados: []exam.Simulado{sim}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	return env
}

// startScreen runs Init and feeds the resulting message back in.
func startScreen(t *testing.T, env *testEnv) *ExamScreen {
	t.Helper()
	s := New(env.svc, "ana", "aws")
	msg := s.Init()()
	_, cmd := s.Update(msg)
	if s.errMsg != "" {
		t.Fatalf("start failed: %s", s.errMsg)
	}
	if cmd == nil {
		t.Fatal("expected the countdown to start")
	}
	return s
}

func TestExamScreen_Start(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)

	if s.sess == nil || s.sess.State() != exam.StateInProgress {
		t.Fatal("expected an in-progress session")
	}
	if s.remaining != 600 {
		t.Errorf("remaining = %d, want 600", s.remaining)
	}
	if s.Title() != "AWS Practice" {
		t.Errorf("Title = %q", s.Title())
	}
	view := s.View(100, 30)
	for _, want := range []string{"Question 1/3", "10:00", "Question 1?", "right"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestExamScreen_PickRecordsAndAdvances(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)

	s.Update(keyPress('2'))
	if s.current != 1 {
		t.Fatalf("current = %d, want 1 after answering", s.current)
	}
	stored, err := env.svc.Session(context.Background(), "ana", s.sess.ID())
	if err != nil {
		t.Fatal(err)
	}
	if a, _ := stored.Answer("q1"); a != "b" {
		t.Errorf("stored answer = %q, want b", a)
	}

	// Going back shows the recorded alternative.
	s.Update(specialKey(tea.KeyLeft))
	if s.current != 0 || s.list.Recorded != 1 {
		t.Errorf("current = %d recorded = %d, want 0 and 1", s.current, s.list.Recorded)
	}
}

func TestExamScreen_ArrowsAndEnter(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)

	s.Update(specialKey(tea.KeyDown))
	s.Update(specialKey(tea.KeyUp))
	s.Update(specialKey(tea.KeyEnter))
	if a := s.answers["q1"]; a != "a" {
		t.Errorf("answer = %q, want a", a)
	}
	s.Update(specialKey(tea.KeyRight))
	if s.current != 2 {
		t.Errorf("current = %d, want 2", s.current)
	}
	s.Update(specialKey(tea.KeyRight))
	if s.current != 2 {
		t.Errorf("current = %d, want to stay on the last question", s.current)
	}
}

func TestExamScreen_PickOutOfRangeIgnored(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)

	s.Update(keyPress('9'))
	if len(s.answers) != 0 || s.current != 0 {
		t.Error("expected an out-of-range pick to do nothing")
	}
}

func TestExamScreen_SubmitWithConfirm(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)
	s.Update(keyPress('1'))

	s.Update(keyPress('s'))
	if !s.confirming {
		t.Fatal("expected a confirmation prompt")
	}
	s.Update(keyPress('n'))
	if s.confirming {
		t.Fatal("expected N to cancel")
	}

	s.Update(keyPress('s'))
	_, cmd := s.Update(keyPress('y'))
	if cmd == nil || !s.submitting {
		t.Fatal("expected Y to submit")
	}
	msg := cmd()
	sm, ok := msg.(submittedMsg)
	if !ok || sm.Err != nil {
		t.Fatalf("unexpected submit message: %#v", msg)
	}
	if sm.Result.CorrectAnswers != 1 || sm.Result.Score != 33 {
		t.Errorf("result = %d correct, score %d", sm.Result.CorrectAnswers, sm.Result.Score)
	}

	_, cmd = s.Update(sm)
	replace, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatal("expected the summary to replace the exam")
	}
	if _, ok := replace.Screen.(*summary.SummaryScreen); !ok {
		t.Errorf("replacement is %T, want summary", replace.Screen)
	}
}

func TestExamScreen_TickCountsDown(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)

	env.now = env.now.Add(90 * time.Second)
	_, cmd := s.Update(timerTickMsg(env.now))
	if cmd == nil {
		t.Fatal("expected the next tick to be scheduled")
	}
	if s.remaining != 510 {
		t.Errorf("remaining = %d, want 510", s.remaining)
	}
}

func TestExamScreen_ExpiryGraceSubmits(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)
	s.Update(keyPress('1'))

	env.now = env.now.Add(10 * time.Minute)
	_, cmd := s.Update(timerTickMsg(env.now))
	if !s.submitting || cmd == nil {
		t.Fatal("expected expiry to submit the session")
	}
	sm, ok := cmd().(submittedMsg)
	if !ok || sm.Err != nil {
		t.Fatalf("unexpected submit message: %#v", sm)
	}
	if !sm.Result.GraceSubmit {
		t.Error("expected a grace submission")
	}

	// Keys are ignored while the result is pending.
	if _, cmd := s.Update(keyPress('2')); cmd != nil {
		t.Error("expected no command while submitting")
	}
}

func TestExamScreen_ExpiredSessionAlreadyScored(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)
	s.Update(keyPress('1'))

	// Another caller settles the session after its time ran out.
	env.now = env.now.Add(10 * time.Minute)
	if _, err := env.svc.ActiveSessions(context.Background(), "ana"); err != nil {
		t.Fatal(err)
	}

	_, cmd := s.Update(timerTickMsg(env.now))
	if !s.submitting || cmd == nil {
		t.Fatal("expected the expired session to be submitted")
	}
	sm, ok := cmd().(submittedMsg)
	if !ok || sm.Err != nil {
		t.Fatalf("unexpected submit message: %#v", sm)
	}
	if !sm.Result.GraceSubmit || sm.Result.CorrectAnswers != 1 {
		t.Errorf("result = %+v, want the stored grace result", sm.Result)
	}
}

func TestExamScreen_AnswerAfterDeadlineSubmits(t *testing.T) {
	env := newEnv(t)
	s := startScreen(t, env)

	env.now = env.now.Add(11 * time.Minute)
	_, cmd := s.Update(keyPress('1'))
	if !s.submitting || cmd == nil {
		t.Fatal("expected a late answer to trigger submission")
	}
}

func TestExamScreen_ResumesRunningSession(t *testing.T) {
	env := newEnv(t)
	first := startScreen(t, env)
	first.Update(keyPress('1'))

	second := startScreen(t, env)
	if second.sess.ID() != first.sess.ID() {
		t.Error("expected the running session to be resumed")
	}
	if second.answers["q1"] != "a" {
		t.Error("expected recorded answers to be restored")
	}
}

func TestExamScreen_QuotaExhausted(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sess, err := env.svc.Start(ctx, "ana", "aws")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.svc.Submit(ctx, "ana", sess.ID()); err != nil {
			t.Fatal(err)
		}
	}

	s := New(env.svc, "ana", "aws")
	s.Update(s.Init()())
	if !strings.Contains(s.errMsg, "No exam attempts left") {
		t.Errorf("errMsg = %q", s.errMsg)
	}

	_, cmd := s.Update(keyPress('x'))
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected any key to leave the error screen")
	}
}

func TestDescribeError(t *testing.T) {
	err := fmt.Errorf("start: %w", &quota.ExceededError{Used: 3, Allowed: 3, ResetsAt: t0})
	if !strings.Contains(describeError(err), "No exam attempts left") {
		t.Errorf("describeError = %q", describeError(err))
	}
	err = &practice.ActiveSessionError{UserID: "ana", SimuladoID: "aws"}
	if !strings.Contains(describeError(err), "in progress") {
		t.Errorf("describeError = %q", describeError(err))
	}
}
