package examrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/practice"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/router"
	"github.com/belmiro-kunga/certquest/internal/screen"
	"github.com/belmiro-kunga/certquest/internal/screens/summary"
	"github.com/belmiro-kunga/certquest/internal/ui/components"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
)

// ExamScreen runs one timed session. It owns the countdown: a tick every
// second asks the service for the remaining time, and once the session
// expires it is submitted with the answers it holds.
type ExamScreen struct {
	svc        *practice.ExamService
	userID     string
	simuladoID string
	keys       keyMap

	sess      *exam.Session
	view      exam.ClientSimulado
	answers   map[string]string
	current   int
	list      components.AlternativeList
	remaining int

	confirming bool
	submitting bool
	notice     string
	errMsg     string
}

var _ screen.Screen = (*ExamScreen)(nil)
var _ screen.KeyHintProvider = (*ExamScreen)(nil)

// New creates an exam screen that starts, or resumes, userID's session on
// simuladoID.
func New(svc *practice.ExamService, userID, simuladoID string) *ExamScreen {
	return &ExamScreen{
		svc:        svc,
		userID:     userID,
		simuladoID: simuladoID,
		keys:       defaultKeyMap(),
		answers:    make(map[string]string),
	}
}

func (s *ExamScreen) Init() tea.Cmd {
	svc, user, simID := s.svc, s.userID, s.simuladoID
	return func() tea.Msg {
		ctx := context.Background()
		sess, err := svc.Resume(ctx, user, simID)
		if err != nil {
			return sessionReadyMsg{Err: err}
		}
		view, err := svc.ClientView(ctx, simID)
		if err != nil {
			return sessionReadyMsg{Err: err}
		}
		return sessionReadyMsg{Session: sess, View: view}
	}
}

func (s *ExamScreen) Title() string {
	if s.view.Title != "" {
		return s.view.Title
	}
	return "Exam"
}

func (s *ExamScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	case s.sess == nil || s.submitting:
		return nil
	case s.confirming:
		return hints(s.keys.Confirm, s.keys.Cancel)
	}
	return append(hints(s.keys.Up, s.keys.Prev, s.keys.Pick, s.keys.Record, s.keys.Submit),
		layout.KeyHint{Key: "Esc", Description: "Leave"})
}

func (s *ExamScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionReadyMsg:
		return s.handleReady(msg)
	case timerTickMsg:
		return s.handleTick()
	case submittedMsg:
		return s.handleSubmitted(msg)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *ExamScreen) handleReady(msg sessionReadyMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = describeError(msg.Err)
		return s, nil
	}
	s.sess = msg.Session
	s.view = msg.View
	s.answers = msg.Session.Answers()
	s.remaining = s.svc.RemainingSeconds(msg.Session)
	s.current = 0
	s.loadQuestion()
	return s, tickCmd()
}

func (s *ExamScreen) handleTick() (screen.Screen, tea.Cmd) {
	if s.sess == nil || s.submitting || s.errMsg != "" {
		return s, nil
	}
	st, err := s.svc.Tick(context.Background(), s.userID, s.sess.ID())
	if err != nil {
		s.errMsg = describeError(err)
		return s, nil
	}
	s.remaining = st.RemainingSeconds
	if st.State != exam.StateInProgress {
		s.notice = "Time is up."
		return s, s.submit()
	}
	return s, tickCmd()
}

func (s *ExamScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.submitting = false
		s.errMsg = describeError(msg.Err)
		return s, nil
	}
	return s, func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: summary.New(msg.Simulado, msg.Result)}
	}
}

func (s *ExamScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.errMsg != "" {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	if s.sess == nil || s.submitting {
		return s, nil
	}

	if s.confirming {
		switch {
		case key.Matches(msg, s.keys.Confirm):
			s.confirming = false
			return s, s.submit()
		case key.Matches(msg, s.keys.Cancel):
			s.confirming = false
		}
		return s, nil
	}

	s.notice = ""
	switch {
	case key.Matches(msg, s.keys.Up):
		s.list.Up()
	case key.Matches(msg, s.keys.Down):
		s.list.Down()
	case key.Matches(msg, s.keys.Prev):
		if s.current > 0 {
			s.current--
			s.loadQuestion()
		}
	case key.Matches(msg, s.keys.Next):
		if s.current < len(s.view.Questions)-1 {
			s.current++
			s.loadQuestion()
		}
	case key.Matches(msg, s.keys.Pick):
		if s.list.Select(int(msg.String()[0] - '1')) {
			return s.record()
		}
	case key.Matches(msg, s.keys.Record):
		return s.record()
	case key.Matches(msg, s.keys.Submit):
		s.confirming = true
	}
	return s, nil
}

// record stores the alternative under the cursor and moves on to the next
// question.
func (s *ExamScreen) record() (screen.Screen, tea.Cmd) {
	q := s.view.Questions[s.current]
	alt := q.Alternatives[s.list.Cursor]

	err := s.svc.Answer(context.Background(), s.userID, s.sess.ID(), q.ID, alt.ID)
	if errors.Is(err, exam.ErrInvalidState) {
		s.notice = "Time is up."
		return s, s.submit()
	}
	if err != nil {
		s.notice = describeError(err)
		return s, nil
	}

	s.answers[q.ID] = alt.ID
	s.list.Recorded = s.list.Cursor
	if s.current < len(s.view.Questions)-1 {
		s.current++
		s.loadQuestion()
	}
	return s, nil
}

func (s *ExamScreen) submit() tea.Cmd {
	s.submitting = true
	svc, user, id, simID := s.svc, s.userID, s.sess.ID(), s.simuladoID
	return func() tea.Msg {
		ctx := context.Background()
		res, err := svc.Submit(ctx, user, id)
		if errors.Is(err, exam.ErrInvalidState) {
			// Already scored elsewhere, e.g. settled after it expired.
			if stored, rerr := svc.Result(ctx, user, id); rerr == nil {
				res, err = stored, nil
			}
		}
		if err != nil {
			return submittedMsg{Err: err}
		}
		sim, err := svc.Simulado(ctx, simID)
		if err != nil {
			return submittedMsg{Err: err}
		}
		return submittedMsg{Result: res, Simulado: sim}
	}
}

// loadQuestion rebuilds the alternative list for the current question.
func (s *ExamScreen) loadQuestion() {
	if len(s.view.Questions) == 0 {
		return
	}
	q := s.view.Questions[s.current]
	options := make([]string, len(q.Alternatives))
	recorded := -1
	for i, a := range q.Alternatives {
		options[i] = a.Text
		if s.answers[q.ID] == a.ID {
			recorded = i
		}
	}
	s.list = components.NewAlternativeList(q.Prompt, options, recorded)
}

// describeError turns service errors into a line for the learner.
func describeError(err error) string {
	var qe *quota.ExceededError
	if errors.As(err, &qe) {
		return fmt.Sprintf("No exam attempts left this week. Next attempt available %s.",
			qe.ResetsAt.Local().Format("Mon Jan 2 15:04"))
	}
	var ae *practice.ActiveSessionError
	if errors.As(err, &ae) {
		return "You already have this simulado in progress."
	}
	if errors.Is(err, exam.ErrInvalidSimulado) {
		return "This simulado cannot be taken right now."
	}
	return err.Error()
}

// tickCmd returns a 1-second tick command.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}
