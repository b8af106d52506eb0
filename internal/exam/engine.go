package exam

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/belmiro-kunga/certquest/internal/quota"
)

// Engine drives exam sessions through their lifecycle. It holds no session
// state of its own; every operation works on the session passed in, so one
// Engine can serve any number of sessions.
type Engine struct {
	cfg   Config
	newID func() string
}

// NewEngine creates an engine with the given scoring configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		newID: func() string { return uuid.New().String() },
	}
}

// Start opens a session for sim, consuming one attempt from q.
// The simulado is validated before the quota is touched, so a broken
// simulado never costs the user an attempt.
func (e *Engine) Start(sim Simulado, q *quota.AttemptQuota, now time.Time) (*Session, error) {
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	if !sim.Active {
		return nil, &SimuladoError{SimuladoID: sim.ID, Reason: "not active"}
	}
	if q == nil {
		return nil, fmt.Errorf("start %s: nil quota", sim.ID)
	}
	if err := q.Consume(now); err != nil {
		return nil, err
	}

	questions := make(map[string]map[string]bool, len(sim.Questions))
	key := make(map[string]string, len(sim.Questions))
	for _, question := range sim.Questions {
		alts := make(map[string]bool, len(question.Alternatives))
		for _, a := range question.Alternatives {
			alts[a.ID] = true
		}
		questions[question.ID] = alts
		key[question.ID] = question.CorrectAlternativeID()
	}

	return &Session{
		id:              e.newID(),
		userID:          q.UserID,
		simuladoID:      sim.ID,
		startedAt:       now,
		durationMinutes: sim.DurationMinutes,
		questions:       questions,
		key:             key,
		answers:         make(map[string]string),
		state:           StateInProgress,
	}, nil
}

// RecordAnswer stores alternativeID as the answer to questionID, replacing
// any earlier answer to the same question.
func (e *Engine) RecordAnswer(s *Session, questionID, alternativeID string) error {
	if s.State() != StateInProgress {
		return &StateError{Op: "answer", State: s.State()}
	}
	alts, ok := s.questions[questionID]
	if !ok {
		return &QuestionError{QuestionID: questionID}
	}
	if alternativeID == "" || !alts[alternativeID] {
		return &QuestionError{QuestionID: questionID, AlternativeID: alternativeID, Alternative: true}
	}
	s.answers[questionID] = alternativeID
	return nil
}

// RemainingSeconds returns the whole seconds left before the deadline,
// rounded up, and 0 once the deadline has passed. It never changes the
// session.
func (e *Engine) RemainingSeconds(s *Session, now time.Time) int {
	elapsed := now.Sub(s.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	left := s.Duration() - elapsed
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Expire moves an in-progress session whose time has run out to expired and
// reports whether it did. Any other call is a no-op.
func (e *Engine) Expire(s *Session, now time.Time) bool {
	if s.State() != StateInProgress || e.RemainingSeconds(s, now) > 0 {
		return false
	}
	s.state = StateExpired
	return true
}

// Submit scores the session and returns its result. Answers are scored
// against the answer key copied at start; sim must still hold exactly the
// questions the session started with.
//
// An in-progress session becomes submitted. An expired session may be
// submitted once with whatever answers it holds and stays expired; the
// result is flagged as a grace submission. Any later Submit fails.
func (e *Engine) Submit(s *Session, sim Simulado, now time.Time) (Result, error) {
	if s.scored {
		return Result{}, &StateError{Op: "submit", State: s.State()}
	}
	if st := s.State(); st != StateInProgress && st != StateExpired {
		return Result{}, &StateError{Op: "submit", State: st}
	}
	if sim.ID != s.simuladoID {
		return Result{}, &SimuladoError{SimuladoID: sim.ID, Reason: fmt.Sprintf("session %s belongs to simulado %q", s.id, s.simuladoID)}
	}
	if len(sim.Questions) == 0 {
		return Result{}, &SimuladoError{SimuladoID: sim.ID, Reason: "no questions"}
	}
	if !s.matches(sim) {
		return Result{}, &SimuladoError{SimuladoID: sim.ID, Reason: fmt.Sprintf("questions changed since session %s started", s.id)}
	}

	e.Expire(s, now)
	grace := s.State() == StateExpired

	correct, total, score := s.score()

	elapsed := now.Sub(s.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > s.Duration() {
		elapsed = s.Duration()
	}

	if !grace {
		s.state = StateSubmitted
	}
	s.scored = true

	return Result{
		SessionID:      s.id,
		UserID:         s.userID,
		SimuladoID:     s.simuladoID,
		Answers:        s.Answers(),
		CorrectAnswers: correct,
		TotalQuestions: total,
		Score:          score,
		Elapsed:        elapsed,
		Passed:         score >= e.cfg.thresholdFor(sim),
		CompletedAt:    now,
		GraceSubmit:    grace,
	}, nil
}
