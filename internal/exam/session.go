package exam

import (
	"fmt"
	"maps"
	"time"
)

// Session is one user's attempt at a simulado. Its fields are only changed
// through Engine operations; callers read it through accessors and persist
// it through Record.
type Session struct {
	id              string
	userID          string
	simuladoID      string
	startedAt       time.Time
	durationMinutes int

	// questions maps each question id to its set of alternative ids,
	// copied at start.
	questions map[string]map[string]bool
	// key maps each question id to its correct alternative, copied at start.
	key     map[string]string
	answers map[string]string
	state     State

	// scored is set once Submit has produced the session's result.
	scored bool
}

func (s *Session) ID() string           { return s.id }
func (s *Session) UserID() string       { return s.userID }
func (s *Session) SimuladoID() string   { return s.simuladoID }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) DurationMinutes() int { return s.durationMinutes }
func (s *Session) Scored() bool         { return s.scored }

// State returns the session's lifecycle state.
func (s *Session) State() State {
	if s.state == "" {
		return StateNotStarted
	}
	return s.state
}

// Duration returns the time allowed for the session.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.durationMinutes) * time.Minute
}

// Deadline returns the instant the session runs out of time.
func (s *Session) Deadline() time.Time {
	return s.startedAt.Add(s.Duration())
}

// Answer returns the alternative recorded for questionID.
func (s *Session) Answer(questionID string) (string, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[string]string {
	return maps.Clone(s.answers)
}

// AnsweredCount returns the number of questions with a recorded answer.
func (s *Session) AnsweredCount() int {
	return len(s.answers)
}

// QuestionCount returns the number of questions copied at start.
func (s *Session) QuestionCount() int {
	return len(s.questions)
}

// matches reports whether sim holds exactly the questions and alternatives
// the session started with.
func (s *Session) matches(sim Simulado) bool {
	if len(sim.Questions) != len(s.questions) {
		return false
	}
	for _, q := range sim.Questions {
		alts, ok := s.questions[q.ID]
		if !ok || len(alts) != len(q.Alternatives) {
			return false
		}
		for _, a := range q.Alternatives {
			if !alts[a.ID] {
				return false
			}
		}
	}
	return true
}

// score counts answers matching the answer key. Unanswered questions count
// as incorrect.
func (s *Session) score() (correct, total, score int) {
	total = len(s.questions)
	if total == 0 {
		return 0, 0, 0
	}
	for qid, want := range s.key {
		if a, ok := s.answers[qid]; ok && want != "" && a == want {
			correct++
		}
	}
	return correct, total, percent(correct, total)
}

// Record is the persisted form of a Session.
type Record struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	SimuladoID      string              `json:"simulado_id"`
	StartedAt       time.Time           `json:"started_at"`
	DurationMinutes int                 `json:"duration_minutes"`
	Questions       map[string][]string `json:"questions"`
	Key             map[string]string   `json:"key"`
	Answers         map[string]string   `json:"answers"`
	State           State               `json:"state"`
	Scored          bool                `json:"scored"`
}

// Record exports the session for persistence.
func (s *Session) Record() Record {
	questions := make(map[string][]string, len(s.questions))
	for qid, alts := range s.questions {
		ids := make([]string, 0, len(alts))
		for aid := range alts {
			ids = append(ids, aid)
		}
		questions[qid] = ids
	}
	answers := maps.Clone(s.answers)
	if answers == nil {
		answers = map[string]string{}
	}
	return Record{
		ID:              s.id,
		UserID:          s.userID,
		SimuladoID:      s.simuladoID,
		StartedAt:       s.startedAt,
		DurationMinutes: s.durationMinutes,
		Questions:       questions,
		Key:             maps.Clone(s.key),
		Answers:         answers,
		State:           s.State(),
		Scored:          s.scored,
	}
}

// RestoreSession rebuilds a session from its persisted record.
func RestoreSession(r Record) (*Session, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("restore session: missing id")
	}
	if !r.State.Valid() {
		return nil, fmt.Errorf("restore session %s: unknown state %q", r.ID, r.State)
	}
	if r.DurationMinutes <= 0 {
		return nil, fmt.Errorf("restore session %s: duration must be positive", r.ID)
	}

	questions := make(map[string]map[string]bool, len(r.Questions))
	for qid, alts := range r.Questions {
		set := make(map[string]bool, len(alts))
		for _, aid := range alts {
			set[aid] = true
		}
		questions[qid] = set
	}
	answers := maps.Clone(r.Answers)
	if answers == nil {
		answers = make(map[string]string)
	}
	for qid := range answers {
		if _, ok := questions[qid]; !ok {
			return nil, fmt.Errorf("restore session %s: answer for unknown question %q", r.ID, qid)
		}
	}
	key := maps.Clone(r.Key)
	if key == nil {
		key = make(map[string]string)
	}
	for qid, aid := range key {
		if !questions[qid][aid] {
			return nil, fmt.Errorf("restore session %s: answer key %s=%s not among its questions", r.ID, qid, aid)
		}
	}

	return &Session{
		id:              r.ID,
		userID:          r.UserID,
		simuladoID:      r.SimuladoID,
		startedAt:       r.StartedAt,
		durationMinutes: r.DurationMinutes,
		questions:       questions,
		key:             key,
		answers:         answers,
		state:           r.State,
		scored:          r.Scored,
	}, nil
}
