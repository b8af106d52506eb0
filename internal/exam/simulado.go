package exam

import "fmt"

// Difficulty is the advertised difficulty of a simulado.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Alternative is one answer option of a question.
type Alternative struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is a single multiple-choice question owned by a simulado.
type Question struct {
	ID           string        `json:"id"`
	SimuladoID   string        `json:"simulado_id"`
	Prompt       string        `json:"prompt"`
	Alternatives []Alternative `json:"alternatives"`

	// CorrectAnswer optionally repeats the id of the correct alternative.
	// When set it must agree with the alternative flagged Correct.
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// CorrectAlternativeID returns the id of the alternative flagged correct,
// falling back to CorrectAnswer when no flag is set.
func (q Question) CorrectAlternativeID() string {
	for _, a := range q.Alternatives {
		if a.Correct {
			return a.ID
		}
	}
	return q.CorrectAnswer
}

// HasAlternative reports whether id names one of the question's alternatives.
func (q Question) HasAlternative(id string) bool {
	for _, a := range q.Alternatives {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Simulado is a timed mock exam. It is treated as immutable once a session
// has started from it.
type Simulado struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	Difficulty      Difficulty `json:"difficulty_level"`
	Active          bool       `json:"active"`

	// PassingThreshold overrides the configured threshold when > 0.
	PassingThreshold int        `json:"passing_threshold,omitempty"`
	Questions        []Question `json:"questions"`
}

// Question returns the question with the given id.
func (s Simulado) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks the structural invariants a simulado must satisfy before
// a session can be started from it or it can be persisted.
func (s Simulado) Validate() error {
	if s.ID == "" {
		return &SimuladoError{Reason: "missing id"}
	}
	if s.DurationMinutes <= 0 {
		return &SimuladoError{SimuladoID: s.ID, Reason: "duration must be positive"}
	}
	if len(s.Questions) == 0 {
		return &SimuladoError{SimuladoID: s.ID, Reason: "no questions"}
	}
	if s.PassingThreshold < 0 || s.PassingThreshold > 100 {
		return &SimuladoError{SimuladoID: s.ID, Reason: fmt.Sprintf("passing threshold %d out of range", s.PassingThreshold)}
	}

	seen := make(map[string]bool, len(s.Questions))
	for _, q := range s.Questions {
		if q.ID == "" {
			return &SimuladoError{SimuladoID: s.ID, Reason: "question without id"}
		}
		if seen[q.ID] {
			return &SimuladoError{SimuladoID: s.ID, Reason: fmt.Sprintf("duplicate question %q", q.ID)}
		}
		seen[q.ID] = true

		if q.SimuladoID != "" && q.SimuladoID != s.ID {
			return &SimuladoError{SimuladoID: s.ID, Reason: fmt.Sprintf("question %q belongs to simulado %q", q.ID, q.SimuladoID)}
		}
		if err := validateAlternatives(s.ID, q); err != nil {
			return err
		}
	}
	return nil
}

func validateAlternatives(simuladoID string, q Question) error {
	if len(q.Alternatives) < 2 {
		return &SimuladoError{SimuladoID: simuladoID, Reason: fmt.Sprintf("question %q needs at least two alternatives", q.ID)}
	}

	ids := make(map[string]bool, len(q.Alternatives))
	correct := 0
	for _, a := range q.Alternatives {
		if a.ID == "" {
			return &SimuladoError{SimuladoID: simuladoID, Reason: fmt.Sprintf("question %q has an alternative without id", q.ID)}
		}
		if ids[a.ID] {
			return &SimuladoError{SimuladoID: simuladoID, Reason: fmt.Sprintf("question %q repeats alternative %q", q.ID, a.ID)}
		}
		ids[a.ID] = true
		if a.Correct {
			correct++
		}
	}

	if correct != 1 {
		return &SimuladoError{SimuladoID: simuladoID, Reason: fmt.Sprintf("question %q has %d correct alternatives, want exactly 1", q.ID, correct)}
	}
	if q.CorrectAnswer != "" && q.CorrectAnswer != q.CorrectAlternativeID() {
		return &SimuladoError{SimuladoID: simuladoID, Reason: fmt.Sprintf("question %q correct answer %q disagrees with flagged alternative", q.ID, q.CorrectAnswer)}
	}
	return nil
}

// ClientAlternative is an alternative as shown to a learner during an exam.
type ClientAlternative struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ClientQuestion is a question stripped of every correctness hint.
type ClientQuestion struct {
	ID           string              `json:"id"`
	Prompt       string              `json:"prompt"`
	Alternatives []ClientAlternative `json:"alternatives"`
}

// ClientSimulado is the projection of a simulado that is safe to show
// before submission.
type ClientSimulado struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	DurationMinutes int              `json:"duration_minutes"`
	Difficulty      Difficulty       `json:"difficulty_level"`
	Questions       []ClientQuestion `json:"questions"`
}

// ForClient returns the client projection of the simulado.
func (s Simulado) ForClient() ClientSimulado {
	out := ClientSimulado{
		ID:              s.ID,
		Title:           s.Title,
		DurationMinutes: s.DurationMinutes,
		Difficulty:      s.Difficulty,
		Questions:       make([]ClientQuestion, len(s.Questions)),
	}
	for i, q := range s.Questions {
		cq := ClientQuestion{
			ID:           q.ID,
			Prompt:       q.Prompt,
			Alternatives: make([]ClientAlternative, len(q.Alternatives)),
		}
		for j, a := range q.Alternatives {
			cq.Alternatives[j] = ClientAlternative{ID: a.ID, Text: a.Text}
		}
		out.Questions[i] = cq
	}
	return out
}
