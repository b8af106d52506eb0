package exam

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match them with errors.Is; the typed errors below carry
// the details and unwrap to these.
var (
	ErrInvalidState       = errors.New("exam: invalid session state")
	ErrUnknownQuestion    = errors.New("exam: unknown question")
	ErrUnknownAlternative = errors.New("exam: unknown alternative")
	ErrInvalidSimulado    = errors.New("exam: invalid simulado")
)

// StateError reports an operation invoked against a session in the wrong phase.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("exam: cannot %s a session in state %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// SimuladoError reports a simulado that cannot be used for an exam.
type SimuladoError struct {
	SimuladoID string
	Reason     string
}

func (e *SimuladoError) Error() string {
	if e.SimuladoID == "" {
		return fmt.Sprintf("exam: invalid simulado: %s", e.Reason)
	}
	return fmt.Sprintf("exam: invalid simulado %q: %s", e.SimuladoID, e.Reason)
}

func (e *SimuladoError) Unwrap() error { return ErrInvalidSimulado }

// QuestionError reports a question or alternative id that does not belong to
// the session's simulado.
type QuestionError struct {
	QuestionID    string
	AlternativeID string

	// Alternative is set when the question exists but the alternative does
	// not, including an empty alternative id.
	Alternative bool
}

func (e *QuestionError) Error() string {
	if e.Alternative {
		return fmt.Sprintf("exam: question %q has no alternative %q", e.QuestionID, e.AlternativeID)
	}
	return fmt.Sprintf("exam: unknown question %q", e.QuestionID)
}

func (e *QuestionError) Unwrap() error {
	if e.Alternative {
		return ErrUnknownAlternative
	}
	return ErrUnknownQuestion
}
