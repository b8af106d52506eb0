package exam

// State represents an exam session's position in its lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
	StateExpired    State = "expired"
)

// IsTerminal reports whether no further transition can leave the state.
func (s State) IsTerminal() bool {
	return s == StateSubmitted || s == StateExpired
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateNotStarted, StateInProgress, StateSubmitted, StateExpired:
		return true
	}
	return false
}
