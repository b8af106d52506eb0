package examrun

import (
	"time"

	"github.com/belmiro-kunga/certquest/internal/exam"
)

// sessionReadyMsg is sent once the session is started or resumed.
type sessionReadyMsg struct {
	Session *exam.Session
	View    exam.ClientSimulado
	Err     error
}

// timerTickMsg is sent every second to drive the countdown.
type timerTickMsg time.Time

// submittedMsg carries the scored session.
type submittedMsg struct {
	Result   exam.Result
	Simulado exam.Simulado
	Err      error
}
