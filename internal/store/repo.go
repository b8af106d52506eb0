package store

import (
	"context"
	"errors"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/spacedrep"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a write violates a uniqueness rule, such
	// as a second in-progress session for the same simulado or a second
	// result for the same session.
	ErrConflict = errors.New("store: conflict")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int   // max results (0 = unlimited)
	After int64 // sequence > After
}

// SimuladoRepo persists simulado definitions.
type SimuladoRepo interface {
	// Save inserts or replaces a simulado and all of its questions.
	Save(ctx context.Context, sim exam.Simulado) error

	// Get returns the simulado with its questions in order.
	Get(ctx context.Context, id string) (exam.Simulado, error)

	// List returns simulados ordered by id, without questions loaded.
	List(ctx context.Context, activeOnly bool) ([]SimuladoSummary, error)
}

// SimuladoSummary is a simulado row without its questions.
type SimuladoSummary struct {
	ID               string
	Title            string
	DurationMinutes  int
	Difficulty       exam.Difficulty
	Active           bool
	PassingThreshold int
	QuestionCount    int
}

// SessionRepo persists exam sessions.
type SessionRepo interface {
	// Insert stores a new session. Returns ErrConflict if the user already
	// has a session in progress for the same simulado.
	Insert(ctx context.Context, s *exam.Session) error

	// Update overwrites a stored session with its current state.
	Update(ctx context.Context, s *exam.Session) error

	// Get loads a session by id.
	Get(ctx context.Context, id string) (*exam.Session, error)

	// Active returns the user's in-progress sessions, oldest first.
	Active(ctx context.Context, userID string) ([]*exam.Session, error)

	// Unscored returns the user's in-progress and expired sessions that
	// have no result yet, oldest first.
	Unscored(ctx context.Context, userID string) ([]*exam.Session, error)

	// ActiveOnSimulado returns every user's in-progress sessions on
	// simuladoID.
	ActiveOnSimulado(ctx context.Context, simuladoID string) ([]*exam.Session, error)
}

// ResultRepo is the sink for submitted exam results.
type ResultRepo interface {
	// Save stores a result. Returns ErrConflict if the session already has one.
	Save(ctx context.Context, r exam.Result) error

	// ListByUser returns the user's results, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]exam.Result, error)

	// BySession returns the result of one session.
	BySession(ctx context.Context, sessionID string) (exam.Result, error)
}

// QuotaRepo persists plans and exam attempts.
type QuotaRepo interface {
	// GetQuota assembles the user's attempt quota as of now.
	GetQuota(ctx context.Context, userID string, now time.Time, cfg quota.Config) (*quota.AttemptQuota, error)

	// IncrementAttempts records one attempt for sessionID at the given time.
	IncrementAttempts(ctx context.Context, userID, sessionID string, at time.Time) error

	// SetPlan changes the user's plan.
	SetPlan(ctx context.Context, userID string, plan quota.Plan, at time.Time) error
}

// FlashcardRepo persists review states by (user, card).
type FlashcardRepo interface {
	// Get returns the card's state. Returns ErrNotFound if it was never reviewed.
	Get(ctx context.Context, userID, cardID string) (spacedrep.ReviewState, error)

	// Save inserts or replaces the card's state.
	Save(ctx context.Context, rs spacedrep.ReviewState) error

	// ListByUser returns every state the user owns, ordered by card id.
	ListByUser(ctx context.Context, userID string) ([]spacedrep.ReviewState, error)
}

// ExamEventData captures one step of an exam session's life.
type ExamEventData struct {
	SessionID     string
	UserID        string
	Action        string // start, answer, expire, submit
	QuestionID    string
	AlternativeID string
	State         exam.State
	RemainingSecs int
	Detail        string
}

// ExamEventRecord is a stored exam event.
type ExamEventRecord struct {
	ExamEventData
	Sequence  int64
	Timestamp time.Time
}

// ReviewEventData captures one flashcard review.
type ReviewEventData struct {
	UserID       string
	CardID       string
	Quality      spacedrep.Quality
	FromStatus   spacedrep.Status
	ToStatus     spacedrep.Status
	IntervalDays int
	EaseFactor   float64
	NextDueAt    time.Time
}

// ReviewEventRecord is a stored review event.
type ReviewEventRecord struct {
	ReviewEventData
	Sequence  int64
	Timestamp time.Time
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendExamEvent records a session lifecycle event.
	AppendExamEvent(ctx context.Context, data ExamEventData) error

	// AppendReviewEvent records a flashcard review.
	AppendReviewEvent(ctx context.Context, data ReviewEventData) error

	// ExamEvents returns a session's events in sequence order.
	ExamEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]ExamEventRecord, error)

	// ReviewEvents returns a card's review events in sequence order.
	ReviewEvents(ctx context.Context, userID, cardID string, opts QueryOpts) ([]ReviewEventRecord, error)
}

// Repos hands out repositories bound to one connection: the store's
// driver, or a transaction inside InTx.
type Repos struct {
	conn dialect.ExecQuerier
	seq  *sequenceCounter
}

func (r Repos) Simulados() SimuladoRepo   { return &simuladoRepo{conn: r.conn} }
func (r Repos) Sessions() SessionRepo     { return &sessionRepo{conn: r.conn} }
func (r Repos) Results() ResultRepo       { return &resultRepo{conn: r.conn} }
func (r Repos) Quotas() QuotaRepo         { return &quotaRepo{conn: r.conn} }
func (r Repos) Flashcards() FlashcardRepo { return &flashcardRepo{conn: r.conn} }
func (r Repos) Events() EventRepo         { return &eventRepo{conn: r.conn, seq: r.seq} }

// builder returns a SQL builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isConstraint reports whether err is a SQLite constraint violation.
func isConstraint(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
