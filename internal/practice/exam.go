package practice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/belmiro-kunga/certquest/internal/catalog"
	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/store"
)

// ErrSessionInProgress is returned when a user starts a simulado they
// already have an open session for.
var ErrSessionInProgress = errors.New("practice: session already in progress")

// ActiveSessionError names the open session that blocked a start.
type ActiveSessionError struct {
	UserID     string
	SimuladoID string
	SessionID  string
}

func (e *ActiveSessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("practice: %s already has a session in progress for %s", e.UserID, e.SimuladoID)
	}
	return fmt.Sprintf("practice: %s already has session %s in progress for %s", e.UserID, e.SessionID, e.SimuladoID)
}

func (e *ActiveSessionError) Unwrap() error { return ErrSessionInProgress }

// SimuladoInUseError reports a catalog import that would replace a simulado
// while sessions on it are still running.
type SimuladoInUseError struct {
	SimuladoID string
	Sessions   int
}

func (e *SimuladoInUseError) Error() string {
	return fmt.Sprintf("practice: simulado %s has %d session(s) in progress", e.SimuladoID, e.Sessions)
}

func (e *SimuladoInUseError) Unwrap() error { return store.ErrConflict }

// Event actions recorded for exam sessions.
const (
	ActionStart  = "start"
	ActionAnswer = "answer"
	ActionExpire = "expire"
	ActionSubmit = "submit"
)

// QuotaStatus is a snapshot of a user's weekly attempts.
type QuotaStatus struct {
	UserID    string     `json:"user_id"`
	Plan      quota.Plan `json:"plan"`
	Used      int        `json:"used"`
	Allowed   int        `json:"allowed"`
	Remaining int        `json:"remaining"`
	ResetsAt  time.Time  `json:"resets_at,omitzero"`
}

// TickStatus reports a session's clock after a Tick.
type TickStatus struct {
	RemainingSeconds int
	State            exam.State
	Expired          bool // the session expired during this tick
}

// ExamService runs exam sessions against the store. Every operation that
// writes holds mu, so a user's quota check and increment cannot interleave
// with another start in the same process.
type ExamService struct {
	base
	mu     sync.Mutex
	store  *store.Store
	engine *exam.Engine
	cfg    Config
}

// NewExamService creates an exam service.
func NewExamService(st *store.Store, cfg Config, opts ...Option) *ExamService {
	return &ExamService{
		base:   newBase(opts),
		store:  st,
		engine: exam.NewEngine(cfg.Exam),
		cfg:    cfg,
	}
}

// Start opens a session on simuladoID for userID. The quota check, the
// session insert and the attempt increment commit together.
func (s *ExamService) Start(ctx context.Context, userID, simuladoID string) (*exam.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var sess *exam.Session
	var settled []settledSession
	err := s.store.InTx(ctx, func(r store.Repos) error {
		sim, err := r.Simulados().Get(ctx, simuladoID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &exam.SimuladoError{SimuladoID: simuladoID, Reason: "not found"}
			}
			return err
		}

		settled, err = s.settleStale(ctx, r, userID, now)
		if err != nil {
			return err
		}

		q, err := r.Quotas().GetQuota(ctx, userID, now, s.cfg.Quota)
		if err != nil {
			return err
		}
		sess, err = s.engine.Start(sim, q, now)
		if err != nil {
			return err
		}
		if err := r.Sessions().Insert(ctx, sess); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return &ActiveSessionError{UserID: userID, SimuladoID: simuladoID, SessionID: s.openSessionID(ctx, r, userID, simuladoID)}
			}
			return err
		}
		return r.Quotas().IncrementAttempts(ctx, userID, sess.ID(), now)
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", simuladoID, err)
	}

	s.logSettled(ctx, settled)
	s.logEvent(ctx, sess, ActionStart, "", "", "")
	return sess, nil
}

// settledSession is a session scored by settleStale. expired is set when
// settling also moved it out of in_progress.
type settledSession struct {
	sess    *exam.Session
	result  *exam.Result
	expired bool
}

// settleStale finds the user's sessions whose time ran out without a
// result, whether still marked in progress or already expired, and scores
// each as a grace submission so the attempt it used is not lost. Events are
// logged by the caller once the transaction is done.
func (s *ExamService) settleStale(ctx context.Context, r store.Repos, userID string, now time.Time) ([]settledSession, error) {
	pending, err := r.Sessions().Unscored(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []settledSession
	for _, sess := range pending {
		st := settledSession{sess: sess, expired: s.engine.Expire(sess, now)}
		if sess.State() != exam.StateExpired {
			continue
		}
		res, err := s.graceSubmit(ctx, r, sess, now)
		if err != nil {
			return nil, err
		}
		st.result = res
		if err := r.Sessions().Update(ctx, sess); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// graceSubmit scores an expired session against its simulado. A session
// whose simulado can no longer score it stays expired without a result.
func (s *ExamService) graceSubmit(ctx context.Context, r store.Repos, sess *exam.Session, now time.Time) (*exam.Result, error) {
	sim, err := r.Simulados().Get(ctx, sess.SimuladoID())
	if errors.Is(err, store.ErrNotFound) {
		s.warn("session %s: simulado %s is gone, leaving it unscored", sess.ID(), sess.SimuladoID())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Submit(sess, sim, now)
	if errors.Is(err, exam.ErrInvalidSimulado) {
		s.warn("session %s: %v, leaving it unscored", sess.ID(), err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.Results().Save(ctx, res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *ExamService) logSettled(ctx context.Context, settled []settledSession) {
	for _, st := range settled {
		if st.expired {
			s.logEvent(ctx, st.sess, ActionExpire, "", "", "")
		}
		if st.result != nil {
			s.logEvent(ctx, st.sess, ActionSubmit, "", "", submitDetail(*st.result))
		}
	}
}

// ownedSession loads sessionID on behalf of userID. Another user's session
// is reported as not found.
func ownedSession(ctx context.Context, sessions store.SessionRepo, userID, sessionID string) (*exam.Session, error) {
	sess, err := sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID() != userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	return sess, nil
}

func (s *ExamService) openSessionID(ctx context.Context, r store.Repos, userID, simuladoID string) string {
	active, err := r.Sessions().Active(ctx, userID)
	if err != nil {
		return ""
	}
	for _, sess := range active {
		if sess.SimuladoID() == simuladoID {
			return sess.ID()
		}
	}
	return ""
}

// Answer records alternativeID for questionID in userID's session. A
// session found past its deadline is expired and persisted, and the answer
// is rejected.
func (s *ExamService) Answer(ctx context.Context, userID, sessionID, questionID, alternativeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := ownedSession(ctx, s.store.Sessions(), userID, sessionID)
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}

	now := s.now()
	if s.engine.Expire(sess, now) {
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		s.logEvent(ctx, sess, ActionExpire, "", "", "")
	}

	if err := s.engine.RecordAnswer(sess, questionID, alternativeID); err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	s.logEvent(ctx, sess, ActionAnswer, questionID, alternativeID, "")
	return nil
}

// Tick reads the session's clock and expires it once time has run out.
// Ticking a finished session only reports its state.
func (s *ExamService) Tick(ctx context.Context, userID, sessionID string) (TickStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := ownedSession(ctx, s.store.Sessions(), userID, sessionID)
	if err != nil {
		return TickStatus{}, fmt.Errorf("tick: %w", err)
	}

	now := s.now()
	st := TickStatus{State: sess.State()}
	if sess.State() == exam.StateInProgress {
		st.RemainingSeconds = s.engine.RemainingSeconds(sess, now)
	}
	if s.engine.Expire(sess, now) {
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return TickStatus{}, fmt.Errorf("tick: %w", err)
		}
		s.logEvent(ctx, sess, ActionExpire, "", "", "")
		st.State = sess.State()
		st.Expired = true
	}
	return st, nil
}

// Submit scores userID's session and stores the updated session with its
// result in one transaction. An expired session can be submitted once.
func (s *ExamService) Submit(ctx context.Context, userID, sessionID string) (exam.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var (
		sess   *exam.Session
		result exam.Result
	)
	err := s.store.InTx(ctx, func(r store.Repos) error {
		var err error
		sess, err = ownedSession(ctx, r.Sessions(), userID, sessionID)
		if err != nil {
			return err
		}
		sim, err := r.Simulados().Get(ctx, sess.SimuladoID())
		if err != nil {
			return err
		}
		result, err = s.engine.Submit(sess, sim, now)
		if err != nil {
			return err
		}
		if err := r.Sessions().Update(ctx, sess); err != nil {
			return err
		}
		return r.Results().Save(ctx, result)
	})
	if err != nil {
		return exam.Result{}, fmt.Errorf("submit %s: %w", sessionID, err)
	}

	s.logEvent(ctx, sess, ActionSubmit, "", "", submitDetail(result))
	return result, nil
}

func submitDetail(r exam.Result) string {
	detail := fmt.Sprintf("score=%d passed=%t", r.Score, r.Passed)
	if r.GraceSubmit {
		detail += " grace"
	}
	return detail
}

// Session loads one of userID's sessions by id.
func (s *ExamService) Session(ctx context.Context, userID, sessionID string) (*exam.Session, error) {
	sess, err := ownedSession(ctx, s.store.Sessions(), userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// ActiveSessions returns the user's sessions that are still running. Any
// whose time ran out while nobody was ticking them is expired and scored
// as a grace submission first.
func (s *ExamService) ActiveSessions(ctx context.Context, userID string) ([]*exam.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var running []*exam.Session
	var settled []settledSession
	err := s.store.InTx(ctx, func(r store.Repos) error {
		var err error
		settled, err = s.settleStale(ctx, r, userID, now)
		if err != nil {
			return err
		}
		running, err = r.Sessions().Active(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	s.logSettled(ctx, settled)
	return running, nil
}

// Resume returns the user's running session on simuladoID, or starts a new
// one when there is none.
func (s *ExamService) Resume(ctx context.Context, userID, simuladoID string) (*exam.Session, error) {
	running, err := s.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sess := range running {
		if sess.SimuladoID() == simuladoID {
			return sess, nil
		}
	}
	return s.Start(ctx, userID, simuladoID)
}

// RemainingSeconds returns the whole seconds left in sess at the service's
// clock without touching the store.
func (s *ExamService) RemainingSeconds(sess *exam.Session) int {
	return s.engine.RemainingSeconds(sess, s.now())
}

// History returns the user's results, newest first.
func (s *ExamService) History(ctx context.Context, userID string, limit int) ([]exam.Result, error) {
	results, err := s.store.Results().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return results, nil
}

// Result returns the result of one of userID's sessions.
func (s *ExamService) Result(ctx context.Context, userID, sessionID string) (exam.Result, error) {
	r, err := s.store.Results().BySession(ctx, sessionID)
	if err == nil && r.UserID != userID {
		err = fmt.Errorf("result %s: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return exam.Result{}, fmt.Errorf("result: %w", err)
	}
	return r, nil
}

// Quota reports the user's attempts in the current window.
func (s *ExamService) Quota(ctx context.Context, userID string) (QuotaStatus, error) {
	now := s.now()
	q, err := s.store.Quotas().GetQuota(ctx, userID, now, s.cfg.Quota)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("quota: %w", err)
	}
	return QuotaStatus{
		UserID:    userID,
		Plan:      q.Plan,
		Used:      q.Used(now),
		Allowed:   q.Allowed,
		Remaining: q.Remaining(now),
		ResetsAt:  q.ResetsAt(now),
	}, nil
}

// SetPlan moves the user to plan. Attempts already made keep counting.
func (s *ExamService) SetPlan(ctx context.Context, userID string, plan quota.Plan) error {
	if _, err := s.cfg.Quota.Allowed(plan); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Quotas().SetPlan(ctx, userID, plan, s.now()); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

// ClientView returns the simulado as it may be shown before submission.
func (s *ExamService) ClientView(ctx context.Context, simuladoID string) (exam.ClientSimulado, error) {
	sim, err := s.Simulado(ctx, simuladoID)
	if err != nil {
		return exam.ClientSimulado{}, err
	}
	return sim.ForClient(), nil
}

// Simulado loads a full simulado, correctness included. Callers must not
// show it to a learner with an open session on it.
func (s *ExamService) Simulado(ctx context.Context, simuladoID string) (exam.Simulado, error) {
	sim, err := s.store.Simulados().Get(ctx, simuladoID)
	if err != nil {
		return exam.Simulado{}, fmt.Errorf("load simulado: %w", err)
	}
	return sim, nil
}

// Simulados lists the catalog. Inactive simulados are included only when
// all is set.
func (s *ExamService) Simulados(ctx context.Context, all bool) ([]store.SimuladoSummary, error) {
	list, err := s.store.Simulados().List(ctx, !all)
	if err != nil {
		return nil, fmt.Errorf("list simulados: %w", err)
	}
	return list, nil
}

// Import saves every simulado of doc in one transaction. A simulado with
// sessions still running cannot be replaced; sessions on it whose time ran
// out are scored first and do not block.
func (s *ExamService) Import(ctx context.Context, doc *catalog.Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var settled []settledSession
	err := s.store.InTx(ctx, func(r store.Repos) error {
		for _, sim := range doc.Simulados {
			active, err := r.Sessions().ActiveOnSimulado(ctx, sim.ID)
			if err != nil {
				return err
			}
			running := 0
			for _, sess := range active {
				if !s.engine.Expire(sess, now) {
					running++
					continue
				}
				res, err := s.graceSubmit(ctx, r, sess, now)
				if err != nil {
					return err
				}
				if err := r.Sessions().Update(ctx, sess); err != nil {
					return err
				}
				settled = append(settled, settledSession{sess: sess, result: res, expired: true})
			}
			if running > 0 {
				return &SimuladoInUseError{SimuladoID: sim.ID, Sessions: running}
			}
			if err := r.Simulados().Save(ctx, sim); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import catalog: %w", err)
	}
	s.logSettled(ctx, settled)
	return len(doc.Simulados), nil
}

// Events returns the audit trail of one of userID's sessions.
func (s *ExamService) Events(ctx context.Context, userID, sessionID string, opts store.QueryOpts) ([]store.ExamEventRecord, error) {
	if _, err := ownedSession(ctx, s.store.Sessions(), userID, sessionID); err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	events, err := s.store.Events().ExamEvents(ctx, sessionID, opts)
	if err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	return events, nil
}

// logEvent appends an exam event. Failures are reported but never fail the
// operation that produced the event.
func (s *ExamService) logEvent(ctx context.Context, sess *exam.Session, action, questionID, alternativeID, detail string) {
	err := s.store.Events().AppendExamEvent(ctx, store.ExamEventData{
		SessionID:     sess.ID(),
		UserID:        sess.UserID(),
		Action:        action,
		QuestionID:    questionID,
		AlternativeID: alternativeID,
		State:         sess.State(),
		RemainingSecs: s.engine.RemainingSeconds(sess, s.now()),
		Detail:        detail,
	})
	if err != nil {
		s.warn("failed to log %s event for session %s: %v", action, sess.ID(), err)
	}
}
