package simd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/advisor"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/metrics"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/outcome"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionIDMissing  = errors.New("session_id is required")
	ErrAdviceRateLimited = errors.New("advice rate limit exceeded")
	ErrOutcomeNotReady   = errors.New("session is still running")
	ErrNoAdvice          = errors.New("no advice requested yet")
)

// CreateOptions are the caller's choices for a new session
type CreateOptions struct {
	ID             string
	Seed           *int64 // nil picks a random seed
	CallbackURL    string
	CallbackSecret string
}

// SessionService hosts sessions: the four entry points, advice and
// completion callbacks. Actions on one session are serialised by the
// session's mutex; the engine itself stays pure.
type SessionService struct {
	store     *SessionStore
	catalog   *config.Catalog
	advisor   advisor.Advisor
	notifier  *Notifier
	rateLimit policy.RateLimitingPolicy
	now       func() time.Time
	log       *slog.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup
}

// NewSessionService creates a service. adv, notifier and rateLimit may be nil.
func NewSessionService(store *SessionStore, catalog *config.Catalog, adv advisor.Advisor, notifier *Notifier, rateLimit policy.RateLimitingPolicy) *SessionService {
	if adv == nil {
		adv = advisor.Heuristic{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		store:      store,
		catalog:    catalog,
		advisor:    adv,
		notifier:   notifier,
		rateLimit:  rateLimit,
		now:        time.Now,
		log:        logger.With("component", "sessions"),
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

// Catalog returns the catalog sessions are played against
func (s *SessionService) Catalog() *config.Catalog {
	return s.catalog
}

// Close cancels in-flight advice and waits for it to finish
func (s *SessionService) Close() {
	s.cancelBase()
	s.wg.Wait()
	if s.notifier != nil {
		s.notifier.Wait()
	}
}

func (s *SessionService) newEngine(seed int64) *engine.Engine {
	return engine.New(s.catalog, utils.NewRandSource(seed))
}

// CreateSession starts a new run in the fixed start state
func (s *SessionService) CreateSession(opts CreateOptions) (Session, error) {
	if opts.CallbackURL != "" {
		id := opts.ID
		if id == "" {
			id = "placeholder"
		}
		if err := validateCallbackURL(replaceSessionID(opts.CallbackURL, id)); err != nil {
			return Session{}, err
		}
	}

	seed := utils.Int63()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	now := s.now()
	e := s.newEngine(seed)
	rec := &SessionRecord{
		ID:             opts.ID,
		Seed:           seed,
		CreatedAt:      now,
		CallbackURL:    opts.CallbackURL,
		CallbackSecret: opts.CallbackSecret,
		Collector:      metrics.NewCollector(),
		engine:         e,
		state:          e.NewState(),
		status:         models.SessionStatusActive,
		updatedAt:      now,
	}
	metrics.RecordState(rec.Collector, rec.state, e.Utilization(rec.state), now)

	if err := s.store.Add(rec); err != nil {
		return Session{}, err
	}

	s.log.Info("session created", "session_id", rec.ID, "seed", seed)
	return rec.View(), nil
}

func (s *SessionService) lookup(id string) (*SessionRecord, error) {
	if id == "" {
		return nil, ErrSessionIDMissing
	}
	rec, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return rec, nil
}

// GetSession returns a copy of the session
func (s *SessionService) GetSession(id string) (Session, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return rec.View(), nil
}

// ListSessions returns sessions oldest first
func (s *SessionService) ListSessions(limit, offset int) []Session {
	recs := s.store.List(limit, offset)
	out := make([]Session, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.View())
	}
	return out
}

// DeleteSession drops a session and cancels its advice
func (s *SessionService) DeleteSession(id string) error {
	if id == "" {
		return ErrSessionIDMissing
	}
	rec, ok := s.store.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	rec.mu.Lock()
	s.cancelAdviceLocked(rec)
	rec.mu.Unlock()
	if s.rateLimit != nil {
		s.rateLimit.Forget(id)
	}

	s.log.Info("session deleted", "session_id", id)
	return nil
}

// Advance plays one round
func (s *SessionService) Advance(id string) (Session, error) {
	return s.act(id, "advance", func(e *engine.Engine, st models.State) (models.State, error) {
		return e.Advance(st)
	})
}

// ScaleUp buys tier target
func (s *SessionService) ScaleUp(id string, target int) (Session, error) {
	return s.act(id, "scale-up", func(e *engine.Engine, st models.State) (models.State, error) {
		return e.ScaleUp(st, target)
	})
}

// Restart begins the reboot of a crashed server
func (s *SessionService) Restart(id string) (Session, error) {
	return s.act(id, "restart", func(e *engine.Engine, st models.State) (models.State, error) {
		return e.Restart(st)
	})
}

// Reset puts the session back to the start state. The random source is
// re-seeded, so a reset run replays the same draws.
func (s *SessionService) Reset(id string) (Session, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	s.cancelAdviceLocked(rec)
	rec.advice = nil

	now := s.now()
	rec.engine = s.newEngine(rec.Seed)
	rec.state = rec.engine.Reset(rec.state)
	rec.status = models.SessionStatusActive
	rec.outcome = nil
	rec.finishedAt = time.Time{}
	rec.updatedAt = now
	rec.resets++

	rec.Collector.Clear()
	metrics.RecordState(rec.Collector, rec.state, rec.engine.Utilization(rec.state), now)

	s.log.Info("session reset", "session_id", id)
	return rec.viewLocked(), nil
}

// act applies fn under the session lock. A rejected action leaves the
// session untouched and returns the engine's precondition error.
func (s *SessionService) act(id, action string, fn func(*engine.Engine, models.State) (models.State, error)) (Session, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next, err := fn(rec.engine, rec.state)
	if err != nil {
		s.log.Debug("action rejected", "session_id", id, "action", action, "error", err)
		return rec.viewLocked(), err
	}

	// The player moved on; advice for the old state is stale
	s.cancelAdviceLocked(rec)

	now := s.now()
	wasTerminal := rec.engine.IsTerminal(rec.state)
	rec.state = next
	rec.updatedAt = now

	if action == "advance" {
		metrics.RecordState(rec.Collector, next, rec.engine.Utilization(next), now)
		s.log.Info("round advanced",
			"session_id", id,
			"round", next.Round,
			"users", next.ActiveUsers,
			"budget", next.Budget)
	} else {
		s.log.Info("action applied", "session_id", id, "action", action, "round", next.Round)
	}

	if !wasTerminal && rec.engine.IsTerminal(next) {
		s.finishLocked(rec, now)
	}
	return rec.viewLocked(), nil
}

// finishLocked classifies the run and sends the completion callback
func (s *SessionService) finishLocked(rec *SessionRecord, now time.Time) {
	o := outcome.Classify(s.catalog.Rules.Outcome, rec.state)
	rec.outcome = &o
	rec.status = models.SessionStatusFinished
	rec.finishedAt = now

	s.log.Info("session finished",
		"session_id", rec.ID,
		"reason", rec.state.TerminationReason,
		"grade", o.Grade,
		"budget", rec.state.Budget)

	if s.notifier != nil && rec.CallbackURL != "" {
		s.notifier.Notify(rec.CallbackURL, rec.CallbackSecret, NotificationPayload{
			SessionID:         rec.ID,
			Status:            rec.status,
			TerminationReason: rec.state.TerminationReason,
			Outcome:           &o,
			Final:             rec.state.Clone(),
			CreatedAtUnixMs:   rec.CreatedAt.UTC().UnixMilli(),
			FinishedAtUnixMs:  now.UTC().UnixMilli(),
		})
	}
}

// GetOutcome returns the grade of a finished session
func (s *SessionService) GetOutcome(id string) (models.Outcome, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Outcome{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.outcome == nil {
		return models.Outcome{}, fmt.Errorf("%w: %s", ErrOutcomeNotReady, id)
	}
	return *rec.outcome, nil
}

// TimeSeries returns the per-round points of metric
func (s *SessionService) TimeSeries(id, metric string) ([]*models.MetricPoint, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := metrics.ValidateMetricName(metric); err != nil {
		return nil, err
	}
	return rec.Collector.GetTimeSeries(metric, nil), nil
}

// MetricsSummary aggregates every series of the session
func (s *SessionService) MetricsSummary(id string) (*models.RunSummary, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return rec.Collector.Summary(), nil
}
