package simd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/metrics"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

var (
	ErrSessionExists    = errors.New("session already exists")
	ErrTooManySessions  = errors.New("session limit reached")
	ErrInvalidSessionID = errors.New("invalid session id")
)

// AdviceStatus is the lifecycle of one advice request
type AdviceStatus string

const (
	AdvicePending   AdviceStatus = "pending"
	AdviceReady     AdviceStatus = "ready"
	AdviceCancelled AdviceStatus = "cancelled"
)

// Advice is the latest advice requested for a session
type Advice struct {
	Status      AdviceStatus `json:"status"`
	Round       int          `json:"round"`
	PostMortem  bool         `json:"post_mortem"`
	Text        string       `json:"text,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	CompletedAt time.Time    `json:"completed_at,omitzero"`
}

// SessionRecord is one player's run. Fields below mu are guarded by it;
// the service holds mu for the whole of an action.
type SessionRecord struct {
	ID        string
	Seed      int64
	CreatedAt time.Time

	CallbackURL    string
	CallbackSecret string

	Collector *metrics.Collector

	mu           sync.Mutex
	engine       *engine.Engine
	state        models.State
	status       models.SessionStatus
	outcome      *models.Outcome
	updatedAt    time.Time
	finishedAt   time.Time
	resets       int
	advice       *Advice
	adviceSeq    uint64
	adviceCancel context.CancelFunc
}

// Session is a consistent copy of a record, safe to hand to callers
type Session struct {
	ID         string               `json:"id"`
	Seed       int64                `json:"seed"`
	Status     models.SessionStatus `json:"status"`
	State      models.State         `json:"state"`
	Outcome    *models.Outcome      `json:"outcome,omitempty"`
	Advice     *Advice              `json:"advice,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	FinishedAt time.Time            `json:"finished_at,omitzero"`
	Resets     int                  `json:"resets"`
}

// viewLocked copies the record; caller holds rec.mu
func (rec *SessionRecord) viewLocked() Session {
	v := Session{
		ID:         rec.ID,
		Seed:       rec.Seed,
		Status:     rec.status,
		State:      rec.state.Clone(),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.updatedAt,
		FinishedAt: rec.finishedAt,
		Resets:     rec.resets,
	}
	if rec.outcome != nil {
		o := *rec.outcome
		v.Outcome = &o
	}
	if rec.advice != nil {
		a := *rec.advice
		v.Advice = &a
	}
	return v
}

// View returns a copy of the record
func (rec *SessionRecord) View() Session {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.viewLocked()
}

// SessionStore is the in-memory registry of sessions
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*SessionRecord
	maxSessions int
}

// NewSessionStore creates a store holding at most maxSessions (0 = unbounded)
func NewSessionStore(maxSessions int) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*SessionRecord),
		maxSessions: maxSessions,
	}
}

// Add registers rec, generating an ID when it has none
func (s *SessionStore) Add(rec *SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = utils.GenerateSessionID()
	} else if err := utils.ValidateSessionID(rec.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
	}
	if _, exists := s.sessions[rec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, rec.ID)
	}
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return fmt.Errorf("%w: %d", ErrTooManySessions, s.maxSessions)
	}
	s.sessions[rec.ID] = rec
	return nil
}

// Get returns the record for id
func (s *SessionStore) Get(id string) (*SessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	return rec, ok
}

// Remove deletes id and returns the removed record
func (s *SessionStore) Remove(id string) (*SessionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return rec, ok
}

// List returns records ordered by creation time, then ID
func (s *SessionStore) List(limit, offset int) []*SessionRecord {
	s.mu.RLock()
	all := make([]*SessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		all = append(all, rec)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*SessionRecord{}
	}
	end := utils.Min(offset+limit, len(all))
	return all[offset:end]
}

// Count returns the number of sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// All returns every record in no particular order
func (s *SessionStore) All() []*SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, rec)
	}
	return out
}
