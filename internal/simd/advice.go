package simd

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/advisor"
)

// RequestAdvice starts generating advice for the current state and returns
// the pending request. Any earlier request still in flight is cancelled.
func (s *SessionService) RequestAdvice(id string) (Advice, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Advice{}, err
	}
	if s.rateLimit != nil && !s.rateLimit.AllowRequest(id, s.now()) {
		return Advice{}, fmt.Errorf("%w: %s", ErrAdviceRateLimited, id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	s.cancelAdviceLocked(rec)

	snap := advisor.NewSnapshot(rec.engine, rec.state)
	rec.adviceSeq++
	seq := rec.adviceSeq
	rec.advice = &Advice{
		Status:      AdvicePending,
		Round:       rec.state.Round,
		PostMortem:  snap.Terminal(),
		RequestedAt: s.now(),
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	rec.adviceCancel = cancel

	s.wg.Add(1)
	go s.runAdvice(ctx, rec, seq, snap)

	s.log.Debug("advice requested", "session_id", id, "round", rec.state.Round, "post_mortem", snap.Terminal())
	return *rec.advice, nil
}

// GetAdvice returns the latest advice request of a session
func (s *SessionService) GetAdvice(id string) (Advice, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Advice{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.advice == nil {
		return Advice{}, fmt.Errorf("%w: %s", ErrNoAdvice, id)
	}
	return *rec.advice, nil
}

func (s *SessionService) runAdvice(ctx context.Context, rec *SessionRecord, seq uint64, snap advisor.Snapshot) {
	defer s.wg.Done()

	text, err := s.advisor.Advise(ctx, snap)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	// Superseded or cancelled while generating
	if rec.adviceSeq != seq || rec.advice == nil {
		return
	}
	rec.adviceCancel = nil
	if err != nil {
		rec.advice.Status = AdviceCancelled
		s.log.Debug("advice cancelled", "session_id", rec.ID, "error", err)
		return
	}
	rec.advice.Status = AdviceReady
	rec.advice.Text = text
	rec.advice.CompletedAt = s.now()
	s.log.Info("advice ready", "session_id", rec.ID, "round", rec.advice.Round)
}

// cancelAdviceLocked stops in-flight advice; caller holds rec.mu
func (s *SessionService) cancelAdviceLocked(rec *SessionRecord) {
	if rec.adviceCancel == nil {
		return
	}
	rec.adviceCancel()
	rec.adviceCancel = nil
	rec.adviceSeq++
	if rec.advice != nil && rec.advice.Status == AdvicePending {
		rec.advice.Status = AdviceCancelled
	}
}
