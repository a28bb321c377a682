package simd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/metrics"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

// HTTPServer exposes the session service as a JSON API
type HTTPServer struct {
	mux     *http.ServeMux
	service *SessionService
}

func NewHTTPServer(service *SessionService) *HTTPServer {
	s := &HTTPServer{
		mux:     http.NewServeMux(),
		service: service,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/catalog", s.handleCatalog)
	s.mux.HandleFunc("/v1/sessions", s.handleSessions)
	s.mux.HandleFunc("/v1/sessions/", s.handleSessionByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCatalog handles GET /v1/catalog
func (s *HTTPServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"catalog": s.service.Catalog(),
	})
}

// handleSessions handles /v1/sessions
func (s *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSessionByID routes /v1/sessions/{id} and its actions and sub-resources
func (s *HTTPServer) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	// Actions: /v1/sessions/{id}:verb
	if id, verb, ok := strings.Cut(path, ":"); ok {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleAction(w, r, id, verb)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, id)
		case http.MethodDelete:
			s.handleDeleteSession(w, id)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "advice":
		switch r.Method {
		case http.MethodPost:
			s.handleRequestAdvice(w, id)
		case http.MethodGet:
			s.handleGetAdvice(w, id)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "outcome":
		s.requireGet(w, r, func() { s.handleGetOutcome(w, id) })
	case "metrics":
		s.requireGet(w, r, func() { s.handleMetricsSummary(w, id) })
	case "metrics/timeseries":
		s.requireGet(w, r, func() { s.handleTimeSeries(w, r, id) })
	case "events":
		s.requireGet(w, r, func() { s.handleEventStream(w, r, id) })
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource: "+sub)
	}
}

func (s *HTTPServer) requireGet(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fn()
}

// handleCreateSession handles POST /v1/sessions
func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID      string `json:"session_id,omitempty"`
		Seed           *int64 `json:"seed,omitempty"`
		CallbackURL    string `json:"callback_url,omitempty"`
		CallbackSecret string `json:"callback_secret,omitempty"`
	}

	// An empty body creates a session with defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := s.service.CreateSession(CreateOptions{
		ID:             req.SessionID,
		Seed:           req.Seed,
		CallbackURL:    req.CallbackURL,
		CallbackSecret: req.CallbackSecret,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	logger.Info("session created (HTTP)", "session_id", sess.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"session": sess,
	})
}

// handleListSessions handles GET /v1/sessions with pagination
func (s *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = utils.Clamp(parsed, 1, 1000)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	sessions := s.service.ListSessions(limit, offset)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(sessions),
		},
	})
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, id string) {
	sess, err := s.service.GetSession(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
	})
}

func (s *HTTPServer) handleDeleteSession(w http.ResponseWriter, id string) {
	if err := s.service.DeleteSession(id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAction handles POST /v1/sessions/{id}:advance|:scale-up|:restart|:reset
func (s *HTTPServer) handleAction(w http.ResponseWriter, r *http.Request, id, verb string) {
	var (
		sess Session
		err  error
	)
	switch verb {
	case "advance":
		sess, err = s.service.Advance(id)
	case "scale-up":
		var req struct {
			TargetTier *int `json:"target_tier"`
		}
		if decErr := json.NewDecoder(r.Body).Decode(&req); decErr != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+decErr.Error())
			return
		}
		if req.TargetTier == nil {
			s.writeError(w, http.StatusBadRequest, "target_tier is required")
			return
		}
		sess, err = s.service.ScaleUp(id, *req.TargetTier)
	case "restart":
		sess, err = s.service.Restart(id)
	case "reset":
		sess, err = s.service.Reset(id)
	default:
		s.writeError(w, http.StatusNotFound, "unknown action: "+verb)
		return
	}

	if err != nil {
		if engine.IsPreconditionError(err) {
			s.writeJSON(w, http.StatusConflict, map[string]any{
				"error":   err.Error(),
				"session": sess,
			})
			return
		}
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
	})
}

func (s *HTTPServer) handleRequestAdvice(w http.ResponseWriter, id string) {
	adv, err := s.service.RequestAdvice(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"advice": adv,
	})
}

func (s *HTTPServer) handleGetAdvice(w http.ResponseWriter, id string) {
	adv, err := s.service.GetAdvice(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"advice": adv,
	})
}

func (s *HTTPServer) handleGetOutcome(w http.ResponseWriter, id string) {
	o, err := s.service.GetOutcome(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"outcome": o,
	})
}

func (s *HTTPServer) handleMetricsSummary(w http.ResponseWriter, id string) {
	summary, err := s.service.MetricsSummary(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"summary":    summary,
	})
}

// handleTimeSeries handles GET /v1/sessions/{id}/metrics/timeseries?metric=
// Without a metric every series is returned.
func (s *HTTPServer) handleTimeSeries(w http.ResponseWriter, r *http.Request, id string) {
	names := metrics.MetricNames
	if name := r.URL.Query().Get("metric"); name != "" {
		names = []string{name}
	}

	var fromRound int
	if fromStr := r.URL.Query().Get("from_round"); fromStr != "" {
		parsed, err := strconv.Atoi(fromStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid from_round: "+err.Error())
			return
		}
		fromRound = parsed
	}

	pointsJSON := make([]map[string]any, 0)
	for _, name := range names {
		points, err := s.service.TimeSeries(id, name)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		for _, p := range points {
			if p.Round < fromRound {
				continue
			}
			pointsJSON = append(pointsJSON, map[string]any{
				"round":     p.Round,
				"timestamp": p.Timestamp.Format(time.RFC3339Nano),
				"metric":    p.Name,
				"value":     p.Value,
			})
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"points":     pointsJSON,
	})
}

// handleEventStream streams session updates as Server-Sent Events until the
// session finishes or the client goes away.
func (s *HTTPServer) handleEventStream(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.service.GetSession(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	interval := 500 * time.Millisecond
	if intervalStr := r.URL.Query().Get("interval_ms"); intervalStr != "" {
		if ms, err := strconv.ParseInt(intervalStr, 10, 64); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	cursor := &logCursor{resets: sess.Resets}
	emit := func(sess Session) bool {
		if cursor.reset(sess) {
			s.sendSSEEvent(w, "reset", map[string]any{"resets": sess.Resets})
		}
		for _, e := range cursor.next(sess) {
			s.sendSSEEvent(w, "log", map[string]any{
				"round": e.Round,
				"kind":  e.Kind,
				"text":  e.Text,
			})
		}
		s.sendSSEEvent(w, "state", map[string]any{
			"status": sess.Status,
			"state":  stateSummary(sess.State),
		})
		if sess.Status == models.SessionStatusFinished {
			s.sendSSEEvent(w, "complete", map[string]any{
				"outcome": sess.Outcome,
			})
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		return sess.Status == models.SessionStatusFinished
	}

	if emit(sess) {
		return
	}
	lastUpdate := sess.UpdatedAt

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess, err := s.service.GetSession(id)
			if err != nil {
				s.sendSSEEvent(w, "error", map[string]any{"error": err.Error()})
				return
			}
			if sess.UpdatedAt.Equal(lastUpdate) {
				continue
			}
			lastUpdate = sess.UpdatedAt
			if emit(sess) {
				return
			}
		}
	}
}

// logCursor tracks how much of a session log a stream has delivered.
// Every reset starts a new log, so the cursor rewinds when the reset
// count moves, whatever the new log's length.
type logCursor struct {
	resets int
	sent   int
}

// reset rewinds the cursor if the session was reset since the last call
func (c *logCursor) reset(sess Session) bool {
	if sess.Resets == c.resets {
		return false
	}
	c.resets = sess.Resets
	c.sent = 0
	return true
}

// next returns the entries not delivered yet and advances the cursor
func (c *logCursor) next(sess Session) []models.LogEntry {
	log := sess.State.Log
	out := log[utils.Min(c.sent, len(log)):]
	c.sent = len(log)
	return out
}

func stateSummary(st models.State) map[string]any {
	return map[string]any{
		"round":              st.Round,
		"tier_index":         st.TierIndex,
		"active_users":       st.ActiveUsers,
		"budget":             st.Budget,
		"satisfaction":       st.Satisfaction,
		"stability":          st.Stability,
		"latency_ms":         st.LatencyMs,
		"down":               st.IsDown(),
		"awaiting_restart":   st.AwaitingRestart(),
		"termination_reason": st.TerminationReason,
	}
}

// sendSSEEvent writes one Server-Sent Event
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, data map[string]any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to marshal SSE event data", "error", err)
		return
	}

	// Streams are best-effort: write errors are logged only
	if _, err := w.Write([]byte("event: " + eventType + "\n")); err != nil {
		logger.Error("failed to write SSE event header", "error", err)
		return
	}
	if _, err := w.Write([]byte("data: " + string(jsonData) + "\n\n")); err != nil {
		logger.Error("failed to write SSE event data", "error", err)
	}
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, httpStatusFor(err), err.Error())
}

// httpStatusFor maps service and engine errors to HTTP status codes
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNoAdvice):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionIDMissing),
		errors.Is(err, ErrInvalidSessionID),
		errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrMetadataEndpoint),
		errors.Is(err, ErrInternalHost),
		errors.Is(err, metrics.ErrUnknownMetric):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionExists), engine.IsPreconditionError(err):
		return http.StatusConflict
	case errors.Is(err, ErrOutcomeNotReady):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrAdviceRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
