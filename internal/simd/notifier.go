package simd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Callback URL validation errors
var (
	ErrInvalidURL       = errors.New("invalid callback URL")
	ErrMetadataEndpoint = errors.New("callback URL targets a cloud metadata endpoint")
	ErrInternalHost     = errors.New("callback URL targets an internal address")
)

const sessionIDPlaceholder = "{session_id}"

// NotificationPayload is the JSON body posted when a session finishes
type NotificationPayload struct {
	SessionID         string                   `json:"session_id"`
	Status            models.SessionStatus     `json:"status"`
	TerminationReason models.TerminationReason `json:"termination_reason"`
	Outcome           *models.Outcome          `json:"outcome,omitempty"`
	Final             models.State             `json:"final"`
	CreatedAtUnixMs   int64                    `json:"created_at_unix_ms"`
	FinishedAtUnixMs  int64                    `json:"finished_at_unix_ms"`
	Timestamp         int64                    `json:"timestamp"` // when the notification was sent
}

// Notifier posts session completion to a caller supplied URL
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	wg         sync.WaitGroup
}

// NewNotifier creates a notifier with the default settings
func NewNotifier() *Notifier {
	return NewNotifierFromConfig(config.DefaultServerConfig().Notifier)
}

// NewNotifierFromConfig creates a notifier from the daemon config
func NewNotifierFromConfig(cfg config.NotifierConfig) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}
}

// Notify sends the payload asynchronously. It returns immediately; failures
// are logged.
func (n *Notifier) Notify(callbackURL, callbackSecret string, payload NotificationPayload) {
	if callbackURL == "" {
		return
	}

	finalURL := replaceSessionID(callbackURL, payload.SessionID)
	if err := validateCallbackURL(finalURL); err != nil {
		logger.Warn("refusing to send notification",
			"callback_url", finalURL,
			"session_id", payload.SessionID,
			"error", err)
		return
	}

	payload.Timestamp = time.Now().UTC().UnixMilli()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.sendNotification(finalURL, callbackSecret, payload)
	}()
}

// Wait blocks until every pending notification has finished
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// sendNotification performs the HTTP POST with retry logic
func (n *Notifier) sendNotification(callbackURL, callbackSecret string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"session_id", payload.SessionID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			// delay = baseDelay * 2^(attempt-1)
			delay := n.baseDelay * time.Duration(1<<uint(attempt-1))
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"session_id", payload.SessionID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(payloadJSON))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "infra-scaler/1.0")
		if callbackSecret != "" {
			req.Header.Set("X-Scaler-Callback-Secret", callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"session_id", payload.SessionID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		responseBody := string(bodyBytes)
		if len(responseBody) > 200 {
			responseBody = responseBody[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent successfully",
				"session_id", payload.SessionID,
				"termination_reason", payload.TerminationReason,
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"session_id", payload.SessionID,
			"status_code", resp.StatusCode,
			"response_body", responseBody,
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"session_id", payload.SessionID,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}

// replaceSessionID fills the {session_id} template of a callback URL
func replaceSessionID(callbackURL, sessionID string) string {
	return strings.ReplaceAll(callbackURL, sessionIDPlaceholder, url.PathEscape(sessionID))
}

// validateCallbackURL rejects URLs that would let a caller reach internal
// services. The hostname "localhost" is allowed for local development.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	lower := strings.ToLower(host)
	if lower == "metadata.google.internal" || lower == "metadata" {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if lower == "localhost" {
		return nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.Equal(net.IPv4(169, 254, 169, 254)) {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip.IsUnspecified() || isPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrInternalHost, host)
	}
	return nil
}

var privateNets = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}()

func isPrivateIP(ip net.IP) bool {
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
