package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
)

const userAgent = "InfraScaler-Advisor/1.0"

// GenerateRequest is the body posted to the text generation endpoint
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// GenerateResponse is the body expected back. Text is preferred; Candidates
// covers endpoints that answer in the Gemini generateContent shape.
type GenerateResponse struct {
	Text       string `json:"text"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r GenerateResponse) text() string {
	if t := strings.TrimSpace(r.Text); t != "" {
		return t
	}
	var parts []string
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if t := strings.TrimSpace(p.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			break
		}
	}
	return strings.Join(parts, "\n")
}

// HTTPGenerator posts prompts to a JSON text generation endpoint.
// A single call makes a single request; retries belong to Service.
type HTTPGenerator struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPGenerator creates a generator from the advisor config
func NewHTTPGenerator(cfg config.AdvisorConfig) *HTTPGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate sends one request and returns the generated text
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(GenerateRequest{Model: g.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create advisor request: %w: %w", policy.ErrNonRetryable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("advisor request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read advisor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		err := fmt.Errorf("advisor returned status %d: %s", resp.StatusCode, snippet)
		if permanentStatus(resp.StatusCode) {
			return "", fmt.Errorf("%w: %w", policy.ErrNonRetryable, err)
		}
		return "", err
	}

	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode advisor response: %w", err)
	}
	text := out.text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// 4xx answers other than timeouts and throttling will not change on retry
func permanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
