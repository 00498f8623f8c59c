package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/esa0624/CU-Blueboard/config"
)

// ErrMissingAPIKey means no moderation credential is configured. Callers
// treat this as "skip screening"; it is never surfaced to end users.
var ErrMissingAPIKey = errors.New("moderation api key is not configured")

// ScreeningError wraps any failure talking to the moderation classifier:
// transport errors, non-2xx responses and malformed result payloads.
type ScreeningError struct {
	Reason string
	Err    error
}

func (e *ScreeningError) Error() string {
	if e.Err != nil {
		return "screening failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "screening failed: " + e.Reason
}

func (e *ScreeningError) Unwrap() error { return e.Err }

// ScreenResult is the classifier's verdict for one piece of text.
type ScreenResult struct {
	Flagged    bool               `json:"flagged"`
	Categories map[string]bool    `json:"categories"`
	Scores     map[string]float64 `json:"category_scores"`
}

// Screener screens text for policy violations.
type Screener interface {
	Screen(ctx context.Context, text string) (*ScreenResult, error)
}

// ScreenerClient calls the external moderation classifier over HTTPS.
type ScreenerClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewScreenerClient builds a client from configuration. It fails with
// ErrMissingAPIKey when no credential is set. TLS verification can only be
// relaxed outside production deployments; the flag is ignored in production.
func NewScreenerClient(cfg config.AppConfig) (*ScreenerClient, error) {
	if strings.TrimSpace(cfg.ModerationAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	transport := http.DefaultTransport
	if cfg.ModerationInsecureTLS && !cfg.Production() {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	timeout := time.Duration(cfg.ModerationTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ScreenerClient{
		endpoint: cfg.ModerationAPIURL,
		apiKey:   cfg.ModerationAPIKey,
		model:    cfg.ModerationModel,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []ScreenResult `json:"results"`
}

// Screen submits text to the classifier and interprets its verdict. Any
// non-2xx response or response missing the expected result shape is a
// ScreeningError.
func (c *ScreenerClient) Screen(ctx context.Context, text string) (*ScreenResult, error) {
	payload, err := json.Marshal(moderationRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, &ScreeningError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &ScreeningError{Reason: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ScreeningError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ScreeningError{Reason: fmt.Sprintf("API returned %d", resp.StatusCode)}
	}

	var decoded moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ScreeningError{Reason: "unexpected API response format", Err: err}
	}
	if len(decoded.Results) == 0 {
		return nil, &ScreeningError{Reason: "unexpected API response format"}
	}

	result := decoded.Results[0]
	if result.Categories == nil {
		result.Categories = map[string]bool{}
	}
	if result.Scores == nil {
		result.Scores = map[string]float64{}
	}
	return &result, nil
}
