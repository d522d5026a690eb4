package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/config"
)

// SourceChecker defines the interface for running one background check
// against an external registry.
type SourceChecker interface {
	StartCheck(ctx context.Context, req *StartCheckRequest) (*StartCheckResponse, error)
	GetCheckStatus(ctx context.Context, checkID string) (*CheckResult, error)
	PollCheckStatus(ctx context.Context, checkID string, interval, maxWait time.Duration) (*CheckResult, error)
	IsConfigured() bool
}

// FuentesClient talks to the source-registry gateway that fronts the
// national registries (judicial, financial, identity, sanctions, media).
type FuentesClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logrus.Logger
}

// StartCheckRequest asks the gateway to query one registry for a candidate.
type StartCheckRequest struct {
	Source        string `json:"source"`
	SourceType    string `json:"source_type"`
	CandidateName string `json:"candidate_name"`
	DocumentID    string `json:"document_id"`
	DocumentType  string `json:"document_type"`
}

// StartCheckResponse acknowledges an accepted check.
type StartCheckResponse struct {
	CheckID string `json:"check_id"`
	Status  string `json:"status"`
}

// CheckResult is the state of one registry check.
type CheckResult struct {
	CheckID     string `json:"check_id"`
	Status      string `json:"status"` // pending, running, completed, unreachable, failed
	Score       int    `json:"score"`
	Detail      string `json:"detail,omitempty"`
	EvidenceURL string `json:"evidence_url,omitempty"`
}

// Gateway-side check states.
const (
	CheckStatusCompleted   = "completed"
	CheckStatusUnreachable = "unreachable"
	CheckStatusFailed      = "failed"
)

// NewFuentesClient creates a new source-registry client.
func NewFuentesClient(cfg *config.FuentesConfig, log *logrus.Logger) *FuentesClient {
	return &FuentesClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		log:     log,
	}
}

// StartCheck initiates a registry check.
func (c *FuentesClient) StartCheck(ctx context.Context, req *StartCheckRequest) (*StartCheckResponse, error) {
	var result StartCheckResponse
	if err := c.post(ctx, "/v1/checks", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCheckStatus retrieves the state of a registry check.
func (c *FuentesClient) GetCheckStatus(ctx context.Context, checkID string) (*CheckResult, error) {
	endpoint := fmt.Sprintf("/v1/checks/%s", checkID)
	var result CheckResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollCheckStatus polls a check until it reaches a terminal gateway state or
// maxWait elapses.
func (c *FuentesClient) PollCheckStatus(ctx context.Context, checkID string, interval, maxWait time.Duration) (*CheckResult, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		result, err := c.GetCheckStatus(ctx, checkID)
		if err != nil {
			c.log.WithError(err).WithField("check_id", checkID).Warnf("poll check #%d failed", attempt)
			return nil, err
		}

		c.log.WithFields(logrus.Fields{
			"check_id": checkID,
			"status":   result.Status,
		}).Debugf("poll check #%d", attempt)

		switch result.Status {
		case CheckStatusCompleted, CheckStatusUnreachable, CheckStatusFailed:
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
			continue
		}
	}

	return nil, fmt.Errorf("registry check timed out after %v", maxWait)
}

// post sends a POST request with JSON body.
func (c *FuentesClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses the JSON response.
func (c *FuentesClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *FuentesClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fuentes gateway error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *FuentesClient) IsConfigured() bool {
	return c.apiKey != ""
}
