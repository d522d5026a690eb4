// Package econfia is a small REST client for the eConfia API, used by the
// terminal dashboard and suitable for scripting against a deployment.
package econfia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenProvider supplies the bearer token attached to each request. A static
// token and a login-based provider both satisfy it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider wrapping a fixed token string.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client talks to one eConfia API deployment.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, tokens TokenProvider) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

// Consulta mirrors the server's consulta resource.
type Consulta struct {
	ID            string     `json:"id"`
	CandidateName string     `json:"candidateName"`
	DocumentID    string     `json:"documentId"`
	DocumentType  string     `json:"documentType"`
	Status        string     `json:"status"`
	Error         *string    `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Resultado mirrors the server's per-source outcome resource.
type Resultado struct {
	ID          string     `json:"id"`
	ConsultaID  string     `json:"consultaId"`
	Source      string     `json:"source"`
	SourceType  string     `json:"sourceType"`
	Status      string     `json:"status"`
	Score       int        `json:"score"`
	Detail      string     `json:"detail,omitempty"`
	HasEvidence bool       `json:"hasEvidence"`
	CheckedAt   *time.Time `json:"checkedAt,omitempty"`
}

// SubmitConsultaRequest submits a new verification.
type SubmitConsultaRequest struct {
	CandidateName string `json:"candidateName"`
	DocumentID    string `json:"documentId"`
	DocumentType  string `json:"documentType"`
}

// ConsultaAccepted acknowledges a submitted consulta.
type ConsultaAccepted struct {
	Consulta *Consulta `json:"consulta"`
	QueuedAt time.Time `json:"queuedAt"`
}

// RelanzarAck acknowledges a retry dispatch. Status is the stored status at
// dispatch time, not the post-retry one.
type RelanzarAck struct {
	ResultadoID string `json:"resultadoId"`
	Accepted    bool   `json:"accepted"`
	Status      string `json:"status"`
}

// Evidence is a resolved, short-lived evidence download URL.
type Evidence struct {
	ResultadoID string `json:"resultadoId"`
	URL         string `json:"url"`
	ExpiresIn   int    `json:"expiresIn"`
}

// RiskScore mirrors the server's aggregated risk artifact.
type RiskScore struct {
	ConsultaID string    `json:"consultaId"`
	Score      float64   `json:"score"`
	Level      string    `json:"level"`
	Sources    int       `json:"sources"`
	Validated  int       `json:"validated"`
	Offline    int       `json:"offline"`
	ComputedAt time.Time `json:"computedAt"`
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("econfia api error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// ListConsultas returns the caller's consultas, newest first.
func (c *Client) ListConsultas(ctx context.Context) ([]Consulta, error) {
	var result struct {
		Consultas []Consulta `json:"consultas"`
	}
	if err := c.get(ctx, "/api/consultas/", &result); err != nil {
		return nil, err
	}
	return result.Consultas, nil
}

// SubmitConsulta queues a new verification. The server acknowledges with 202;
// poll ListConsultas or GetConsulta to observe progress.
func (c *Client) SubmitConsulta(ctx context.Context, req *SubmitConsultaRequest) (*ConsultaAccepted, error) {
	var result ConsultaAccepted
	if err := c.post(ctx, "/api/consultas/", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConsulta returns one consulta.
func (c *Client) GetConsulta(ctx context.Context, consultaID string) (*Consulta, error) {
	var result Consulta
	if err := c.get(ctx, "/api/consultas/"+consultaID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetResultados returns the per-source outcomes of one consulta.
func (c *Client) GetResultados(ctx context.Context, consultaID string) ([]Resultado, error) {
	var result struct {
		Resultados []Resultado `json:"resultados"`
	}
	if err := c.get(ctx, "/api/resultados/"+consultaID, &result); err != nil {
		return nil, err
	}
	return result.Resultados, nil
}

// Relanzar asks the server to re-check one offline resultado. Acceptance does
// not change the stored status immediately.
func (c *Client) Relanzar(ctx context.Context, resultadoID string) (*RelanzarAck, error) {
	var result RelanzarAck
	if err := c.post(ctx, "/api/relanzar_bot/"+resultadoID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEvidence resolves a resultado's evidence to a short-lived download URL.
func (c *Client) GetEvidence(ctx context.Context, resultadoID string) (*Evidence, error) {
	var result Evidence
	if err := c.get(ctx, "/api/evidencia/"+resultadoID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRiskScore returns the aggregated risk score of one consulta.
func (c *Client) GetRiskScore(ctx context.Context, consultaID string) (*RiskScore, error) {
	var result RiskScore
	if err := c.get(ctx, "/api/calcular_riesgo/"+consultaID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(req.Context())
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

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
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Code != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       envelope.Error.Code,
				Message:    envelope.Error.Message,
			}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "UNKNOWN",
			Message:    string(respBody),
		}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
