// Package backend is the HTTP client for the remote coaching API: session
// fetch, exercise catalog fetch, and completed-session submission.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/models"
)

// Client calls the coaching backend over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting the given base URL. The API key is sent as
// X-API-Key on every request; pass "" if the backend does not require one.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope is the optional wrapper some backend deployments put around
// response bodies. One level of unwrapping is tolerated.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrap strips a {"data": ...} envelope when present, returning the body
// unchanged otherwise.
func unwrap(body []byte) []byte {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		return env.Data
	}
	return body
}

// GetSession fetches a session record by id.
func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	body, err := c.get(ctx, "/api/v1/sessions/"+id.String())
	if err != nil {
		return nil, err
	}

	var s models.Session
	if err := json.Unmarshal(unwrap(body), &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	if s.ID == uuid.Nil {
		s.ID = id
	}
	return &s, nil
}

// FetchExercise fetches one raw exercise document from the catalog. The body
// is returned undecoded; field-name normalization happens in enrich.
func (c *Client) FetchExercise(ctx context.Context, exerciseID string) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/v1/exercises/"+exerciseID)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(unwrap(body)), nil
}

// SubmitSession posts a completed session to the persistence API. Any non-2xx
// response is an error; the caller keeps its in-memory state for retry.
func (c *Client) SubmitSession(ctx context.Context, id uuid.UUID, payload *models.CompletedSessionPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding session payload: %w", err)
	}

	u := c.baseURL + "/api/v1/sessions/" + id.String() + "/complete"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: submit session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend: submit session returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: %s returned %d: %s", path, resp.StatusCode, body)
	}
	return body, nil
}
