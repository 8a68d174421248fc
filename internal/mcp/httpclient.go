package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/models"
	"github.com/meltforce/repflow/internal/server"
)

// HTTPClient implements DataSource by calling the RepFlow REST API. Used for
// remote MCP mode where the binary runs locally (stdio) but the live sessions
// are hosted on the remote runner (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey
// may be empty when the runner has no API key configured.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context) ([]server.SessionSummary, error) {
	body, err := c.get(ctx, "/api/v1/sessions", nil)
	if err != nil {
		return nil, err
	}

	var summaries []server.SessionSummary
	if err := json.Unmarshal(body, &summaries); err != nil {
		return nil, fmt.Errorf("httpclient: decode session list: %w", err)
	}
	return summaries, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	body, err := c.get(ctx, "/api/v1/sessions/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("httpclient: decode session snapshot: %w", err)
	}
	return &snap, nil
}

func (c *HTTPClient) GetExerciseDetails(ctx context.Context, exerciseID, name string) (*models.ExerciseDetails, error) {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}

	body, err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(exerciseID), params)
	if err != nil {
		return nil, err
	}

	var details models.ExerciseDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercise details: %w", err)
	}
	return &details, nil
}
