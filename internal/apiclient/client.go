package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/api"
)

// APIError carries the HTTP status and server-reported message for a failed
// call, so callers can branch on status without string matching.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon api: %s (http %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to a running inkwell daemon over its HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New builds a client for the daemon listening at addr (host:port or URL).
// The token may be empty when the daemon runs without authentication.
func New(addr, token string, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	client := &Client{
		baseURL:    base,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Ping reports whether the daemon answers on its status endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}

// Status fetches the aggregate daemon status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health runs the daemon's preflight checks. An unhealthy daemon responds
// 503 with the same body; that is surfaced as a report, not an error.
func (c *Client) Health(ctx context.Context) (*api.HealthReport, error) {
	var report api.HealthReport
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &report)
	if err != nil {
		apiErr, ok := err.(*APIError)
		if !ok || apiErr.StatusCode != http.StatusServiceUnavailable {
			return nil, err
		}
	}
	return &report, nil
}

// ListDocuments fetches documents, optionally filtered by status.
func (c *Client) ListDocuments(ctx context.Context, statuses []string, limit int) ([]api.Document, error) {
	path := "/api/documents"
	query := make([]string, 0, len(statuses)+1)
	for _, status := range statuses {
		if s := strings.TrimSpace(status); s != "" {
			query = append(query, "status="+s)
		}
	}
	if limit > 0 {
		query = append(query, "limit="+strconv.Itoa(limit))
	}
	if len(query) > 0 {
		path += "?" + strings.Join(query, "&")
	}

	var resp api.DocumentListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// GetDocument fetches one document, or nil when it does not exist.
func (c *Client) GetDocument(ctx context.Context, id string) (*api.Document, error) {
	var resp api.DocumentResponse
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+id, nil, &resp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Document, nil
}

// Intake registers an uploaded object and returns the routed document.
func (c *Client) Intake(ctx context.Context, req api.IntakeRequest) (*api.Document, error) {
	var resp api.DocumentResponse
	if err := c.do(ctx, http.MethodPost, "/api/documents", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Document, nil
}

// Dispatch queues a document for processing.
func (c *Client) Dispatch(ctx context.Context, id string, req api.DispatchRequest) (*api.DispatchOutcome, error) {
	var outcome api.DispatchOutcome
	if err := c.do(ctx, http.MethodPost, "/api/documents/"+id+"/dispatch", req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Retry requeues a failed document with a reset retry budget.
func (c *Client) Retry(ctx context.Context, id string) (*api.DispatchOutcome, error) {
	var outcome api.DispatchOutcome
	if err := c.do(ctx, http.MethodPost, "/api/documents/"+id+"/retry", nil, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Edit applies field-level edits to a processed document.
func (c *Client) Edit(ctx context.Context, id string, req api.EditRequest) (*api.Document, error) {
	var resp api.DocumentResponse
	if err := c.do(ctx, http.MethodPatch, "/api/documents/"+id, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Document, nil
}

// Delete soft-deletes a document into the recycle view.
func (c *Client) Delete(ctx context.Context, id string) (*api.RecycleEntry, error) {
	var entry api.RecycleEntry
	if err := c.do(ctx, http.MethodDelete, "/api/documents/"+id, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Restore brings a recycled document back to its pre-delete state.
func (c *Client) Restore(ctx context.Context, id string) (*api.Document, error) {
	var resp api.DocumentResponse
	if err := c.do(ctx, http.MethodPost, "/api/documents/"+id+"/restore", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Document, nil
}

// Recycled lists soft-deleted documents awaiting purge.
func (c *Client) Recycled(ctx context.Context) ([]api.RecycleEntry, error) {
	var resp api.RecycleListResponse
	if err := c.do(ctx, http.MethodGet, "/api/recycle", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// PurgeRecycled permanently removes recycled documents past retention.
func (c *Client) PurgeRecycled(ctx context.Context) (int64, error) {
	var resp api.PurgeResponse
	if err := c.do(ctx, http.MethodPost, "/api/recycle/purge", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Purged, nil
}

// DeadLetters lists exhausted work items parked for operator review.
func (c *Client) DeadLetters(ctx context.Context) ([]api.WorkItem, error) {
	var resp api.DeadLetterListResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/deadletters", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ReplayDeadLetter returns a dead-lettered work item to the ready pool.
func (c *Client) ReplayDeadLetter(ctx context.Context, id int64) (*api.WorkItem, error) {
	var item api.WorkItem
	path := "/api/queue/deadletters/" + strconv.FormatInt(id, 10) + "/replay"
	if err := c.do(ctx, http.MethodPost, path, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	if c.baseURL == "" {
		return fmt.Errorf("daemon api: address not configured")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("daemon api: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("daemon api: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("daemon api: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope api.ErrorResponse
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Message = envelope.Error
		}
		// The health endpoint returns its report with a 503; hand the body
		// back alongside the error so Health can keep it.
		if target != nil && len(data) > 0 {
			_ = json.Unmarshal(data, target)
		}
		return apiErr
	}

	if target != nil && len(data) > 0 {
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("daemon api: decode response: %w", err)
		}
	}
	return nil
}
