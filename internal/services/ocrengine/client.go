package ocrengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inkwell/internal/extraction"
)

const (
	defaultHTTPTimeout  = 120 * time.Second
	defaultPollInterval = 30 * time.Second
)

// Job states reported by the engine.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Job is the engine's view of one submitted document.
type Job struct {
	ID        string
	State     string
	Text      string
	Language  string
	PageCount int
	Message   string
}

// Done reports whether the job reached a terminal state.
func (j Job) Done() bool {
	return j.State == StateSucceeded || j.State == StateFailed
}

// Client wraps the batch OCR engine HTTP API.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
}

// Option customizes the OCR engine client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often Await checks job state.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithTimeout sets the request timeout for the default HTTP client. It has
// no effect when WithHTTPClient supplies one; that client is the caller's
// to configure.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient constructs an OCR engine client rooted at baseURL. The API key
// is optional; unauthenticated local engines leave it empty.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:       strings.TrimSpace(apiKey),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		timeout := client.timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client.httpClient = &http.Client{Timeout: timeout}
	}
	if client.pollInterval <= 0 {
		client.pollInterval = defaultPollInterval
	}
	return client
}

type submitRequest struct {
	DocumentID  string   `json:"document_id"`
	ContentType string   `json:"content_type"`
	Languages   []string `json:"languages,omitempty"`
	Data        []byte   `json:"data"`
}

type jobResponse struct {
	JobID     string `json:"job_id"`
	State     string `json:"state"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	PageCount int    `json:"page_count"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Submit hands document bytes to the engine and returns its job id.
func (c *Client) Submit(ctx context.Context, input extraction.Input) (string, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return "", errors.New("ocr engine submit: document id required")
	}
	if len(input.Data) == 0 {
		return "", errors.New("ocr engine submit: document bytes required")
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/jobs", submitRequest{
		DocumentID:  input.DocumentID,
		ContentType: input.ContentType,
		Languages:   input.Languages,
		Data:        input.Data,
	})
	if err != nil {
		return "", fmt.Errorf("ocr engine submit: %w", err)
	}
	var decoded jobResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("ocr engine submit: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("ocr engine submit: engine error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	if strings.TrimSpace(decoded.JobID) == "" {
		return "", errors.New("ocr engine submit: missing job id")
	}
	return decoded.JobID, nil
}

// Status fetches the current state of one job.
func (c *Client) Status(ctx context.Context, jobID string) (Job, error) {
	var empty Job
	if strings.TrimSpace(jobID) == "" {
		return empty, errors.New("ocr engine status: job id required")
	}
	body, err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return empty, fmt.Errorf("ocr engine status: %w", err)
	}
	var decoded jobResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("ocr engine status: decode response: %w", err)
	}
	job := Job{
		ID:        decoded.JobID,
		State:     strings.ToLower(strings.TrimSpace(decoded.State)),
		Text:      decoded.Text,
		Language:  decoded.Language,
		PageCount: decoded.PageCount,
	}
	if job.ID == "" {
		job.ID = jobID
	}
	if decoded.Error != nil {
		job.Message = strings.TrimSpace(decoded.Error.Message)
	}
	return job, nil
}

// Await polls the job until it reaches a terminal state. A failed job comes
// back as an error carrying the engine's message; ctx cancellation stops
// the wait.
func (c *Client) Await(ctx context.Context, jobID string) (extraction.Output, error) {
	var empty extraction.Output
	if strings.TrimSpace(jobID) == "" {
		return empty, errors.New("ocr engine await: job id required")
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		job, err := c.Status(ctx, jobID)
		if err != nil {
			return empty, err
		}
		switch job.State {
		case StateSucceeded:
			return extraction.Output{
				Text:      job.Text,
				Language:  job.Language,
				PageCount: job.PageCount,
			}, nil
		case StateFailed:
			message := job.Message
			if message == "" {
				message = "job failed"
			}
			return empty, fmt.Errorf("ocr engine await: %s", message)
		case StatePending, StateRunning:
		default:
			return empty, fmt.Errorf("ocr engine await: unexpected job state %q", job.State)
		}
		select {
		case <-ctx.Done():
			return empty, fmt.Errorf("ocr engine await: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// HealthCheck verifies the engine answers on its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.baseURL == "" {
		return errors.New("ocr engine health: endpoint not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/healthz")
	if err != nil {
		return fmt.Errorf("ocr engine health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("ocr engine health: request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ocr engine health: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ocr engine health: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("endpoint not configured")
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
