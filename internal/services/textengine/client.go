package textengine

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

const defaultHTTPTimeout = 120 * time.Second

// Client wraps the text engine HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes the text engine client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
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

// NewClient constructs a text engine client rooted at baseURL. The API key
// is optional; unauthenticated local engines leave it empty.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
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
	return client
}

type recognizeRequest struct {
	DocumentID  string   `json:"document_id"`
	ContentType string   `json:"content_type"`
	Languages   []string `json:"languages,omitempty"`
	Data        []byte   `json:"data"`
}

type recognizeResponse struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	PageCount int    `json:"page_count"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Recognize submits document bytes and returns the recognized text in one
// round trip. An empty text field is legal; blank pages produce it.
func (c *Client) Recognize(ctx context.Context, input extraction.Input) (extraction.Output, error) {
	var empty extraction.Output
	if strings.TrimSpace(input.DocumentID) == "" {
		return empty, errors.New("text engine recognize: document id required")
	}
	if len(input.Data) == 0 {
		return empty, errors.New("text engine recognize: document bytes required")
	}
	body, err := c.post(ctx, "/v1/recognize", recognizeRequest{
		DocumentID:  input.DocumentID,
		ContentType: input.ContentType,
		Languages:   input.Languages,
		Data:        input.Data,
	})
	if err != nil {
		return empty, fmt.Errorf("text engine recognize: %w", err)
	}
	var decoded recognizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("text engine recognize: decode response: %w", err)
	}
	if decoded.Error != nil {
		return empty, fmt.Errorf("text engine recognize: engine error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	return extraction.Output{
		Text:      decoded.Text,
		Language:  decoded.Language,
		PageCount: decoded.PageCount,
	}, nil
}

type refineRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	Language   string `json:"language,omitempty"`
}

type refineResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Refine sends recognized text back for cleanup and returns the repaired
// version. Blank input short-circuits without a network call.
func (c *Client) Refine(ctx context.Context, documentID, text, language string) (string, error) {
	if strings.TrimSpace(documentID) == "" {
		return "", errors.New("text engine refine: document id required")
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	body, err := c.post(ctx, "/v1/refine", refineRequest{
		DocumentID: documentID,
		Text:       text,
		Language:   language,
	})
	if err != nil {
		return "", fmt.Errorf("text engine refine: %w", err)
	}
	var decoded refineResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("text engine refine: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("text engine refine: engine error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	return decoded.Text, nil
}

// HealthCheck verifies the engine answers on its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.baseURL == "" {
		return errors.New("text engine health: endpoint not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/healthz")
	if err != nil {
		return fmt.Errorf("text engine health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("text engine health: request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("text engine health: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("text engine health: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("endpoint not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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
