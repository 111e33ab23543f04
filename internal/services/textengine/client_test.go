package textengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inkwell/internal/extraction"
)

func TestClientRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/recognize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var req struct {
			DocumentID string `json:"document_id"`
			Data       []byte `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.DocumentID != "doc-1" || string(req.Data) != "%PDF-1.7" {
			t.Fatalf("unexpected request %+v", req)
		}
		payload := map[string]any{
			"text":       "Invoice 42\nTotal due: 100.00",
			"language":   "en",
			"page_count": 1,
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	output, err := client.Recognize(context.Background(), extraction.Input{
		DocumentID:  "doc-1",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}
	if !strings.HasPrefix(output.Text, "Invoice 42") {
		t.Fatalf("unexpected text %q", output.Text)
	}
	if output.Language != "en" || output.PageCount != 1 {
		t.Fatalf("unexpected output %+v", output)
	}
}

func TestClientRecognizeEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"error": map[string]string{"message": "unsupported content type"},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.Recognize(context.Background(), extraction.Input{
		DocumentID: "doc-1",
		Data:       []byte("x"),
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported content type") {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestClientRecognizeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.Recognize(context.Background(), extraction.Input{
		DocumentID: "doc-1",
		Data:       []byte("x"),
	})
	if err == nil || !strings.Contains(err.Error(), "http 503") {
		t.Fatalf("expected http 503 error, got %v", err)
	}
}

func TestClientRecognizeValidation(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "")
	if _, err := client.Recognize(context.Background(), extraction.Input{Data: []byte("x")}); err == nil {
		t.Fatal("expected error for missing document id")
	}
	if _, err := client.Recognize(context.Background(), extraction.Input{DocumentID: "doc-1"}); err == nil {
		t.Fatal("expected error for missing bytes")
	}
}

func TestClientRefine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/refine" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"text": strings.ReplaceAll(req.Text, "-\n", ""),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	refined, err := client.Refine(context.Background(), "doc-1", "hyphen-\nated", "en")
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if refined != "hyphenated" {
		t.Fatalf("Refine = %q, want %q", refined, "hyphenated")
	}
}

func TestClientRefineBlankSkipsNetwork(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "")
	refined, err := client.Refine(context.Background(), "doc-1", "  \n", "en")
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if refined != "" {
		t.Fatalf("Refine = %q, want empty", refined)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}

	client := NewClient("http://localhost:9090", "", WithHTTPClient(shared), WithTimeout(time.Second))
	if shared.Timeout != 5*time.Second {
		t.Errorf("shared client timeout changed to %s", shared.Timeout)
	}
	if client.httpClient != shared {
		t.Error("supplied client not used")
	}

	defaulted := NewClient("http://localhost:9090", "", WithTimeout(time.Second))
	if defaulted.httpClient.Timeout != time.Second {
		t.Errorf("default client timeout = %s, want 1s", defaulted.httpClient.Timeout)
	}
}
