package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inkwell/internal/config"
)

const userAgent = "Inkwell/0.1.0"

// Service defines the notification surface exposed to lifecycle components.
type Service interface {
	NotifyDocumentProcessed(ctx context.Context, documentID, title string) error
	NotifyDocumentFailed(ctx context.Context, documentID, reason string) error
	NotifyDeadLetter(ctx context.Context, documentID string, attempts int) error
	NotifyDaemonStarted(ctx context.Context, version string) error
	NotifyDaemonStopped(ctx context.Context) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		processed:   cfg.Notifications.Processed,
		failures:    cfg.Notifications.Failures,
		deadLetters: cfg.Notifications.DeadLetters,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	processed   bool
	failures    bool
	deadLetters bool
}

func (n *ntfyService) NotifyDocumentProcessed(ctx context.Context, documentID, title string) error {
	if !n.processed {
		return nil
	}
	label := strings.TrimSpace(title)
	if label == "" {
		label = strings.TrimSpace(documentID)
	}
	data := payload{
		title:   "Inkwell - Processed",
		message: fmt.Sprintf("✅ Document processed: %s", label),
		tags:    []string{"inkwell", "document", "processed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDocumentFailed(ctx context.Context, documentID, reason string) error {
	if !n.failures {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no error detail"
	}
	data := payload{
		title:    "Inkwell - Failed",
		message:  fmt.Sprintf("❌ Document failed: %s\n%s", strings.TrimSpace(documentID), reason),
		tags:     []string{"inkwell", "document", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeadLetter(ctx context.Context, documentID string, attempts int) error {
	if !n.deadLetters {
		return nil
	}
	data := payload{
		title:    "Inkwell - Dead Letter",
		message:  fmt.Sprintf("Work item dead-lettered after %d attempts: %s\nReplay with 'inkwell queue replay'", attempts, strings.TrimSpace(documentID)),
		tags:     []string{"inkwell", "queue", "deadletter"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "unknown"
	}
	data := payload{
		title:   "Inkwell - Daemon Started",
		message: fmt.Sprintf("Daemon started (version %s)", version),
		tags:    []string{"inkwell", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	data := payload{
		title:   "Inkwell - Daemon Stopped",
		message: "Daemon stopped",
		tags:    []string{"inkwell", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Inkwell - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"inkwell", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDocumentProcessed(context.Context, string, string) error { return nil }
func (noopService) NotifyDocumentFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifyDeadLetter(context.Context, string, int) error           { return nil }
func (noopService) NotifyDaemonStarted(context.Context, string) error             { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                     { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
