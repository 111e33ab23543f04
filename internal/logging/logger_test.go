package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inkwell/internal/logging"
	"inkwell/internal/services"
)

func TestNewWritesConsoleFormat(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "inkwell.log")

	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("document routed",
		logging.String(logging.FieldComponent, "intake"),
		logging.String(logging.FieldDocumentID, "doc-1"),
		logging.String(logging.FieldTier, "fast"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO intake: document routed") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "document_id=doc-1") || !strings.Contains(line, "tier=fast") {
		t.Fatalf("missing attrs in console line: %q", line)
	}
}

func TestNewWritesJSONFormat(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "inkwell.json")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("lease acquired", logging.Int64(logging.FieldItemID, 42))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"lease acquired"`) || !strings.Contains(line, `"item_id":42`) {
		t.Fatalf("unexpected json line: %q", line)
	}
	if !strings.Contains(line, `"level":"debug"`) {
		t.Fatalf("expected lowercase level: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextStampsFields(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ctx.log")

	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithDocumentID(context.Background(), "doc-77")
	ctx = services.WithLane(ctx, "fast")
	logging.WithContext(ctx, logger).Info("stage started")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "document_id=doc-77") || !strings.Contains(line, "lane=fast") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
