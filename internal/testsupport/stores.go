package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/records"
	"inkwell/internal/workqueue"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenQueue opens a workqueue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *workqueue.Store {
	t.Helper()

	store, err := workqueue.Open(cfg)
	if err != nil {
		t.Fatalf("workqueue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDocument creates a document record for tests using the provided store.
// The source key is derived from the id so repeated calls stay unique.
func NewDocument(t testing.TB, store *records.Store, documentID string, tier records.Tier) *records.Document {
	t.Helper()

	doc, _, err := store.Create(context.Background(), records.NewDocument{
		DocumentID:   documentID,
		Tier:         tier,
		SourceBucket: "test-bucket",
		SourceKey:    fmt.Sprintf("uploads/%s.pdf", documentID),
		ContentType:  "application/pdf",
		SizeBytes:    2048,
	})
	if err != nil {
		t.Fatalf("records.Create: %v", err)
	}
	return doc
}

// AdvanceTo walks a document through legal transitions until it reaches the
// requested status. Useful for tests that need a record in a late lifecycle
// state without running the worker.
func AdvanceTo(t testing.TB, store *records.Store, doc *records.Document, target records.Status) *records.Document {
	t.Helper()

	ctx := context.Background()
	path := map[records.Status]records.Status{
		records.StatusUploaded:         records.StatusQueued,
		records.StatusQueued:           records.StatusProcessing,
		records.StatusProcessing:       records.StatusProcessed,
		records.StatusProcessingOCR:    records.StatusAssessingQuality,
		records.StatusAssessingQuality: records.StatusRefiningText,
		records.StatusRefiningText:     records.StatusSavingResults,
		records.StatusSavingResults:    records.StatusProcessed,
	}
	if doc.Tier == records.TierHeavy {
		path[records.StatusProcessing] = records.StatusProcessingOCR
	}

	current := doc
	for current.Status != target {
		next, ok := path[current.Status]
		if !ok {
			t.Fatalf("no path from %s to %s", current.Status, target)
		}
		if target == records.StatusFailed {
			next = records.StatusFailed
		}
		updated, err := store.Transition(ctx, current, next, nil)
		if err != nil {
			t.Fatalf("transition %s -> %s: %v", current.Status, next, err)
		}
		current = updated
	}
	return current
}

// BackdateStatusChange rewrites a document's status_changed_at so SLA sweeps
// see it as stale without the test waiting out a real interval.
func BackdateStatusChange(t testing.TB, cfg *config.Config, documentID string, to time.Time) {
	t.Helper()

	db, err := sql.Open("sqlite", cfg.Database.RecordsPath)
	if err != nil {
		t.Fatalf("open records database: %v", err)
	}
	defer db.Close()

	result, err := db.Exec(
		`UPDATE documents SET status_changed_at = ? WHERE document_id = ?`,
		to.UTC().Format(time.RFC3339Nano), documentID,
	)
	if err != nil {
		t.Fatalf("backdate status change: %v", err)
	}
	if affected, _ := result.RowsAffected(); affected != 1 {
		t.Fatalf("backdate status change: document %s not found", documentID)
	}
}
