package editor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"inkwell/internal/editor"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/testsupport"
)

func processedDocument(t *testing.T, store *records.Store, id string) *records.Document {
	t.Helper()

	doc := testsupport.NewDocument(t, store, id, records.TierFast)
	working := testsupport.AdvanceTo(t, store, doc, records.StatusProcessing)
	done, err := store.Transition(context.Background(), working, records.StatusProcessed, &records.TransitionUpdate{
		Result: &records.Result{
			ExtractedText: "machine text",
			RefinedText:   "machine refined",
			FormattedText: "<p>machine refined</p>",
			Language:      "en",
			WordCount:     2,
		},
	})
	if err != nil {
		t.Fatalf("finish document: %v", err)
	}
	return done
}

func strPtr(s string) *string { return &s }

func TestEditAppliesFieldsAndRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ed := editor.New(store, logging.NewNop())
	ctx := context.Background()

	processedDocument(t, store, "doc-edit")

	year := 1962
	tags := []string{"letters", "archive"}
	updated, err := ed.Edit(ctx, "doc-edit", editor.Fields{
		RefinedText: strPtr("corrected text"),
		Title:       strPtr("Collected Letters"),
		Year:        &year,
		Tags:        &tags,
	})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	result, ok := updated.Result()
	if !ok || result.RefinedText != "corrected text" {
		t.Fatalf("unexpected result: %+v ok=%v", result, ok)
	}
	if result.ExtractedText != "machine text" {
		t.Fatalf("extracted text must stay untouched, got %q", result.ExtractedText)
	}
	meta := updated.Metadata()
	if meta.Title != "Collected Letters" || meta.Year != 1962 || len(meta.Tags) != 2 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if !updated.UserEdited || updated.LastEditedAt == nil {
		t.Fatal("expected edit markers set")
	}

	snapshot, ok := updated.OriginalResult()
	if !ok || snapshot.RefinedText != "machine refined" || snapshot.FormattedText != "<p>machine refined</p>" {
		t.Fatalf("unexpected snapshot: %+v ok=%v", snapshot, ok)
	}

	history := updated.EditHistory()
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	entry := history[0]
	if len(entry.EditedFields) != 4 {
		t.Fatalf("unexpected edited fields: %v", entry.EditedFields)
	}
	if entry.Previous[editor.FieldRefinedText] != "machine refined" {
		t.Fatalf("unexpected previous refined text: %v", entry.Previous)
	}
	if entry.Previous[editor.FieldTitle] != "" {
		t.Fatalf("expected empty previous title, got %v", entry.Previous[editor.FieldTitle])
	}
}

func TestEditSnapshotSurvivesLaterEdits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ed := editor.New(store, logging.NewNop())
	ctx := context.Background()

	processedDocument(t, store, "doc-snapshot")

	if _, err := ed.Edit(ctx, "doc-snapshot", editor.Fields{RefinedText: strPtr("first pass")}); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	updated, err := ed.Edit(ctx, "doc-snapshot", editor.Fields{RefinedText: strPtr("second pass")})
	if err != nil {
		t.Fatalf("second edit: %v", err)
	}

	snapshot, ok := updated.OriginalResult()
	if !ok || snapshot.RefinedText != "machine refined" {
		t.Fatalf("snapshot must keep the pre-first-edit text, got %+v", snapshot)
	}

	history := updated.EditHistory()
	if len(history) != 2 {
		t.Fatalf("expected two history entries, got %d", len(history))
	}
	if history[0].Previous[editor.FieldRefinedText] != "first pass" {
		t.Fatalf("history must be newest first, got %+v", history)
	}
	if history[1].Previous[editor.FieldRefinedText] != "machine refined" {
		t.Fatalf("oldest entry must hold the machine text, got %+v", history)
	}
}

func TestEditHistoryCappedAtLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ed := editor.New(store, logging.NewNop())
	ctx := context.Background()

	processedDocument(t, store, "doc-cap")

	total := records.EditHistoryLimit + 3
	for i := 0; i < total; i++ {
		text := fmt.Sprintf("draft %d", i)
		if _, err := ed.Edit(ctx, "doc-cap", editor.Fields{RefinedText: &text}); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}

	doc, err := store.Get(ctx, "doc-cap")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	history := doc.EditHistory()
	if len(history) != records.EditHistoryLimit {
		t.Fatalf("expected %d entries, got %d", records.EditHistoryLimit, len(history))
	}
	// Newest entry recorded the previous draft; the oldest retained entry is
	// the one whose previous value was draft total-limit-1.
	if history[0].Previous[editor.FieldRefinedText] != fmt.Sprintf("draft %d", total-2) {
		t.Fatalf("unexpected newest entry: %+v", history[0])
	}
	want := fmt.Sprintf("draft %d", total-records.EditHistoryLimit-1)
	if history[len(history)-1].Previous[editor.FieldRefinedText] != want {
		t.Fatalf("unexpected oldest entry: %+v", history[len(history)-1])
	}
}

func TestEditRejectsWrongStates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ed := editor.New(store, logging.NewNop())
	ctx := context.Background()

	if _, err := ed.Edit(ctx, "doc-missing", editor.Fields{RefinedText: strPtr("x")}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	testsupport.NewDocument(t, store, "doc-early", records.TierFast)
	if _, err := ed.Edit(ctx, "doc-early", editor.Fields{RefinedText: strPtr("x")}); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not ready for uploaded record, got %v", err)
	}

	processedDocument(t, store, "doc-empty")
	if _, err := ed.Edit(ctx, "doc-empty", editor.Fields{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty edit, got %v", err)
	}
}
