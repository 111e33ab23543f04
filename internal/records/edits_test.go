package records_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/testsupport"
)

func TestApplyEditGuardsOnRevision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-edit", records.TierFast)
	done := testsupport.AdvanceTo(t, store, doc, records.StatusProcessed)

	edit := records.EditApplication{
		ResultJSON:         `{"refined_text":"B"}`,
		MetadataJSON:       `{"title":"Edited"}`,
		OriginalResultJSON: `{"refined_text":"A","formatted_text":""}`,
		EditHistoryJSON:    `[{"edited_at":"2026-01-02T03:04:05Z","edited_fields":["refined_text"],"previous":{"refined_text":"A"}}]`,
		EditedAt:           time.Now().UTC(),
	}

	updated, err := store.ApplyEdit(ctx, done, edit)
	if err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}
	if !updated.UserEdited {
		t.Fatal("expected user_edited set")
	}
	if updated.LastEditedAt == nil {
		t.Fatal("expected last_edited_at set")
	}
	if updated.Revision != done.Revision+1 {
		t.Fatalf("expected revision bump, got %d", updated.Revision)
	}
	if result, _ := updated.Result(); result.RefinedText != "B" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if snapshot, ok := updated.OriginalResult(); !ok || snapshot.RefinedText != "A" {
		t.Fatalf("unexpected original result: %+v ok=%v", snapshot, ok)
	}
	if history := updated.EditHistory(); len(history) != 1 || history[0].Previous["refined_text"] != "A" {
		t.Fatalf("unexpected history: %+v", history)
	}

	// The stale handle must lose to the write above.
	if _, err := store.ApplyEdit(ctx, done, edit); !errors.Is(err, services.ErrStateConflict) {
		t.Fatalf("expected state conflict for stale revision, got %v", err)
	}
}

func TestApplyEditFailsForMissingOrRecycled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	edit := records.EditApplication{EditedAt: time.Now().UTC()}

	ghost := &records.Document{DocumentID: "missing"}
	if _, err := store.ApplyEdit(ctx, ghost, edit); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	doc := testsupport.NewDocument(t, store, "doc-edit-del", records.TierFast)
	done := testsupport.AdvanceTo(t, store, doc, records.StatusProcessed)
	if _, err := store.SoftDelete(ctx, done.DocumentID, time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := store.ApplyEdit(ctx, done, edit); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for recycled record, got %v", err)
	}
}
