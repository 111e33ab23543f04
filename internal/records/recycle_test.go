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

func TestSoftDeleteAndRestoreRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-del", records.TierFast)
	done := testsupport.AdvanceTo(t, store, doc, records.StatusProcessed)

	deleted, err := store.SoftDelete(ctx, done.DocumentID, time.Hour)
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if deleted.DeletedAt == nil || deleted.ExpiresAt == nil {
		t.Fatalf("expected recycle stamps, got %+v", deleted)
	}

	if got, err := store.Get(ctx, done.DocumentID); err != nil || got != nil {
		t.Fatalf("expected recycled record invisible to Get, got %+v err=%v", got, err)
	}

	recycled, err := store.ListRecycled(ctx)
	if err != nil {
		t.Fatalf("ListRecycled failed: %v", err)
	}
	if len(recycled) != 1 || recycled[0].DocumentID != done.DocumentID {
		t.Fatalf("unexpected recycle view: %+v", recycled)
	}

	restored, err := store.Restore(ctx, done.DocumentID)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.DeletedAt != nil || restored.ExpiresAt != nil {
		t.Fatalf("expected recycle stamps cleared, got %+v", restored)
	}
	if restored.Status != done.Status || restored.StatusGeneration != done.StatusGeneration {
		t.Fatalf("expected lifecycle state untouched by round trip, got %+v", restored)
	}
	if restored.ResultJSON != done.ResultJSON || restored.MetadataJSON != done.MetadataJSON {
		t.Fatal("expected content untouched by round trip")
	}
}

func TestSoftDeleteTwiceFailsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-twice", records.TierFast)
	if _, err := store.SoftDelete(ctx, doc.DocumentID, time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := store.SoftDelete(ctx, doc.DocumentID, time.Hour); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := store.SoftDelete(ctx, "never-existed", time.Hour); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestRestoreAfterExpiryFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-exp", records.TierFast)
	if _, err := store.SoftDelete(ctx, doc.DocumentID, -time.Minute); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	if _, err := store.Restore(ctx, doc.DocumentID); !errors.Is(err, services.ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestRestoreRequiresRecycledRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-active", records.TierFast)
	if _, err := store.Restore(ctx, doc.DocumentID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for active record, got %v", err)
	}
	if _, err := store.Restore(ctx, "never-existed"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestPurgeExpiredRemovesPermanently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	expired := testsupport.NewDocument(t, store, "doc-purge", records.TierFast)
	if _, err := store.SoftDelete(ctx, expired.DocumentID, -time.Minute); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	kept := testsupport.NewDocument(t, store, "doc-keep", records.TierFast)
	if _, err := store.SoftDelete(ctx, kept.DocumentID, time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	purged, err := store.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged record, got %d", purged)
	}

	if got, err := store.GetIncludingDeleted(ctx, expired.DocumentID); err != nil || got != nil {
		t.Fatalf("expected purged record gone, got %+v err=%v", got, err)
	}
	if _, err := store.Restore(ctx, expired.DocumentID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after purge, got %v", err)
	}

	if got, err := store.GetIncludingDeleted(ctx, kept.DocumentID); err != nil || got == nil {
		t.Fatalf("expected unexpired record kept, got %+v err=%v", got, err)
	}
}
