package recycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/recycle"
	"inkwell/internal/services"
	"inkwell/internal/testsupport"
)

func TestDeleteAndRestoreRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := recycle.NewManager(cfg, store, logging.NewNop())
	ctx := context.Background()

	testsupport.NewDocument(t, store, "doc-recycle", records.TierFast)

	deleted, err := mgr.Delete(ctx, "doc-recycle")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted.Deleted() || deleted.ExpiresAt == nil {
		t.Fatalf("expected recycle markers, got %+v", deleted)
	}
	wantExpiry := deleted.DeletedAt.Add(mgr.Retention())
	if !deleted.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %s", wantExpiry, deleted.ExpiresAt)
	}

	// Recycled records disappear from normal reads and listings.
	if doc, err := store.Get(ctx, "doc-recycle"); err != nil || doc != nil {
		t.Fatalf("expected recycled record hidden, got %v err=%v", doc, err)
	}
	entries, err := mgr.List(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one recycle entry, got %d err=%v", len(entries), err)
	}

	restored, err := mgr.Restore(ctx, "doc-recycle")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Deleted() || restored.ExpiresAt != nil {
		t.Fatalf("expected active record, got %+v", restored)
	}
	if restored.Status != records.StatusUploaded {
		t.Fatalf("restore must keep the pre-delete status, got %s", restored.Status)
	}
}

func TestDeleteRejectsUnknownAndDoubleDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := recycle.NewManager(cfg, store, logging.NewNop())
	ctx := context.Background()

	if _, err := mgr.Delete(ctx, "doc-ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	testsupport.NewDocument(t, store, "doc-twice", records.TierFast)
	if _, err := mgr.Delete(ctx, "doc-twice"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if _, err := mgr.Delete(ctx, "doc-twice"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for double delete, got %v", err)
	}
}

func TestPurgeExpiredDropsOnlyLapsedRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := recycle.NewManager(cfg, store, logging.NewNop())
	ctx := context.Background()

	testsupport.NewDocument(t, store, "doc-lapsed", records.TierFast)
	testsupport.NewDocument(t, store, "doc-fresh", records.TierFast)

	if _, err := store.SoftDelete(ctx, "doc-lapsed", -time.Minute); err != nil {
		t.Fatalf("SoftDelete lapsed: %v", err)
	}
	if _, err := mgr.Delete(ctx, "doc-fresh"); err != nil {
		t.Fatalf("Delete fresh: %v", err)
	}

	purged, err := mgr.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected one purge, got %d", purged)
	}

	if doc, err := store.GetIncludingDeleted(ctx, "doc-lapsed"); err != nil || doc != nil {
		t.Fatalf("expected lapsed record gone, got %v err=%v", doc, err)
	}
	if doc, err := store.GetIncludingDeleted(ctx, "doc-fresh"); err != nil || doc == nil {
		t.Fatalf("expected fresh record retained, err=%v", err)
	}

	// A lapsed record can no longer be restored.
	if _, err := store.SoftDelete(ctx, "doc-fresh", -time.Minute); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for already recycled, got %v", err)
	}
}
