package recordaccess_test

import (
	"context"
	"testing"

	"inkwell/internal/api"
	"inkwell/internal/recordaccess"
	"inkwell/internal/testsupport"
)

func openStoreAccess(t *testing.T) recordaccess.Access {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	access, err := recordaccess.NewStoreAccess(cfg)
	if err != nil {
		t.Fatalf("NewStoreAccess: %v", err)
	}
	t.Cleanup(func() {
		access.Close()
	})
	if access.Daemon() {
		t.Fatal("store access should not report a daemon")
	}
	return access
}

func TestStoreAccessIntakeDispatchDescribe(t *testing.T) {
	access := openStoreAccess(t)
	ctx := context.Background()

	doc, err := access.Intake(ctx, api.IntakeRequest{
		DocumentID:  "doc-offline",
		Bucket:      "test-bucket",
		Key:         "uploads/doc-offline.pdf",
		ContentType: "application/pdf",
		SizeBytes:   4096,
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if doc.Status != "uploaded" {
		t.Fatalf("unexpected status %s", doc.Status)
	}

	outcome, err := access.Dispatch(ctx, "doc-offline", "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcome.Status != "queued" || outcome.Token == "" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	described, err := access.Describe(ctx, "doc-offline")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if described == nil || described.Status != "queued" {
		t.Fatalf("unexpected described document: %+v", described)
	}

	stats, err := access.QueueStats(ctx)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats.Ready != 1 {
		t.Fatalf("expected one ready item, got %+v", stats)
	}
}

func TestStoreAccessListRejectsUnknownStatus(t *testing.T) {
	access := openStoreAccess(t)

	if _, err := access.List(context.Background(), []string{"melting"}, 0); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStoreAccessRecycleRoundTrip(t *testing.T) {
	access := openStoreAccess(t)
	ctx := context.Background()

	if _, err := access.Intake(ctx, api.IntakeRequest{
		DocumentID:  "doc-bin",
		Bucket:      "test-bucket",
		Key:         "uploads/doc-bin.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1024,
	}); err != nil {
		t.Fatalf("Intake: %v", err)
	}

	entry, err := access.Delete(ctx, "doc-bin")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if entry.ExpiresAt == "" {
		t.Fatalf("recycle entry missing expiry: %+v", entry)
	}

	entries, err := access.Recycled(ctx)
	if err != nil {
		t.Fatalf("Recycled: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one recycled entry, got %d", len(entries))
	}

	restored, err := access.Restore(ctx, "doc-bin")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Status != "uploaded" {
		t.Fatalf("expected uploaded after restore, got %s", restored.Status)
	}
}

func TestConnectFallsBackToStores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	// Nothing listens on an unresolvable bind, so Connect must open the
	// stores directly.
	cfg.Paths.APIBind = "127.0.0.1:1"

	access, err := recordaccess.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer access.Close()
	if access.Daemon() {
		t.Fatal("expected store-backed access without a daemon")
	}
}
