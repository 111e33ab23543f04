package intake_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/intake"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/storage"
	"inkwell/internal/testsupport"
)

func newRouter(t *testing.T, cfg *config.Config) (*intake.Router, *records.Store, *storage.Memory) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	objects := storage.NewMemory()
	return intake.NewRouter(cfg, store, objects, logging.NewNop()), store, objects
}

func TestRouteCreatesFastTierRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	router, store, _ := newRouter(t, cfg)
	ctx := context.Background()

	decision, err := router.Route(ctx, intake.Request{
		Bucket:      "test-bucket",
		Key:         "uploads/letter.pdf",
		ContentType: "application/PDF",
		SizeBytes:   4096,
		PageCount:   3,
		Metadata:    records.Metadata{Title: "Letter", Tags: []string{"mail"}},
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if !decision.Created {
		t.Fatal("expected a new record")
	}

	doc := decision.Document
	if doc.Tier != records.TierFast || doc.Status != records.StatusUploaded {
		t.Fatalf("unexpected routing: tier=%s status=%s", doc.Tier, doc.Status)
	}
	if doc.ContentType != "application/pdf" {
		t.Fatalf("expected normalized content type, got %q", doc.ContentType)
	}
	if doc.PageCount != 3 || doc.SizeBytes != 4096 {
		t.Fatalf("unexpected dimensions: %+v", doc)
	}
	if meta := doc.Metadata(); meta.Title != "Letter" || len(meta.Tags) != 1 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	stored, err := store.Get(ctx, doc.DocumentID)
	if err != nil || stored == nil {
		t.Fatalf("expected persisted record: %v", err)
	}
}

func TestRoutePromotesToHeavy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHeavyThresholds(10_000, 25))
	router, _, _ := newRouter(t, cfg)
	ctx := context.Background()

	bySize, err := router.Route(ctx, intake.Request{
		Bucket: "test-bucket", Key: "uploads/big.pdf",
		ContentType: "application/pdf", SizeBytes: 10_001, PageCount: 1,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if bySize.Document.Tier != records.TierHeavy {
		t.Fatalf("expected heavy tier for oversized document, got %s", bySize.Document.Tier)
	}

	byPages, err := router.Route(ctx, intake.Request{
		Bucket: "test-bucket", Key: "uploads/long.pdf",
		ContentType: "application/pdf", SizeBytes: 512, PageCount: 26,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if byPages.Document.Tier != records.TierHeavy {
		t.Fatalf("expected heavy tier for long document, got %s", byPages.Document.Tier)
	}
}

func TestRouteForceTierOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithForceTier("heavy"))
	router, _, _ := newRouter(t, cfg)

	decision, err := router.Route(context.Background(), intake.Request{
		Bucket: "test-bucket", Key: "uploads/tiny.png",
		ContentType: "image/png", SizeBytes: 64,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if decision.Document.Tier != records.TierHeavy {
		t.Fatalf("expected forced heavy tier, got %s", decision.Document.Tier)
	}
}

func TestRouteRejectsInvalidRequests(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	router, _, _ := newRouter(t, cfg)
	ctx := context.Background()

	cases := []struct {
		name string
		req  intake.Request
	}{
		{"missing source", intake.Request{ContentType: "application/pdf", SizeBytes: 10}},
		{"zero size", intake.Request{Bucket: "b", Key: "k", ContentType: "application/pdf"}},
		{"oversized", intake.Request{Bucket: "b", Key: "k", ContentType: "application/pdf", SizeBytes: cfg.Intake.MaxSizeBytes + 1}},
		{"unsupported type", intake.Request{Bucket: "b", Key: "k", ContentType: "application/zip", SizeBytes: 10}},
	}
	for _, tc := range cases {
		if _, err := router.Route(ctx, tc.req); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestRouteIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	router, _, _ := newRouter(t, cfg)
	ctx := context.Background()

	first, err := router.Route(ctx, intake.Request{
		DocumentID: "doc-1", Bucket: "test-bucket", Key: "uploads/a.pdf",
		ContentType: "application/pdf", SizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if !first.Created {
		t.Fatal("expected first submission to create")
	}

	retry, err := router.Route(ctx, intake.Request{
		DocumentID: "doc-1", Bucket: "test-bucket", Key: "uploads/a.pdf",
		ContentType: "application/pdf", SizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("Route retry failed: %v", err)
	}
	if retry.Created || retry.Document.DocumentID != "doc-1" {
		t.Fatalf("expected existing record on retry, got %+v", retry)
	}

	// A fresh id for the same source object also resolves to the original.
	other, err := router.Route(ctx, intake.Request{
		Bucket: "test-bucket", Key: "uploads/a.pdf",
		ContentType: "application/pdf", SizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if other.Created || other.Document.DocumentID != "doc-1" {
		t.Fatalf("expected source dedupe, got %+v", other)
	}
}

func TestRouteRefusesRecycledSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	router, store, _ := newRouter(t, cfg)
	ctx := context.Background()

	first, err := router.Route(ctx, intake.Request{
		DocumentID: "doc-bin", Bucket: "test-bucket", Key: "uploads/bin.pdf",
		ContentType: "application/pdf", SizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if _, err := store.SoftDelete(ctx, first.Document.DocumentID, 30*24*time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// The source stays claimed by the recycled record; resubmitting is a
	// conflict the caller resolves by restoring or purging, not a 500.
	_, err = router.Route(ctx, intake.Request{
		Bucket: "test-bucket", Key: "uploads/bin.pdf",
		ContentType: "application/pdf", SizeBytes: 2048,
	})
	if !errors.Is(err, services.ErrStateConflict) {
		t.Fatalf("expected state conflict for recycled source, got %v", err)
	}
	if errors.Is(err, services.ErrStore) {
		t.Fatalf("recycled source must not classify as a store fault: %v", err)
	}
}

func TestRouteSurvivesUnreadablePDF(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	router, _, objects := newRouter(t, cfg)
	ctx := context.Background()

	// Not a PDF at all; inspection must not fail the request.
	if err := objects.Put(ctx, "test-bucket", "uploads/broken.pdf", "application/pdf",
		strings.NewReader("not a pdf")); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	decision, err := router.Route(ctx, intake.Request{
		Bucket: "test-bucket", Key: "uploads/broken.pdf",
		ContentType: "application/pdf", SizeBytes: 9,
	})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if decision.Document.PageCount != 0 || decision.Document.Tier != records.TierFast {
		t.Fatalf("expected size-only routing, got %+v", decision.Document)
	}
}

func TestClassifyThresholds(t *testing.T) {
	cfg := config.Intake{HeavySizeBytes: 100, HeavyPageCount: 10}

	cases := []struct {
		name  string
		size  int64
		pages int
		force string
		want  records.Tier
	}{
		{"small and short", 50, 5, "", records.TierFast},
		{"at both limits", 100, 10, "", records.TierFast},
		{"over size", 101, 1, "", records.TierHeavy},
		{"over pages", 1, 11, "", records.TierHeavy},
		{"forced fast", 500, 50, "fast", records.TierFast},
		{"forced heavy", 1, 1, "heavy", records.TierHeavy},
	}
	for _, tc := range cases {
		cfg.ForceTier = tc.force
		if got := intake.Classify(cfg, tc.size, tc.pages); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
