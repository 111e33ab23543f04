package api_test

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/api"
	"inkwell/internal/records"
	"inkwell/internal/testsupport"
	"inkwell/internal/workqueue"
)

func TestDocumentServiceListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	svc := api.NewDocumentService(store, queue)
	ctx := context.Background()

	testsupport.NewDocument(t, store, "doc-a", records.TierFast)
	docB := testsupport.NewDocument(t, store, "doc-b", records.TierFast)
	testsupport.AdvanceTo(t, store, docB, records.StatusQueued)

	queued, err := svc.List(ctx, []records.Status{records.StatusQueued}, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(queued) != 1 || queued[0].DocumentID != "doc-b" {
		t.Fatalf("unexpected filtered list: %+v", queued)
	}

	all, err := svc.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(all))
	}
}

func TestDocumentServiceDescribeMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewDocumentService(store, nil)

	dto, err := svc.Describe(context.Background(), "doc-missing")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if dto != nil {
		t.Fatalf("expected nil DTO for missing record, got %+v", dto)
	}
}

func TestDocumentServiceDeadLetters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	svc := api.NewDocumentService(store, queue)
	ctx := context.Background()

	item, err := queue.Enqueue(ctx, workqueue.NewItem{
		DocumentID:    "doc-dead",
		Tier:          "fast",
		DispatchToken: "feedfacefeedface",
		TriggerSource: workqueue.TriggerAPI,
		MaxAttempts:   1,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Lease(ctx, "fast", time.Minute); err != nil {
		t.Fatalf("Lease: %v", err)
	}
	deadLettered, err := queue.Release(ctx, item.ID, 0, "engine down")
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !deadLettered {
		t.Fatal("expected release to dead-letter the exhausted item")
	}

	items, err := svc.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("DeadLetters: %v", err)
	}
	if len(items) != 1 || items[0].DocumentID != "doc-dead" || !items[0].DeadLettered {
		t.Fatalf("unexpected dead letters: %+v", items)
	}
}

func TestDocumentServiceStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	svc := api.NewDocumentService(store, queue)
	ctx := context.Background()

	testsupport.NewDocument(t, store, "doc-stats", records.TierFast)

	recordStats, err := svc.RecordStats(ctx)
	if err != nil {
		t.Fatalf("RecordStats: %v", err)
	}
	if recordStats.Total != 1 || recordStats.Uploaded != 1 {
		t.Fatalf("unexpected record stats: %+v", recordStats)
	}

	queueStats, err := svc.QueueStats(ctx)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if queueStats.Ready != 0 || queueStats.DeadLetters != 0 {
		t.Fatalf("unexpected queue stats: %+v", queueStats)
	}
}
