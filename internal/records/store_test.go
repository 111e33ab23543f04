package records_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/testsupport"
)

func TestCreateIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	input := records.NewDocument{
		DocumentID:   "doc-1",
		Tier:         records.TierFast,
		SourceBucket: "uploads",
		SourceKey:    "in/doc-1.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    1024,
		Metadata:     records.Metadata{Title: "Quarterly Report"},
	}

	first, created, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !created {
		t.Fatal("first Create should report a new record")
	}
	if first.Status != records.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", first.Status)
	}
	if first.StatusGeneration != 0 || first.Revision != 0 {
		t.Fatalf("expected zero generation and revision, got %d/%d", first.StatusGeneration, first.Revision)
	}
	if meta := first.Metadata(); meta.Title != "Quarterly Report" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	second, created, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("repeat Create failed: %v", err)
	}
	if created {
		t.Fatal("retry Create should report the existing record")
	}
	if second.DocumentID != first.DocumentID || second.CreatedAt != first.CreatedAt {
		t.Fatalf("expected identical record on retry, got %+v", second)
	}

	// A new id for the same source object resolves to the existing record.
	input.DocumentID = "doc-1-retry"
	third, created, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create with duplicate source failed: %v", err)
	}
	if created {
		t.Fatal("duplicate source Create should report the existing record")
	}
	if third.DocumentID != "doc-1" {
		t.Fatalf("expected existing record for duplicate source, got %s", third.DocumentID)
	}
}

func TestCreateConflictsWithRecycledRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	input := records.NewDocument{
		DocumentID:   "doc-1",
		Tier:         records.TierFast,
		SourceBucket: "uploads",
		SourceKey:    "in/a.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    1024,
	}
	if _, _, err := store.Create(ctx, input); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.SoftDelete(ctx, "doc-1", 30*24*time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// A fresh id against the recycled source must point the caller at the
	// recycle bin, not report a store fault.
	input.DocumentID = "doc-2"
	_, _, err := store.Create(ctx, input)
	if !errors.Is(err, services.ErrStateConflict) {
		t.Fatalf("expected state conflict for recycled source, got %v", err)
	}
	if !strings.Contains(err.Error(), "recycle bin") {
		t.Fatalf("error should name the recycle bin, got %q", err.Error())
	}

	// Retrying the recycled id itself hits the same wall.
	input.DocumentID = "doc-1"
	if _, _, err := store.Create(ctx, input); !errors.Is(err, services.ErrStateConflict) {
		t.Fatalf("expected state conflict for recycled id, got %v", err)
	}

	// After restore the source resolves to the existing record again.
	if _, err := store.Restore(ctx, "doc-1"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	input.DocumentID = "doc-2"
	doc, created, err := store.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create after restore failed: %v", err)
	}
	if created || doc.DocumentID != "doc-1" {
		t.Fatalf("expected existing record doc-1, got created=%v id=%s", created, doc.DocumentID)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cases := []records.NewDocument{
		{Tier: records.TierFast, SourceBucket: "b", SourceKey: "k"},
		{DocumentID: "doc", Tier: "turbo", SourceBucket: "b", SourceKey: "k"},
		{DocumentID: "doc", Tier: records.TierFast, SourceKey: "k"},
		{DocumentID: "doc", Tier: records.TierFast, SourceBucket: "b"},
	}
	for _, input := range cases {
		if _, _, err := store.Create(ctx, input); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestTransitionAdvancesGenerationAndRevision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-gen", records.TierFast)
	token := "token-1"
	queued, err := store.Transition(ctx, doc, records.StatusQueued, &records.TransitionUpdate{DispatchToken: &token})
	if err != nil {
		t.Fatalf("transition to queued failed: %v", err)
	}
	if queued.Status != records.StatusQueued {
		t.Fatalf("expected queued, got %s", queued.Status)
	}
	if queued.StatusGeneration != doc.StatusGeneration+1 {
		t.Fatalf("expected generation bump, got %d", queued.StatusGeneration)
	}
	if queued.Revision != doc.Revision+1 {
		t.Fatalf("expected revision bump, got %d", queued.Revision)
	}
	if queued.DispatchToken != "token-1" {
		t.Fatalf("expected dispatch token stored, got %q", queued.DispatchToken)
	}
	if !queued.StatusChangedAt.After(doc.StatusChangedAt) {
		t.Fatalf("expected status_changed_at to advance")
	}
}

func TestTransitionDetectsLostRace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-race", records.TierFast)

	if _, err := store.Transition(ctx, doc, records.StatusQueued, nil); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	// The stale handle still says uploaded/generation 0; the write must miss.
	_, err := store.Transition(ctx, doc, records.StatusQueued, nil)
	if !errors.Is(err, services.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-edges", records.TierFast)

	// Skipping queued is not allowed.
	if _, err := store.Transition(ctx, doc, records.StatusProcessing, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for uploaded -> processing, got %v", err)
	}

	done := testsupport.AdvanceTo(t, store, doc, records.StatusProcessed)

	// Terminal success is sticky.
	for _, target := range []records.Status{records.StatusQueued, records.StatusFailed, records.StatusProcessing} {
		if _, err := store.Transition(ctx, done, target, nil); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for processed -> %s, got %v", target, err)
		}
	}
}

func TestTransitionFailureAndRetryPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-fail", records.TierHeavy)
	inflight := testsupport.AdvanceTo(t, store, doc, records.StatusProcessingOCR)

	reason := "ocr engine unreachable"
	failed, err := store.Transition(ctx, inflight, records.StatusFailed, &records.TransitionUpdate{
		LastError:      &reason,
		ClearHeartbeat: true,
	})
	if err != nil {
		t.Fatalf("fail transition failed: %v", err)
	}
	if failed.LastError != reason {
		t.Fatalf("expected last_error %q, got %q", reason, failed.LastError)
	}

	// Explicit retry moves failed back to queued and clears the diagnostic.
	empty := ""
	token := "token-retry"
	requeued, err := store.Transition(ctx, failed, records.StatusQueued, &records.TransitionUpdate{
		LastError:     &empty,
		DispatchToken: &token,
		BumpRetry:     true,
	})
	if err != nil {
		t.Fatalf("retry transition failed: %v", err)
	}
	if requeued.Status != records.StatusQueued {
		t.Fatalf("expected queued, got %s", requeued.Status)
	}
	if requeued.LastError != "" {
		t.Fatalf("expected cleared last_error, got %q", requeued.LastError)
	}
	if requeued.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", requeued.RetryCount)
	}
}

func TestTransitionWritesResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-result", records.TierFast)
	processing := testsupport.AdvanceTo(t, store, doc, records.StatusProcessing)

	result := records.Result{
		ExtractedText: "raw text",
		RefinedText:   "refined text",
		FormattedText: "# refined text",
		Language:      "en",
		WordCount:     2,
	}
	done, err := store.Transition(ctx, processing, records.StatusProcessed, &records.TransitionUpdate{
		Result:         &result,
		ClearHeartbeat: true,
	})
	if err != nil {
		t.Fatalf("terminal transition failed: %v", err)
	}
	stored, ok := done.Result()
	if !ok {
		t.Fatal("expected result to be present")
	}
	if stored.RefinedText != "refined text" || stored.Language != "en" {
		t.Fatalf("unexpected stored result: %+v", stored)
	}
}

func TestNotFoundAndRecycledTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ghost := &records.Document{DocumentID: "missing", Status: records.StatusUploaded}
	if _, err := store.Transition(ctx, ghost, records.StatusQueued, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	doc := testsupport.NewDocument(t, store, "doc-recycled", records.TierFast)
	if _, err := store.SoftDelete(ctx, doc.DocumentID, time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := store.Transition(ctx, doc, records.StatusQueued, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for recycled record, got %v", err)
	}
}

func TestListFiltersAndOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewDocument(t, store, "doc-a", records.TierFast)
	testsupport.NewDocument(t, store, "doc-b", records.TierHeavy)
	testsupport.AdvanceTo(t, store, first, records.StatusQueued)

	all, err := store.List(ctx, records.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(all))
	}

	queued, err := store.List(ctx, records.ListFilter{Statuses: []records.Status{records.StatusQueued}})
	if err != nil {
		t.Fatalf("List by status failed: %v", err)
	}
	if len(queued) != 1 || queued[0].DocumentID != "doc-a" {
		t.Fatalf("unexpected queued list: %+v", queued)
	}

	heavy, err := store.List(ctx, records.ListFilter{Tier: records.TierHeavy})
	if err != nil {
		t.Fatalf("List by tier failed: %v", err)
	}
	if len(heavy) != 1 || heavy[0].DocumentID != "doc-b" {
		t.Fatalf("unexpected heavy list: %+v", heavy)
	}
}

func TestLookupBySource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-src", records.TierFast)

	found, err := store.LookupBySource(ctx, doc.SourceBucket, doc.SourceKey)
	if err != nil {
		t.Fatalf("LookupBySource failed: %v", err)
	}
	if found == nil || found.DocumentID != doc.DocumentID {
		t.Fatalf("expected to find %s, got %+v", doc.DocumentID, found)
	}

	missing, err := store.LookupBySource(ctx, "other", "key")
	if err != nil {
		t.Fatalf("LookupBySource failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown source, got %+v", missing)
	}
}

func TestUpdateHeartbeatLeavesRevisionAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-hb", records.TierFast)
	inflight := testsupport.AdvanceTo(t, store, doc, records.StatusProcessing)

	if err := store.UpdateHeartbeat(ctx, inflight.DocumentID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	reloaded, err := store.Get(ctx, inflight.DocumentID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if reloaded.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to be stamped")
	}
	if reloaded.Revision != inflight.Revision {
		t.Fatalf("expected revision unchanged, got %d want %d", reloaded.Revision, inflight.Revision)
	}
}

func TestStaleSinceFindsStuckRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stuck := testsupport.NewDocument(t, store, "doc-stuck", records.TierFast)
	testsupport.AdvanceTo(t, store, stuck, records.StatusProcessing)

	fresh := testsupport.NewDocument(t, store, "doc-fresh", records.TierFast)
	testsupport.AdvanceTo(t, store, fresh, records.StatusQueued)

	// Uploaded records are not dispatchable work and never count as stuck.
	testsupport.NewDocument(t, store, "doc-idle", records.TierFast)

	matches, err := store.StaleSince(ctx, records.TierFast, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("StaleSince failed: %v", err)
	}
	ids := make(map[string]bool, len(matches))
	for _, match := range matches {
		ids[match.DocumentID] = true
	}
	if !ids["doc-stuck"] || !ids["doc-fresh"] {
		t.Fatalf("expected stuck and fresh queued docs in sweep, got %v", ids)
	}
	if ids["doc-idle"] {
		t.Fatal("uploaded record must not appear in sweep")
	}

	none, err := store.StaleSince(ctx, records.TierFast, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("StaleSince failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches before cutoff, got %d", len(none))
	}
}

func TestStatsCountsByLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewDocument(t, store, "doc-up", records.TierFast)
	queued := testsupport.NewDocument(t, store, "doc-q", records.TierFast)
	testsupport.AdvanceTo(t, store, queued, records.StatusQueued)
	done := testsupport.NewDocument(t, store, "doc-done", records.TierFast)
	testsupport.AdvanceTo(t, store, done, records.StatusProcessed)
	gone := testsupport.NewDocument(t, store, "doc-gone", records.TierFast)
	if _, err := store.SoftDelete(ctx, gone.DocumentID, time.Hour); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Uploaded != 1 || stats.Queued != 1 || stats.Processed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Recycled != 1 {
		t.Fatalf("expected 1 recycled, got %d", stats.Recycled)
	}
}
