package worker_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/dispatch"
	"inkwell/internal/extraction"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/storage"
	"inkwell/internal/testsupport"
	"inkwell/internal/worker"
	"inkwell/internal/workqueue"
)

type fakeFastEngine struct {
	mu        sync.Mutex
	calls     int
	text      string
	language  string
	pageCount int
	err       error
}

func (f *fakeFastEngine) Recognize(ctx context.Context, input extraction.Input) (extraction.Output, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return extraction.Output{}, f.err
	}
	return extraction.Output{Text: f.text, Language: f.language, PageCount: f.pageCount}, nil
}

func (f *fakeFastEngine) Refine(ctx context.Context, documentID, text, language string) (string, error) {
	return text + " refined", nil
}

func (f *fakeFastEngine) HealthCheck(context.Context) error { return nil }

func (f *fakeFastEngine) recognizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBatchEngine struct {
	text      string
	language  string
	pageCount int
}

func (f *fakeBatchEngine) Submit(ctx context.Context, input extraction.Input) (string, error) {
	return "engine-job-1", nil
}

func (f *fakeBatchEngine) Await(ctx context.Context, jobID string) (extraction.Output, error) {
	return extraction.Output{Text: f.text, Language: f.language, PageCount: f.pageCount}, nil
}

func (f *fakeBatchEngine) HealthCheck(context.Context) error { return nil }

type recordingNotifier struct {
	mu          sync.Mutex
	processed   []string
	failed      []string
	failReasons []string
	deadLetters []string
}

func (n *recordingNotifier) NotifyDocumentProcessed(_ context.Context, documentID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.processed = append(n.processed, documentID)
	return nil
}

func (n *recordingNotifier) NotifyDocumentFailed(_ context.Context, documentID, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, documentID)
	n.failReasons = append(n.failReasons, reason)
	return nil
}

func (n *recordingNotifier) NotifyDeadLetter(_ context.Context, documentID string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deadLetters = append(n.deadLetters, documentID)
	return nil
}

func (n *recordingNotifier) NotifyDaemonStarted(context.Context, string) error { return nil }
func (n *recordingNotifier) NotifyDaemonStopped(context.Context) error         { return nil }
func (n *recordingNotifier) TestNotification(context.Context) error            { return nil }

func (n *recordingNotifier) failedReasons() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failReasons...)
}

func seedObject(t *testing.T, objects *storage.Memory, doc *records.Document) {
	t.Helper()
	err := objects.Put(context.Background(), doc.SourceBucket, doc.SourceKey,
		doc.ContentType, bytes.NewReader([]byte("%PDF-1.7 test bytes")))
	if err != nil {
		t.Fatalf("seed object: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startManager(t *testing.T, cfg *config.Config, store *records.Store, queue *workqueue.Store, objects storage.ObjectStore, notifier *recordingNotifier, set worker.StageSet) *worker.Manager {
	t.Helper()
	mgr := worker.NewManagerWithNotifier(cfg, store, queue, objects, logging.NewNop(), notifier)
	mgr.ConfigureStages(set)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("manager.Start: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func TestFastLaneProcessesDocumentEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	objects := storage.NewMemory()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-fast", records.TierFast)
	seedObject(t, objects, doc)

	dispatcher := dispatch.New(cfg, store, queue, logging.NewNop())
	if _, err := dispatcher.Dispatch(ctx, dispatch.TriggerFromRequest("doc-fast", "", "", "")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	engine := &fakeFastEngine{text: "hello scanned world", language: "en", pageCount: 3}
	startManager(t, cfg, store, queue, objects, notifier, worker.StageSet{
		Recognize: worker.NewRecognizeStage(engine, engine, []string{"en"}, logging.NewNop()),
	})

	waitFor(t, 5*time.Second, "document to process", func() bool {
		current, err := store.Get(ctx, "doc-fast")
		return err == nil && current != nil && current.Status == records.StatusProcessed
	})

	done, err := store.Get(ctx, "doc-fast")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	result, ok := done.Result()
	if !ok {
		t.Fatal("expected a stored result")
	}
	if result.ExtractedText != "hello scanned world" {
		t.Fatalf("unexpected extracted text %q", result.ExtractedText)
	}
	if result.RefinedText != "hello scanned world refined" {
		t.Fatalf("unexpected refined text %q", result.RefinedText)
	}
	if !strings.Contains(result.FormattedText, "hello scanned world refined") {
		t.Fatalf("unexpected formatted text %q", result.FormattedText)
	}
	if result.Language != "en" || result.WordCount == 0 {
		t.Fatalf("unexpected result stats: %+v", result)
	}
	if done.PageCount != 3 {
		t.Fatalf("expected page count propagated, got %d", done.PageCount)
	}
	if done.LastHeartbeat != nil {
		t.Fatal("heartbeat must clear on the terminal write")
	}

	waitFor(t, 2*time.Second, "queue to drain", func() bool {
		stats, err := queue.Stats(ctx)
		return err == nil && stats.Ready == 0 && stats.Leased == 0 && stats.DeadLetters == 0
	})

	notifier.mu.Lock()
	processed := len(notifier.processed)
	notifier.mu.Unlock()
	if processed != 1 {
		t.Fatalf("expected one processed notification, got %d", processed)
	}
}

func TestStaleTokenItemIsDiscarded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	objects := storage.NewMemory()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-dup", records.TierFast)
	seedObject(t, objects, doc)

	// Two dispatches produce two queued items; only the second token is
	// current, so the first item must be dropped without touching the record.
	dispatcher := dispatch.New(cfg, store, queue, logging.NewNop())
	if _, err := dispatcher.Dispatch(ctx, dispatch.TriggerFromRequest("doc-dup", "", "", "")); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if _, err := dispatcher.Dispatch(ctx, dispatch.TriggerFromRequest("doc-dup", "", "", "")); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	engine := &fakeFastEngine{text: "single run", language: "en"}
	startManager(t, cfg, store, queue, objects, notifier, worker.StageSet{
		Recognize: worker.NewRecognizeStage(engine, engine, []string{"en"}, logging.NewNop()),
	})

	waitFor(t, 5*time.Second, "document to process", func() bool {
		current, err := store.Get(ctx, "doc-dup")
		return err == nil && current != nil && current.Status == records.StatusProcessed
	})
	waitFor(t, 2*time.Second, "queue to drain", func() bool {
		stats, err := queue.Stats(ctx)
		return err == nil && stats.Ready == 0 && stats.Leased == 0
	})

	if calls := engine.recognizeCalls(); calls != 1 {
		t.Fatalf("expected exactly one engine call, got %d", calls)
	}
	stats, err := queue.Stats(ctx)
	if err != nil || stats.DeadLetters != 0 {
		t.Fatalf("expected no dead letters, got %+v err=%v", stats, err)
	}
}

func TestRedeliveryForClaimedRecordIsDiscarded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	objects := storage.NewMemory()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-claimed", records.TierFast)
	seedObject(t, objects, doc)

	// Simulate a crashed consumer: the record was claimed but its item is
	// back in the queue. The token still matches, but the record is no
	// longer queued, so the redelivery must be dropped and the record left
	// for the reconciler.
	token := "feedfacefeedface"
	queued, err := store.Transition(ctx, doc, records.StatusQueued, &records.TransitionUpdate{DispatchToken: &token})
	if err != nil {
		t.Fatalf("queue transition: %v", err)
	}
	if _, err := store.Transition(ctx, queued, records.StatusProcessing, nil); err != nil {
		t.Fatalf("claim transition: %v", err)
	}
	if _, err := queue.Enqueue(ctx, workqueue.NewItem{
		DocumentID:    doc.DocumentID,
		Tier:          string(doc.Tier),
		DispatchToken: token,
		TriggerSource: workqueue.TriggerAPI,
		Payload:       workqueue.Payload{DocumentID: doc.DocumentID, Tier: string(doc.Tier)},
		MaxAttempts:   cfg.Dispatch.MaxAttempts,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	engine := &fakeFastEngine{text: "should never run"}
	startManager(t, cfg, store, queue, objects, notifier, worker.StageSet{
		Recognize: worker.NewRecognizeStage(engine, engine, []string{"en"}, logging.NewNop()),
	})

	waitFor(t, 5*time.Second, "queue to drain", func() bool {
		stats, err := queue.Stats(ctx)
		return err == nil && stats.Ready == 0 && stats.Leased == 0
	})

	if calls := engine.recognizeCalls(); calls != 0 {
		t.Fatalf("engine must not run for a claimed record, got %d calls", calls)
	}
	current, err := store.Get(ctx, "doc-claimed")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if current.Status != records.StatusProcessing {
		t.Fatalf("record must stay processing for the reconciler, got %s", current.Status)
	}
}

func TestHeavyLaneWalksPipelineAndArchives(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	objects := storage.NewMemory()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-heavy", records.TierHeavy)
	seedObject(t, objects, doc)

	dispatcher := dispatch.New(cfg, store, queue, logging.NewNop())
	if _, err := dispatcher.Dispatch(ctx, dispatch.TriggerFromRequest("doc-heavy", "", "", "")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	batch := &fakeBatchEngine{text: "sixty page scan body", language: "de", pageCount: 60}
	refiner := &fakeFastEngine{}
	startManager(t, cfg, store, queue, objects, notifier, worker.StageSet{
		OCR:     worker.NewOCRStage(batch, []string{"en"}, logging.NewNop()),
		Quality: worker.NewQualityStage(logging.NewNop()),
		Refine:  worker.NewRefineStage(refiner, logging.NewNop()),
		Archive: worker.NewArchiveStage(objects, cfg.Storage.Bucket, cfg.Storage.ResultsPrefix, logging.NewNop()),
	})

	waitFor(t, 5*time.Second, "document to process", func() bool {
		current, err := store.Get(ctx, "doc-heavy")
		return err == nil && current != nil && current.Status == records.StatusProcessed
	})

	done, err := store.Get(ctx, "doc-heavy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	result, ok := done.Result()
	if !ok {
		t.Fatal("expected a stored result")
	}
	if result.ExtractedText != "sixty page scan body" {
		t.Fatalf("unexpected extracted text %q", result.ExtractedText)
	}
	if result.RefinedText != "sixty page scan body refined" {
		t.Fatalf("unexpected refined text %q", result.RefinedText)
	}
	if result.Language != "de" || result.QualityScore <= 0 {
		t.Fatalf("unexpected result stats: %+v", result)
	}
	wantKey := storage.ResultKey(cfg.Storage.ResultsPrefix, "doc-heavy")
	if result.ResultKey != wantKey {
		t.Fatalf("expected result key %q, got %q", wantKey, result.ResultKey)
	}
	if done.PageCount != 60 {
		t.Fatalf("expected page count from the engine, got %d", done.PageCount)
	}
	if _, err := objects.Head(ctx, cfg.Storage.Bucket, wantKey); err != nil {
		t.Fatalf("expected archived result object: %v", err)
	}
}

func TestStageFailureMarksDocumentFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	objects := storage.NewMemory()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "doc-broken", records.TierFast)
	seedObject(t, objects, doc)

	dispatcher := dispatch.New(cfg, store, queue, logging.NewNop())
	if _, err := dispatcher.Dispatch(ctx, dispatch.TriggerFromRequest("doc-broken", "", "", "")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	engine := &fakeFastEngine{err: errors.New("engine exploded")}
	startManager(t, cfg, store, queue, objects, notifier, worker.StageSet{
		Recognize: worker.NewRecognizeStage(engine, engine, []string{"en"}, logging.NewNop()),
	})

	waitFor(t, 5*time.Second, "document to fail", func() bool {
		current, err := store.Get(ctx, "doc-broken")
		return err == nil && current != nil && current.Status == records.StatusFailed
	})

	failed, err := store.Get(ctx, "doc-broken")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(failed.LastError, "recognize: ") {
		t.Fatalf("expected stage-tagged error, got %q", failed.LastError)
	}
	if failed.LastHeartbeat != nil {
		t.Fatal("heartbeat must clear on failure")
	}

	waitFor(t, 2*time.Second, "queue to drain", func() bool {
		stats, err := queue.Stats(ctx)
		return err == nil && stats.Ready == 0 && stats.Leased == 0
	})

	reasons := notifier.failedReasons()
	if len(reasons) != 1 || !strings.Contains(reasons[0], "engine exploded") {
		t.Fatalf("unexpected failure notifications: %v", reasons)
	}
}
