package api

import (
	"context"

	"inkwell/internal/records"
	"inkwell/internal/workqueue"
)

// RecordReader abstracts record store reads needed for API queries.
type RecordReader interface {
	List(ctx context.Context, filter records.ListFilter) ([]*records.Document, error)
	Get(ctx context.Context, documentID string) (*records.Document, error)
	ListRecycled(ctx context.Context) ([]*records.Document, error)
	Stats(ctx context.Context) (records.StoreStats, error)
}

// QueueReader abstracts work queue reads needed for API queries.
type QueueReader interface {
	DeadLetters(ctx context.Context) ([]*workqueue.Item, error)
	Stats(ctx context.Context) (workqueue.Stats, error)
}

// DocumentService exposes read-only record operations returning API DTOs.
type DocumentService struct {
	store RecordReader
	queue QueueReader
}

// NewDocumentService constructs a DocumentService around the provided readers.
// The queue reader may be nil when dead-letter inspection is unavailable.
func NewDocumentService(store RecordReader, queue QueueReader) *DocumentService {
	if store == nil {
		return nil
	}
	return &DocumentService{store: store, queue: queue}
}

// List returns active documents, newest first, filtered by status.
func (s *DocumentService) List(ctx context.Context, statuses []records.Status, limit int) ([]Document, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	docs, err := s.store.List(ctx, records.ListFilter{Statuses: statuses, Limit: limit})
	if err != nil {
		return nil, err
	}
	return FromDocuments(docs), nil
}

// Describe fetches a single active document.
func (s *DocumentService) Describe(ctx context.Context, documentID string) (*Document, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	doc, err := s.store.Get(ctx, documentID)
	if err != nil || doc == nil {
		return nil, err
	}
	dto := FromDocument(doc)
	return &dto, nil
}

// Recycled returns the recycle view.
func (s *DocumentService) Recycled(ctx context.Context) ([]RecycleEntry, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	docs, err := s.store.ListRecycled(ctx)
	if err != nil {
		return nil, err
	}
	return FromRecycledList(docs), nil
}

// DeadLetters returns exhausted work items awaiting operator action.
func (s *DocumentService) DeadLetters(ctx context.Context) ([]WorkItem, error) {
	if s == nil || s.queue == nil {
		return nil, nil
	}
	items, err := s.queue.DeadLetters(ctx)
	if err != nil {
		return nil, err
	}
	return FromWorkItems(items), nil
}

// RecordStats returns record counts by lifecycle bucket.
func (s *DocumentService) RecordStats(ctx context.Context) (RecordStats, error) {
	if s == nil || s.store == nil {
		return RecordStats{}, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return RecordStats{}, err
	}
	return FromRecordStats(stats), nil
}

// QueueStats returns work queue depth counters.
func (s *DocumentService) QueueStats(ctx context.Context) (QueueStats, error) {
	if s == nil || s.queue == nil {
		return QueueStats{}, nil
	}
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return FromQueueStats(stats), nil
}
