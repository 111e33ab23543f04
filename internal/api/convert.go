package api

import (
	"time"

	"inkwell/internal/records"
	"inkwell/internal/stage"
	"inkwell/internal/workqueue"
)

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

// FromMetadata converts stored metadata to its wire shape.
func FromMetadata(meta records.Metadata) Metadata {
	return Metadata{
		Title:       meta.Title,
		Author:      meta.Author,
		Publication: meta.Publication,
		Year:        meta.Year,
		Description: meta.Description,
		Tags:        meta.Tags,
	}
}

// ToMetadata converts wire metadata back to the stored shape.
func ToMetadata(meta Metadata) records.Metadata {
	return records.Metadata{
		Title:       meta.Title,
		Author:      meta.Author,
		Publication: meta.Publication,
		Year:        meta.Year,
		Description: meta.Description,
		Tags:        meta.Tags,
	}
}

// FromDocument converts a stored record into its wire representation.
func FromDocument(doc *records.Document) Document {
	if doc == nil {
		return Document{}
	}

	out := Document{
		DocumentID:   doc.DocumentID,
		CreatedAt:    formatTime(doc.CreatedAt),
		UpdatedAt:    formatTime(doc.UpdatedAt),
		Tier:         string(doc.Tier),
		Status:       string(doc.Status),
		SourceBucket: doc.SourceBucket,
		SourceKey:    doc.SourceKey,
		ContentType:  doc.ContentType,
		SizeBytes:    doc.SizeBytes,
		PageCount:    doc.PageCount,
		Metadata:     FromMetadata(doc.Metadata()),
		UserEdited:   doc.UserEdited,
		LastEdited:   formatTimePtr(doc.LastEditedAt),
		LastError:    doc.LastError,
		RetryCount:   doc.RetryCount,
		DeletedAt:    formatTimePtr(doc.DeletedAt),
		ExpiresAt:    formatTimePtr(doc.ExpiresAt),
	}

	if result, ok := doc.Result(); ok {
		out.Result = &Result{
			ExtractedText: result.ExtractedText,
			RefinedText:   result.RefinedText,
			FormattedText: result.FormattedText,
			Language:      result.Language,
			PageCount:     result.PageCount,
			WordCount:     result.WordCount,
			QualityScore:  result.QualityScore,
			ResultKey:     result.ResultKey,
		}
	}
	if snapshot, ok := doc.OriginalResult(); ok {
		out.OriginalResult = &OriginalResult{
			RefinedText:   snapshot.RefinedText,
			FormattedText: snapshot.FormattedText,
		}
	}

	history := doc.EditHistory()
	out.EditHistory = make([]EditHistoryEntry, 0, len(history))
	for _, entry := range history {
		out.EditHistory = append(out.EditHistory, EditHistoryEntry{
			EditedAt:     formatTime(entry.EditedAt),
			EditedFields: entry.EditedFields,
			Previous:     entry.Previous,
		})
	}
	return out
}

// FromDocuments converts a record slice preserving order.
func FromDocuments(docs []*records.Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}

// FromRecycled converts a recycled record into a recycle view entry.
func FromRecycled(doc *records.Document) RecycleEntry {
	if doc == nil {
		return RecycleEntry{}
	}
	return RecycleEntry{
		DocumentID: doc.DocumentID,
		Title:      doc.Metadata().Title,
		Status:     string(doc.Status),
		DeletedAt:  formatTimePtr(doc.DeletedAt),
		ExpiresAt:  formatTimePtr(doc.ExpiresAt),
	}
}

// FromRecycledList converts the recycle view preserving order.
func FromRecycledList(docs []*records.Document) []RecycleEntry {
	out := make([]RecycleEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromRecycled(doc))
	}
	return out
}

// FromWorkItem converts a queue entry into its wire representation.
func FromWorkItem(item *workqueue.Item) WorkItem {
	if item == nil {
		return WorkItem{}
	}
	return WorkItem{
		ID:            item.ID,
		DocumentID:    item.DocumentID,
		Tier:          item.Tier,
		DispatchToken: item.DispatchToken,
		TriggerSource: string(item.TriggerSource),
		EnqueuedAt:    formatTime(item.EnqueuedAt),
		Attempts:      item.Attempts,
		MaxAttempts:   item.MaxAttempts,
		DeadLettered:  item.DeadLettered,
		LastError:     item.LastError,
	}
}

// FromWorkItems converts a queue item slice preserving order.
func FromWorkItems(items []*workqueue.Item) []WorkItem {
	out := make([]WorkItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromWorkItem(item))
	}
	return out
}

// FromRecordStats converts store statistics.
func FromRecordStats(stats records.StoreStats) RecordStats {
	return RecordStats{
		Total:      stats.Total,
		Uploaded:   stats.Uploaded,
		Queued:     stats.Queued,
		InFlight:   stats.InFlight,
		Processed:  stats.Processed,
		Failed:     stats.Failed,
		Recycled:   stats.Recycled,
		UserEdited: stats.UserEdited,
	}
}

// FromQueueStats converts work queue statistics.
func FromQueueStats(stats workqueue.Stats) QueueStats {
	return QueueStats{
		Ready:       stats.Ready,
		Leased:      stats.Leased,
		DeadLetters: stats.DeadLetters,
	}
}

// FromStageHealth converts stage health entries sorted by the given order.
func FromStageHealth(health map[string]stage.Health, order []string) []StageHealth {
	out := make([]StageHealth, 0, len(health))
	seen := make(map[string]struct{}, len(health))
	for _, name := range order {
		if h, ok := health[name]; ok {
			out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
			seen[name] = struct{}{}
		}
	}
	for name, h := range health {
		if _, ok := seen[name]; ok {
			continue
		}
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}
