package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/services"
)

// TransitionUpdate carries the optional column writes that ride along with a
// status transition. Nil pointer fields leave the column untouched.
type TransitionUpdate struct {
	LastError      *string
	Result         *Result
	PageCount      *int
	DispatchToken  *string
	HeartbeatNow   bool
	ClearHeartbeat bool
	BumpRetry      bool
	ResetRetry     bool
}

// Transition performs the conditional status write every lifecycle actor
// coordinates through. The write succeeds only while the stored (status,
// status_generation) pair still matches the document the caller read; a lost
// race returns StateConflict and the caller re-reads before deciding whether
// to retry. Illegal edges fail with ValidationError without touching the row.
func (s *Store) Transition(ctx context.Context, doc *Document, to Status, update *TransitionUpdate) (*Document, error) {
	if doc == nil {
		return nil, services.Wrap(services.ErrValidation, "records", "transition", "document is nil", nil)
	}
	if _, ok := statusSet[to]; !ok {
		return nil, services.Wrap(services.ErrValidation, "records", "transition", fmt.Sprintf("unknown status %q", to), nil)
	}
	if !CanTransition(doc.Status, to) {
		return nil, services.Wrap(services.ErrValidation, "records", "transition",
			fmt.Sprintf("transition %s -> %s is not allowed", doc.Status, to), nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var set strings.Builder
	set.WriteString(`status = ?, status_generation = status_generation + 1, status_changed_at = ?, updated_at = ?, revision = revision + 1`)
	args := []any{to, now, now}

	if update != nil {
		if update.LastError != nil {
			set.WriteString(`, last_error = ?`)
			args = append(args, nullableString(*update.LastError))
		}
		if update.Result != nil {
			holder := &Document{}
			if err := holder.SetResult(*update.Result); err != nil {
				return nil, services.Wrap(services.ErrValidation, "records", "transition", "encode result", err)
			}
			set.WriteString(`, result_json = ?`)
			args = append(args, holder.ResultJSON)
		}
		if update.PageCount != nil {
			set.WriteString(`, page_count = ?`)
			args = append(args, *update.PageCount)
		}
		if update.DispatchToken != nil {
			set.WriteString(`, dispatch_token = ?`)
			args = append(args, nullableString(*update.DispatchToken))
		}
		switch {
		case update.HeartbeatNow:
			set.WriteString(`, last_heartbeat = ?`)
			args = append(args, now)
		case update.ClearHeartbeat:
			set.WriteString(`, last_heartbeat = NULL`)
		}
		switch {
		case update.BumpRetry:
			set.WriteString(`, retry_count = retry_count + 1`)
		case update.ResetRetry:
			set.WriteString(`, retry_count = 0`)
		}
	}

	args = append(args, doc.DocumentID, doc.Status, doc.StatusGeneration)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET `+set.String()+
			` WHERE document_id = ? AND status = ? AND status_generation = ? AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "transition", "conditional update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "transition", "rows affected", err)
	}
	if affected == 0 {
		return nil, s.classifyLostWrite(ctx, doc.DocumentID, doc.Status, doc.StatusGeneration)
	}

	updated, err := s.Get(ctx, doc.DocumentID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, services.Wrap(services.ErrStore, "records", "transition",
			fmt.Sprintf("document %s vanished after update", doc.DocumentID), nil)
	}
	return updated, nil
}

// classifyLostWrite explains a zero-row conditional update: the record is
// gone, recycled, or another writer moved it first.
func (s *Store) classifyLostWrite(ctx context.Context, documentID string, expected Status, expectedGeneration int64) error {
	current, err := s.GetIncludingDeleted(ctx, documentID)
	if err != nil {
		return err
	}
	if current == nil {
		return services.Wrap(services.ErrNotFound, "records", "transition",
			fmt.Sprintf("document %s not found", documentID), nil)
	}
	if current.Deleted() {
		return services.Wrap(services.ErrNotFound, "records", "transition",
			fmt.Sprintf("document %s is recycled", documentID), nil)
	}
	return services.Wrap(services.ErrStateConflict, "records", "transition",
		fmt.Sprintf("expected %s generation %d, found %s generation %d",
			expected, expectedGeneration, current.Status, current.StatusGeneration), nil)
}

// UpdateHeartbeat stamps the liveness timestamp for an in-flight record. It
// deliberately leaves revision alone so a heartbeat never invalidates a
// concurrent editor write.
func (s *Store) UpdateHeartbeat(ctx context.Context, documentID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE documents SET last_heartbeat = ?, updated_at = ? WHERE document_id = ? AND deleted_at IS NULL`,
		now,
		now,
		documentID,
	); err != nil {
		return services.Wrap(services.ErrStore, "records", "heartbeat", "update heartbeat", err)
	}
	return nil
}

// StaleSince returns active records of one tier that sit in a dispatchable or
// in-flight status with no status change since the cutoff. The reconciler
// feeds each match back through dispatch or fails it.
func (s *Store) StaleSince(ctx context.Context, tier Tier, cutoff time.Time) ([]*Document, error) {
	statuses := []Status{
		StatusQueued,
		StatusProcessing,
		StatusProcessingOCR,
		StatusAssessingQuality,
		StatusRefiningText,
		StatusSavingResults,
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+2)
	args = append(args, tier)
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE deleted_at IS NULL AND tier = ? AND status IN (`+placeholders+`)
           AND status_changed_at < ?
         ORDER BY status_changed_at`,
		args...,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "stale", "query stale documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "records", "stale", "scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "stale", "iterate documents", err)
	}
	return docs, nil
}
