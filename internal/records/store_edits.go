package records

import (
	"context"
	"fmt"
	"time"

	"inkwell/internal/services"
)

// EditApplication is the fully-computed outcome of one editor call. The
// editor resolves field values, the original-result snapshot, and the capped
// history against the document revision it read; this write lands all of it
// atomically or not at all.
type EditApplication struct {
	ResultJSON         string
	MetadataJSON       string
	OriginalResultJSON string
	EditHistoryJSON    string
	EditedAt           time.Time
}

// ApplyEdit persists an edit under a revision guard. Any concurrent write to
// the record since the caller's read (another edit, a transition) bumps the
// revision and this update misses, returning StateConflict so the editor can
// re-read and recompute.
func (s *Store) ApplyEdit(ctx context.Context, doc *Document, edit EditApplication) (*Document, error) {
	if doc == nil {
		return nil, services.Wrap(services.ErrValidation, "records", "edit", "document is nil", nil)
	}

	editedAt := edit.EditedAt.UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET result_json = ?, metadata_json = ?, original_result_json = ?,
             edit_history_json = ?, user_edited = 1, last_edited_at = ?,
             updated_at = ?, revision = revision + 1
         WHERE document_id = ? AND revision = ? AND deleted_at IS NULL`,
		nullableString(edit.ResultJSON),
		nullableString(edit.MetadataJSON),
		nullableString(edit.OriginalResultJSON),
		nullableString(edit.EditHistoryJSON),
		editedAt,
		editedAt,
		doc.DocumentID,
		doc.Revision,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "edit", "conditional update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "edit", "rows affected", err)
	}
	if affected == 0 {
		current, err := s.GetIncludingDeleted(ctx, doc.DocumentID)
		if err != nil {
			return nil, err
		}
		if current == nil || current.Deleted() {
			return nil, services.Wrap(services.ErrNotFound, "records", "edit",
				fmt.Sprintf("document %s not found", doc.DocumentID), nil)
		}
		return nil, services.Wrap(services.ErrStateConflict, "records", "edit",
			fmt.Sprintf("expected revision %d, found %d", doc.Revision, current.Revision), nil)
	}

	updated, err := s.Get(ctx, doc.DocumentID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, services.Wrap(services.ErrStore, "records", "edit",
			fmt.Sprintf("document %s vanished after edit", doc.DocumentID), nil)
	}
	return updated, nil
}
