package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
)

// Canonical field names as they appear in edit history entries and API
// payloads. Metadata fields carry the "metadata." prefix so a history entry
// is unambiguous about which half of the record it touched.
const (
	FieldRefinedText   = "refined_text"
	FieldFormattedText = "formatted_text"
	FieldTitle         = "metadata.title"
	FieldAuthor        = "metadata.author"
	FieldPublication   = "metadata.publication"
	FieldYear          = "metadata.year"
	FieldDescription   = "metadata.description"
	FieldTags          = "metadata.tags"
)

// conflictRetries bounds how many times one Edit call re-reads and
// recomputes after losing a revision race.
const conflictRetries = 3

// Fields carries the values one edit call wants to change. Nil pointers
// leave the field untouched; at least one must be set.
type Fields struct {
	RefinedText   *string
	FormattedText *string
	Title         *string
	Author        *string
	Publication   *string
	Year          *int
	Description   *string
	Tags          *[]string
}

// IsZero reports whether the edit touches nothing.
func (f Fields) IsZero() bool {
	return f.RefinedText == nil && f.FormattedText == nil && f.Title == nil &&
		f.Author == nil && f.Publication == nil && f.Year == nil &&
		f.Description == nil && f.Tags == nil
}

// Editor coordinates user edits against the records store.
type Editor struct {
	store  *records.Store
	logger *slog.Logger
	now    func() time.Time
}

// New builds an editor over the records store.
func New(store *records.Store, logger *slog.Logger) *Editor {
	return &Editor{
		store:  store,
		logger: logging.NewComponentLogger(logger, "editor"),
		now:    time.Now,
	}
}

// Edit applies the requested field changes to a processed document. The edit
// is computed against one read of the record and persisted under a revision
// guard; when a concurrent writer wins that race the call re-reads and
// recomputes against the fresh record, a bounded number of times. The first
// edit to a record also snapshots the machine-produced text so the original
// stays recoverable however many edits follow.
func (e *Editor) Edit(ctx context.Context, documentID string, fields Fields) (*records.Document, error) {
	if fields.IsZero() {
		return nil, services.Wrap(services.ErrValidation, "editor", "edit",
			"edit names no fields", nil)
	}

	var updated *records.Document
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(20*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		doc, err := e.store.Get(ctx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return services.Wrap(services.ErrNotFound, "editor", "edit",
				fmt.Sprintf("document %s not found", documentID), nil)
		}
		if !doc.Status.TerminalSuccess() {
			return services.Wrap(services.ErrNotReady, "editor", "edit",
				fmt.Sprintf("document %s is %s; edits require a processed record", documentID, doc.Status), nil)
		}

		application, editedFields, err := buildApplication(doc, fields, e.now().UTC())
		if err != nil {
			return err
		}

		applied, err := e.store.ApplyEdit(ctx, doc, application)
		if err != nil {
			if errors.Is(err, services.ErrStateConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		updated = applied

		e.logger.Info("edit applied", logging.Args(
			logging.String(logging.FieldDocumentID, documentID),
			logging.Any("edited_fields", editedFields),
			logging.Int64("revision", applied.Revision),
		)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// buildApplication resolves one edit against one read of the document: the
// final field values, the first-edit snapshot, and the capped history. The
// caller persists the pieces atomically under the document's revision.
func buildApplication(doc *records.Document, fields Fields, editedAt time.Time) (records.EditApplication, []string, error) {
	result, _ := doc.Result()
	meta := doc.Metadata()

	entry := records.EditHistoryEntry{
		EditedAt: editedAt,
		Previous: map[string]any{},
	}
	touch := func(name string, previous any) {
		entry.EditedFields = append(entry.EditedFields, name)
		entry.Previous[name] = previous
	}

	if fields.RefinedText != nil {
		touch(FieldRefinedText, result.RefinedText)
		result.RefinedText = *fields.RefinedText
	}
	if fields.FormattedText != nil {
		touch(FieldFormattedText, result.FormattedText)
		result.FormattedText = *fields.FormattedText
	}
	if fields.Title != nil {
		touch(FieldTitle, meta.Title)
		meta.Title = *fields.Title
	}
	if fields.Author != nil {
		touch(FieldAuthor, meta.Author)
		meta.Author = *fields.Author
	}
	if fields.Publication != nil {
		touch(FieldPublication, meta.Publication)
		meta.Publication = *fields.Publication
	}
	if fields.Year != nil {
		touch(FieldYear, meta.Year)
		meta.Year = *fields.Year
	}
	if fields.Description != nil {
		touch(FieldDescription, meta.Description)
		meta.Description = *fields.Description
	}
	if fields.Tags != nil {
		touch(FieldTags, append([]string(nil), meta.Tags...))
		meta.Tags = append([]string(nil), (*fields.Tags)...)
	}

	snapshot := doc.OriginalResultJSON
	if snapshot == "" {
		original, _ := doc.Result()
		data, err := json.Marshal(records.OriginalResult{
			RefinedText:   original.RefinedText,
			FormattedText: original.FormattedText,
		})
		if err != nil {
			return records.EditApplication{}, nil,
				services.Wrap(services.ErrValidation, "editor", "edit", "marshal original snapshot", err)
		}
		snapshot = string(data)
	}

	history := append([]records.EditHistoryEntry{entry}, doc.EditHistory()...)
	if len(history) > records.EditHistoryLimit {
		history = history[:records.EditHistoryLimit]
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return records.EditApplication{}, nil,
			services.Wrap(services.ErrValidation, "editor", "edit", "marshal result", err)
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return records.EditApplication{}, nil,
			services.Wrap(services.ErrValidation, "editor", "edit", "marshal edit history", err)
	}
	metadataJSON := ""
	if !meta.IsZero() {
		data, err := json.Marshal(meta)
		if err != nil {
			return records.EditApplication{}, nil,
				services.Wrap(services.ErrValidation, "editor", "edit", "marshal metadata", err)
		}
		metadataJSON = string(data)
	}

	return records.EditApplication{
		ResultJSON:         string(resultJSON),
		MetadataJSON:       metadataJSON,
		OriginalResultJSON: snapshot,
		EditHistoryJSON:    string(historyJSON),
		EditedAt:           editedAt,
	}, entry.EditedFields, nil
}
