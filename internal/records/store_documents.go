package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/services"
)

// NewDocument carries the fields the intake router supplies when creating a
// record.
type NewDocument struct {
	DocumentID   string
	Tier         Tier
	SourceBucket string
	SourceKey    string
	ContentType  string
	SizeBytes    int64
	PageCount    int
	Metadata     Metadata
}

// Create inserts a new document record with status uploaded and reports
// whether a new row was written. Creation is idempotent: retrying with the
// same document_id, or with a new id for a source object that already has an
// active record, returns the existing record unchanged with created false.
// A conflict against a recycled record is a StateConflict; the caller must
// restore or purge it first.
func (s *Store) Create(ctx context.Context, input NewDocument) (*Document, bool, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, false, services.Wrap(services.ErrValidation, "records", "create", "document id is required", nil)
	}
	if input.Tier != TierFast && input.Tier != TierHeavy {
		return nil, false, services.Wrap(services.ErrValidation, "records", "create", fmt.Sprintf("unknown tier %q", input.Tier), nil)
	}
	if strings.TrimSpace(input.SourceBucket) == "" || strings.TrimSpace(input.SourceKey) == "" {
		return nil, false, services.Wrap(services.ErrValidation, "records", "create", "source bucket and key are required", nil)
	}

	metadataJSON := ""
	if !input.Metadata.IsZero() {
		doc := &Document{}
		if err := doc.SetMetadata(input.Metadata); err != nil {
			return nil, false, services.Wrap(services.ErrValidation, "records", "create", "encode metadata", err)
		}
		metadataJSON = doc.MetadataJSON
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO documents (
            document_id, created_at, updated_at, tier, status,
            status_generation, status_changed_at, revision,
            source_bucket, source_key, content_type, size_bytes, page_count,
            metadata_json
        ) VALUES (?, ?, ?, ?, ?, 0, ?, 0, ?, ?, ?, ?, ?, ?)
        ON CONFLICT DO NOTHING`,
		input.DocumentID,
		timestamp,
		timestamp,
		input.Tier,
		StatusUploaded,
		timestamp,
		input.SourceBucket,
		input.SourceKey,
		nullableString(input.ContentType),
		input.SizeBytes,
		input.PageCount,
		nullableString(metadataJSON),
	)
	if err != nil {
		return nil, false, services.Wrap(services.ErrStore, "records", "create", "insert document", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, services.Wrap(services.ErrStore, "records", "create", "rows affected", err)
	}
	if affected > 0 {
		doc, err := s.Get(ctx, input.DocumentID)
		return doc, true, err
	}

	// Conflict: either a retry with the same id or a second id for the same
	// source object. Both resolve to the existing record.
	existing, err := s.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	existing, err = s.LookupBySource(ctx, input.SourceBucket, input.SourceKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	// No active record matched, so the conflicting row sits in the recycle
	// bin. That is a caller-resolvable state, not a store fault.
	recycled, err := s.GetIncludingDeleted(ctx, input.DocumentID)
	if err != nil {
		return nil, false, err
	}
	if recycled == nil {
		recycled, err = s.lookupBySourceIncludingDeleted(ctx, input.SourceBucket, input.SourceKey)
		if err != nil {
			return nil, false, err
		}
	}
	if recycled != nil && recycled.Deleted() {
		return nil, false, services.Wrap(services.ErrStateConflict, "records", "create",
			fmt.Sprintf("document %s for %s/%s is in the recycle bin; restore or purge it before resubmitting",
				recycled.DocumentID, input.SourceBucket, input.SourceKey), nil)
	}
	return nil, false, services.Wrap(services.ErrStore, "records", "create",
		fmt.Sprintf("insert conflicted but no record found for %s", input.DocumentID), nil)
}

// Get fetches an active document by identifier. Missing and recycled records
// both return nil.
func (s *Store) Get(ctx context.Context, documentID string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE document_id = ? AND deleted_at IS NULL`,
		documentID,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "get", "scan document", err)
	}
	return doc, nil
}

// GetIncludingDeleted fetches a document regardless of recycle state.
func (s *Store) GetIncludingDeleted(ctx context.Context, documentID string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE document_id = ?`,
		documentID,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "get", "scan document", err)
	}
	return doc, nil
}

// lookupBySourceIncludingDeleted finds the document created for a source
// object regardless of recycle state.
func (s *Store) lookupBySourceIncludingDeleted(ctx context.Context, bucket, key string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE source_bucket = ? AND source_key = ?`,
		bucket,
		key,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "lookup", "scan document", err)
	}
	return doc, nil
}

// LookupBySource finds the active document created for a source object.
func (s *Store) LookupBySource(ctx context.Context, bucket, key string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE source_bucket = ? AND source_key = ? AND deleted_at IS NULL`,
		bucket,
		key,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "lookup", "scan document", err)
	}
	return doc, nil
}

// ListFilter narrows List output. Zero values mean "any".
type ListFilter struct {
	Statuses []Status
	Tier     Tier
	Limit    int
}

// List returns active documents newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE deleted_at IS NULL`
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := makePlaceholders(len(filter.Statuses))
		query += ` AND status IN (` + placeholders + `)`
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, filter.Tier)
	}
	query += ` ORDER BY created_at DESC, document_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "list", "query documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "records", "list", "scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "list", "iterate documents", err)
	}
	return docs, nil
}
