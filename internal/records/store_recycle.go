package records

import (
	"context"
	"fmt"
	"time"

	"inkwell/internal/services"
)

// SoftDelete moves an active record into the recycle view, stamping the
// deletion time and a purge deadline. Already-recycled and missing records
// both fail with NotFound.
func (s *Store) SoftDelete(ctx context.Context, documentID string, retention time.Duration) (*Document, error) {
	now := time.Now().UTC()
	deletedAt := now.Format(time.RFC3339Nano)
	expiresAt := now.Add(retention).Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET deleted_at = ?, expires_at = ?, updated_at = ?, revision = revision + 1
         WHERE document_id = ? AND deleted_at IS NULL`,
		deletedAt,
		expiresAt,
		deletedAt,
		documentID,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "delete", "mark recycled", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "delete", "rows affected", err)
	}
	if affected == 0 {
		current, err := s.GetIncludingDeleted(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, services.Wrap(services.ErrNotFound, "records", "delete",
				fmt.Sprintf("document %s not found", documentID), nil)
		}
		return nil, services.Wrap(services.ErrNotFound, "records", "delete",
			fmt.Sprintf("document %s is already recycled", documentID), nil)
	}

	return s.GetIncludingDeleted(ctx, documentID)
}

// Restore moves a recycled record back to the active view when its expiry has
// not elapsed. Active or purged records fail with NotFound; past-expiry
// records fail with Expired and stay recycled until the purge sweep removes
// them.
func (s *Store) Restore(ctx context.Context, documentID string) (*Document, error) {
	now := time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET deleted_at = NULL, expires_at = NULL, updated_at = ?, revision = revision + 1
         WHERE document_id = ? AND deleted_at IS NOT NULL AND expires_at > ?`,
		now.Format(time.RFC3339Nano),
		documentID,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "restore", "clear recycle mark", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "restore", "rows affected", err)
	}
	if affected == 0 {
		current, err := s.GetIncludingDeleted(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if current == nil || !current.Deleted() {
			return nil, services.Wrap(services.ErrNotFound, "records", "restore",
				fmt.Sprintf("document %s is not recycled", documentID), nil)
		}
		return nil, services.Wrap(services.ErrExpired, "records", "restore",
			fmt.Sprintf("document %s expired at %s", documentID, current.ExpiresAt.Format(time.RFC3339)), nil)
	}

	return s.Get(ctx, documentID)
}

// ListRecycled returns recycled records, most recently deleted first.
func (s *Store) ListRecycled(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC, document_id`,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "recycle", "query recycled documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "records", "recycle", "scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "records", "recycle", "iterate documents", err)
	}
	return docs, nil
}

// PurgeExpired permanently removes recycled records whose expiry has passed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM documents WHERE deleted_at IS NOT NULL AND expires_at <= ?`,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "records", "purge", "delete expired documents", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "records", "purge", "rows affected", err)
	}
	return count, nil
}
