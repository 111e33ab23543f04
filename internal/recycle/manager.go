package recycle

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/records"
)

// Manager applies the recycle policy on top of the records store.
type Manager struct {
	cfg    config.Recycle
	store  *records.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewManager builds a recycle manager using the configured retention window.
func NewManager(cfg *config.Config, store *records.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg.Recycle,
		store:  store,
		logger: logging.NewComponentLogger(logger, "recycle"),
		now:    time.Now,
	}
}

// Retention returns the configured window a recycled record stays restorable.
func (m *Manager) Retention() time.Duration {
	return time.Duration(m.cfg.RetentionDays) * 24 * time.Hour
}

// Delete moves a record into the recycle view and stamps its purge deadline.
func (m *Manager) Delete(ctx context.Context, documentID string) (*records.Document, error) {
	doc, err := m.store.SoftDelete(ctx, documentID, m.Retention())
	if err != nil {
		return nil, err
	}
	m.logger.Info("document recycled", logging.Args(
		logging.String(logging.FieldDocumentID, documentID),
		logging.String("expires_at", doc.ExpiresAt.Format(time.RFC3339)),
	)...)
	return doc, nil
}

// Restore returns a recycled record to the active view. Past-expiry records
// fail with Expired and wait for the purge sweep.
func (m *Manager) Restore(ctx context.Context, documentID string) (*records.Document, error) {
	doc, err := m.store.Restore(ctx, documentID)
	if err != nil {
		return nil, err
	}
	m.logger.Info("document restored", logging.Args(
		logging.String(logging.FieldDocumentID, documentID),
		logging.String(logging.FieldStatus, string(doc.Status)),
	)...)
	return doc, nil
}

// List returns the recycle view, most recently deleted first.
func (m *Manager) List(ctx context.Context) ([]*records.Document, error) {
	return m.store.ListRecycled(ctx)
}

// PurgeExpired removes recycled records whose retention has lapsed and
// reports how many were dropped.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := m.store.PurgeExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		m.logger.Info("recycle purge complete", logging.Args(
			logging.Int64("purged", purged),
		)...)
	}
	return purged, nil
}
