package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/storage"
)

// Request describes an uploaded document awaiting routing. DocumentID and
// PageCount are optional; an empty id is generated and a zero page count is
// inspected from the object when possible.
type Request struct {
	DocumentID  string
	Bucket      string
	Key         string
	ContentType string
	SizeBytes   int64
	PageCount   int
	Metadata    records.Metadata
}

// Decision reports the routed record. Created is false when an earlier
// submission already produced the record.
type Decision struct {
	Document *records.Document
	Created  bool
}

// Router validates intake requests, classifies the tier, and creates records.
type Router struct {
	cfg     config.Intake
	store   *records.Store
	objects storage.ObjectStore
	logger  *slog.Logger
}

// NewRouter builds the intake router. The object store is optional; without
// it PDF page inspection is skipped and routing decides on size alone.
func NewRouter(cfg *config.Config, store *records.Store, objects storage.ObjectStore, logger *slog.Logger) *Router {
	return &Router{
		cfg:     cfg.Intake,
		store:   store,
		objects: objects,
		logger:  logging.NewComponentLogger(logger, "intake"),
	}
}

// Route validates the request, determines the tier, and creates the record
// with status uploaded. Re-submitting a known document id returns the
// existing record unchanged.
func (r *Router) Route(ctx context.Context, req Request) (*Decision, error) {
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.Bucket = strings.TrimSpace(req.Bucket)
	req.Key = strings.TrimSpace(req.Key)
	req.ContentType = normalizeContentType(req.ContentType)

	if err := r.validate(req); err != nil {
		return nil, err
	}

	if req.DocumentID != "" {
		existing, err := r.store.Get(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &Decision{Document: existing}, nil
		}
	}

	pageCount := req.PageCount
	if pageCount <= 0 {
		pageCount = 0
		if req.ContentType == "application/pdf" {
			pageCount = r.inspectPageCount(ctx, req.Bucket, req.Key)
		}
	}

	tier := Classify(r.cfg, req.SizeBytes, pageCount)

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.NewString()
	}

	doc, created, err := r.store.Create(ctx, records.NewDocument{
		DocumentID:   documentID,
		Tier:         tier,
		SourceBucket: req.Bucket,
		SourceKey:    req.Key,
		ContentType:  req.ContentType,
		SizeBytes:    req.SizeBytes,
		PageCount:    pageCount,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if created {
		r.logger.Info("document routed", logging.Args(
			logging.String(logging.FieldDocumentID, doc.DocumentID),
			logging.String(logging.FieldTier, string(doc.Tier)),
			logging.Int64("size_bytes", req.SizeBytes),
			logging.Int("page_count", pageCount),
		)...)
	} else {
		r.logger.Info("document already routed", logging.Args(
			logging.String(logging.FieldDocumentID, doc.DocumentID),
			logging.String("source_key", req.Key),
		)...)
	}
	return &Decision{Document: doc, Created: created}, nil
}

func (r *Router) validate(req Request) error {
	if req.Bucket == "" || req.Key == "" {
		return services.Wrap(services.ErrValidation, "intake", "route", "source bucket and key are required", nil)
	}
	if req.SizeBytes <= 0 {
		return services.Wrap(services.ErrValidation, "intake", "route", "size must be greater than zero", nil)
	}
	if req.SizeBytes > r.cfg.MaxSizeBytes {
		return services.Wrap(services.ErrValidation, "intake", "route",
			fmt.Sprintf("size %d exceeds the %d byte limit", req.SizeBytes, r.cfg.MaxSizeBytes), nil)
	}
	if !typeAllowed(r.cfg.AllowedTypes, req.ContentType) {
		return services.Wrap(services.ErrValidation, "intake", "route",
			fmt.Sprintf("unsupported content type %q", req.ContentType), nil)
	}
	return nil
}

// Classify picks the processing tier for a document. The force_tier override
// wins outright; otherwise crossing either heavy threshold promotes the
// document to the heavy pipeline.
func Classify(cfg config.Intake, sizeBytes int64, pageCount int) records.Tier {
	if tier, ok := records.ParseTier(cfg.ForceTier); ok {
		return tier
	}
	if sizeBytes > cfg.HeavySizeBytes {
		return records.TierHeavy
	}
	if pageCount > cfg.HeavyPageCount {
		return records.TierHeavy
	}
	return records.TierFast
}

func normalizeContentType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}

func typeAllowed(allowed []string, contentType string) bool {
	for _, candidate := range allowed {
		if candidate == contentType {
			return true
		}
	}
	return false
}
