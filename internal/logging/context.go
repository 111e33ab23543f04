package logging

import (
	"context"
	"log/slog"

	"inkwell/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDocumentID is the standardized structured logging key for document identifiers.
	FieldDocumentID = "document_id"
	// FieldItemID is the standardized structured logging key for work item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for worker lane names.
	FieldLane = "lane"
	// FieldTier is the standardized structured logging key for processing tiers.
	FieldTier = "tier"
	// FieldStatus is the standardized structured logging key for document statuses.
	FieldStatus = "status"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log lines with a machine-greppable event name.
	FieldEventType = "event_type"
	// FieldErrorKind carries the error taxonomy class on failure logs.
	FieldErrorKind = "error_kind"
	// FieldErrorOperation names the operation that produced a failure.
	FieldErrorOperation = "error_operation"
	// FieldErrorHint suggests the next diagnostic step on warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.DocumentIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDocumentID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
