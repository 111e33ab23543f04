package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrRoutingMismatch = errors.New("routing mismatch")
	ErrStateConflict   = errors.New("state conflict")
	ErrNotReady        = errors.New("not ready")
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrStore           = errors.New("store error")
	ErrTransport       = errors.New("transport error")
	ErrStuck           = errors.New("stuck job")
	ErrConfiguration   = errors.New("configuration error")
)

// Kind names an error class for structured logging and metrics.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindRoutingMismatch Kind = "routing_mismatch"
	KindStateConflict   Kind = "state_conflict"
	KindNotReady        Kind = "not_ready"
	KindNotFound        Kind = "not_found"
	KindExpired         Kind = "expired"
	KindStore           Kind = "store"
	KindTransport       Kind = "transport"
	KindStuck           Kind = "stuck"
	KindConfiguration   Kind = "configuration"
	KindUnknown         Kind = "unknown"
)

type classified struct {
	marker    error
	component string
	operation string
	message   string
	cause     error
}

func (e *classified) Error() string {
	detail := buildDetail(e.component, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker.Error(), detail, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *classified) Unwrap() []error {
	if e.cause != nil {
		return []error{e.marker, e.cause}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrStore
	}
	return &classified{
		marker:    marker,
		component: strings.TrimSpace(component),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// ErrorDetails summarizes a classified error for structured logging.
type ErrorDetails struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured metadata from an error produced by Wrap. Plain
// errors yield a best-effort summary with the kind derived from the marker
// chain.
func Details(err error) ErrorDetails {
	details := ErrorDetails{Kind: KindFor(err)}
	if err == nil {
		return details
	}
	var c *classified
	if errors.As(err, &c) {
		details.Component = c.component
		details.Operation = c.operation
		details.Message = c.message
		details.Cause = c.cause
		if details.Message == "" && c.cause != nil {
			details.Message = c.cause.Error()
		}
		return details
	}
	details.Message = err.Error()
	return details
}

// KindFor resolves the taxonomy kind of any error via its marker chain.
func KindFor(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRoutingMismatch):
		return KindRoutingMismatch
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, ErrStore):
		return KindStore
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrStuck):
		return KindStuck
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// HTTPStatus maps the taxonomy onto transport status codes. Validation and
// not-ready both surface as 400 per the external edit contract.
func HTTPStatus(err error) int {
	switch KindFor(err) {
	case KindValidation, KindNotReady:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindRoutingMismatch:
		return http.StatusUnprocessableEntity
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the failure class is worth retrying with backoff.
// Business-rule violations are never retryable; infrastructure failures are.
func Retryable(err error) bool {
	switch KindFor(err) {
	case KindStore, KindTransport, KindStuck:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component != "" {
		parts = append(parts, component)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
