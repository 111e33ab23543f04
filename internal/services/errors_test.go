package services_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"inkwell/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := services.Wrap(services.ErrStore, "records", "create document", "insert failed", cause)

	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected wrapped error to match ErrStore, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match cause, got %v", err)
	}
	if got := err.Error(); got != "store error: records: create document: insert failed: disk full" {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "intake", "route", "unsupported content type", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got := err.Error(); got != "validation error: intake: route: unsupported content type" {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestDetailsExtraction(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrTransport, "dispatch", "enqueue", "queue unavailable", cause)

	details := services.Details(err)
	if details.Kind != services.KindTransport {
		t.Fatalf("expected transport kind, got %s", details.Kind)
	}
	if details.Component != "dispatch" || details.Operation != "enqueue" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.Cause == nil || !errors.Is(details.Cause, cause) {
		t.Fatalf("expected cause preserved, got %v", details.Cause)
	}
}

func TestDetailsPlainError(t *testing.T) {
	details := services.Details(errors.New("boom"))
	if details.Kind != services.KindUnknown {
		t.Fatalf("expected unknown kind, got %s", details.Kind)
	}
	if details.Message != "boom" {
		t.Fatalf("expected message fallback, got %q", details.Message)
	}
}

func TestKindForNestedWrap(t *testing.T) {
	inner := services.Wrap(services.ErrStateConflict, "records", "transition", "status moved", nil)
	outer := fmt.Errorf("dispatch document: %w", inner)
	if got := services.KindFor(outer); got != services.KindStateConflict {
		t.Fatalf("expected state_conflict through wrapping, got %s", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", services.ErrValidation, http.StatusBadRequest},
		{"not ready", services.ErrNotReady, http.StatusBadRequest},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"conflict", services.ErrStateConflict, http.StatusConflict},
		{"expired", services.ErrExpired, http.StatusGone},
		{"routing", services.ErrRoutingMismatch, http.StatusUnprocessableEntity},
		{"transport", services.ErrTransport, http.StatusBadGateway},
		{"store", services.ErrStore, http.StatusInternalServerError},
		{"plain", errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.HTTPStatus(tc.err); got != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, got)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.ErrValidation) {
		t.Fatal("validation errors must not be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrStore, "records", "update", "", nil)) {
		t.Fatal("store errors should be retryable")
	}
	if !services.Retryable(services.ErrTransport) {
		t.Fatal("transport errors should be retryable")
	}
}
