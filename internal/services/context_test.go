package services_test

import (
	"context"
	"testing"

	"inkwell/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.DocumentIDFromContext(ctx); ok {
		t.Fatal("empty context should carry no document id")
	}

	ctx = services.WithDocumentID(ctx, "doc-123")
	ctx = services.WithStage(ctx, "processing_ocr")
	ctx = services.WithLane(ctx, "heavy")
	ctx = services.WithRequestID(ctx, "req-9")

	if id, ok := services.DocumentIDFromContext(ctx); !ok || id != "doc-123" {
		t.Fatalf("document id round trip failed: %q %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "processing_ocr" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "heavy" {
		t.Fatalf("lane round trip failed: %q %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-9" {
		t.Fatalf("request id round trip failed: %q %v", rid, ok)
	}
}

func TestContextIgnoresEmptyValues(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
	ctx = services.WithDocumentID(context.Background(), "")
	if _, ok := services.DocumentIDFromContext(ctx); ok {
		t.Fatal("empty document id should not be stored")
	}
}
