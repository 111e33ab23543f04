package extraction

import (
	"strings"
	"testing"
)

func TestRenderHTMLHeadingsAndParagraphs(t *testing.T) {
	html, err := RenderHTML("# Invoice\n\nTotal due: 100.00")
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	if !strings.Contains(html, "<h1>Invoice</h1>") {
		t.Fatalf("expected h1 in output, got %q", html)
	}
	if !strings.Contains(html, "<p>Total due: 100.00</p>") {
		t.Fatalf("expected paragraph in output, got %q", html)
	}
}

func TestRenderHTMLTables(t *testing.T) {
	html, err := RenderHTML("| Item | Qty |\n| --- | --- |\n| Paper | 2 |")
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Fatalf("expected table markup, got %q", html)
	}
}

func TestRenderHTMLEmpty(t *testing.T) {
	html, err := RenderHTML("   \n ")
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}
	if html != "" {
		t.Fatalf("expected empty output, got %q", html)
	}
}

func TestAssessScoresCleanTextHigh(t *testing.T) {
	clean := Assess("A short but perfectly legible page of text")
	if clean.Score <= 0.7 {
		t.Fatalf("clean text scored %v, want > 0.7", clean.Score)
	}
	if clean.WordCount != 8 {
		t.Fatalf("WordCount = %d, want 8", clean.WordCount)
	}
}

func TestAssessPenalizesReplacementMarkers(t *testing.T) {
	clean := Assess("legible text")
	mangled := Assess("leg�ble te�t")
	if mangled.Score >= clean.Score {
		t.Fatalf("mangled %v should score below clean %v", mangled.Score, clean.Score)
	}
}

func TestAssessEmpty(t *testing.T) {
	empty := Assess("")
	if empty.Score != 0 || empty.WordCount != 0 {
		t.Fatalf("Assess(\"\") = %+v, want zero", empty)
	}
}
