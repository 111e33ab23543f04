package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Count"},
		[][]string{{"doc-1", "3"}, {"doc-2"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "doc-1") || !strings.Contains(out, "doc-2") {
		t.Fatalf("rows missing from table:\n%s", out)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, "Count") {
		t.Fatalf("header missing from table:\n%s", out)
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine(false, statusOK, "Worker", "running")
	if !strings.Contains(line, "[OK] running") {
		t.Errorf("unexpected line %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Errorf("colorless render should not carry ANSI codes: %q", line)
	}

	colored := renderStatusLine(true, statusError, "Worker", "down")
	if !strings.Contains(colored, ansiRed) || !strings.Contains(colored, ansiReset) {
		t.Errorf("colored render missing ANSI codes: %q", colored)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	header := renderSectionHeader("Daemon")
	lines := strings.Split(header, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", header)
	}
	if lines[0] != "== Daemon ==" {
		t.Errorf("unexpected title line %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Errorf("underline length %d does not match title length %d", len(lines[1]), len(lines[0]))
	}
}
