package textutil

import "testing"

func TestSanitizeNormalizesEngineOutput(t *testing.T) {
	raw := "Invoice 42\r\n\r\n\r\nTotal:\t100.00 \x00\x07\r\nDue soon.  \n"
	got := Sanitize(raw)
	want := "Invoice 42\n\nTotal:\t100.00\nDue soon."
	if got != want {
		t.Fatalf("Sanitize() = %q, want %q", got, want)
	}
}

func TestSanitizeEmpty(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Fatalf("Sanitize(\"\") = %q, want empty", got)
	}
	if got := Sanitize("\n\n\n"); got != "" {
		t.Fatalf("Sanitize(blank lines) = %q, want empty", got)
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  Quarterly   report\t2026 "); got != "Quarterly report 2026" {
		t.Fatalf("CollapseSpaces() = %q", got)
	}
}

func TestAnalyze(t *testing.T) {
	s := Analyze("page 1\nll�ve 22")
	if s.Words != 5 {
		t.Fatalf("Words = %d, want 5", s.Words)
	}
	if s.Lines != 2 {
		t.Fatalf("Lines = %d, want 2", s.Lines)
	}
	if s.Replacements != 1 {
		t.Fatalf("Replacements = %d, want 1", s.Replacements)
	}
	if s.Letters != 8 {
		t.Fatalf("Letters = %d, want 8", s.Letters)
	}
	if s.Digits != 3 {
		t.Fatalf("Digits = %d, want 3", s.Digits)
	}
}

func TestAnalyzeCountsInvalidUTF8(t *testing.T) {
	s := Analyze("ok\xff\xfe")
	if s.Replacements != 2 {
		t.Fatalf("Replacements = %d, want 2", s.Replacements)
	}
}

func TestWordCountEmpty(t *testing.T) {
	if got := WordCount(""); got != 0 {
		t.Fatalf("WordCount(\"\") = %d", got)
	}
}
