package textutil

import (
	"strings"
	"unicode"
)

// Sanitize normalizes raw engine output for storage. Line endings become
// "\n", control characters other than newline and tab are dropped, trailing
// whitespace is trimmed per line, and runs of blank lines collapse to one.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var clean strings.Builder
	clean.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			clean.WriteRune(r)
		}
	}

	lines := strings.Split(clean.String(), "\n")
	kept := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// CollapseSpaces rewrites interior whitespace runs as single spaces. Useful
// for one-line fields such as titles pulled out of extracted text.
func CollapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
