package extraction

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderHTML converts refined text into the HTML stored as formatted text.
// Refined output is treated as Markdown; plain prose passes through as
// paragraphs.
func RenderHTML(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render formatted text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
