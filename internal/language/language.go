package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Spelled-out names the BCP 47 parser does not accept on its own.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Normalize canonicalizes one language hint to a BCP 47 tag string. It
// accepts ISO 639 codes in either length, region-qualified tags such as
// "pt-br", and common English names. The boolean reports whether the hint
// was recognized.
func Normalize(hint string) (string, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", false
	}
	if code, ok := aliases[strings.ToLower(hint)]; ok {
		hint = code
	}
	tag, err := xlang.Parse(hint)
	if err != nil {
		return "", false
	}
	return tag.String(), true
}

// NormalizeAll canonicalizes a list of hints, dropping duplicates and
// anything unrecognized. Order follows the first appearance of each tag.
func NormalizeAll(hints []string) []string {
	if len(hints) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(hints))
	seen := make(map[string]struct{}, len(hints))
	for _, hint := range hints {
		tag, ok := Normalize(hint)
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// DisplayName renders a stored tag as an English language name, so "pt-BR"
// comes back as "Brazilian Portuguese". Unrecognized input is echoed back
// uppercased and empty input reads as "Unknown".
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}

// FromMetadata pulls a language hint out of submission metadata. Clients
// are inconsistent about the key they use, so a few spellings are checked.
func FromMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	for _, key := range []string{"language", "Language", "lang", "ocr_language"} {
		value, ok := metadata[key]
		if !ok {
			continue
		}
		if tag, ok := Normalize(value); ok {
			return tag
		}
	}
	return ""
}
