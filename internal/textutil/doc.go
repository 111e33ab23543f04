// Package textutil cleans and measures text produced by OCR engines.
//
// Engine output arrives with mixed line endings, stray control characters,
// and U+FFFD markers where recognition gave up. Sanitize normalizes a page
// of that output into storable text, and Analyze summarizes its character
// makeup so callers can score extraction quality without re-walking the
// string themselves.
package textutil
