// Package language canonicalizes the language hints that arrive with
// document submissions. Clients send two and three letter ISO codes,
// region-qualified tags, and spelled-out names; OCR engines want clean
// BCP 47 tags. Normalize and NormalizeAll bridge the two, and DisplayName
// renders stored tags for human-facing output.
package language
