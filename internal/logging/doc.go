// Package logging centralizes construction of slog loggers for the daemon
// and the CLI.
//
// It renders either a human-oriented console format or machine-oriented JSON,
// fans output across stdout/stderr/file targets, and exposes Attr helpers plus
// standardized field-name constants so call sites never hand-roll slog keys.
// WithContext stamps document/stage/lane/correlation identifiers carried in a
// context onto a logger in one call.
package logging
