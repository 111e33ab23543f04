// Package api defines the wire representation of inkwell records and the
// read services that produce it. The daemon HTTP server, the CLI, and the
// recordaccess fallback all speak these types, so field names here are the
// stable contract: camelCase JSON, timestamps in RFC3339 with millisecond
// precision.
package api
