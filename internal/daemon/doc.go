// Package daemon hosts the long-running inkwell process: it enforces
// single-instance execution via a lock file, runs the worker lanes and the
// reconciler, and serves the HTTP API the CLI and external event sources
// talk to.
package daemon
