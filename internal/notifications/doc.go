// Package notifications delivers lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Per-event
// toggles let operators silence processed/failed/dead-letter pushes
// independently. Lifecycle code depends only on the Service interface, so
// tests substitute recorders and alternative transports slot in without
// touching callers.
package notifications
