// Package workqueue persists dispatch work items in a SQLite database kept
// separate from the records store. Delivery is at-least-once: consumers lease
// items, leases expire if a consumer dies, and duplicate deliveries are
// expected; the dispatch token carried by every item lets consumers discard
// stale duplicates. Items that exhaust their attempt budget move to the
// dead-letter view where they stay inspectable until an operator replays or
// removes them.
package workqueue
