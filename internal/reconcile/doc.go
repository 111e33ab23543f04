// Package reconcile is the backstop for everything the happy path drops:
// records stuck past their tier SLA, work lost to crashed consumers, drift
// between external executors and the store, and recycled records past
// retention. Every repair goes through the same conditional writes the rest
// of the system uses, so a sweep can never clobber live work.
package reconcile
