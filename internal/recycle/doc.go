// Package recycle implements the soft-delete lifecycle: deleted records move
// into a recycle view where they stay restorable until a configured
// retention window lapses, after which the purge sweep removes them for good.
package recycle
