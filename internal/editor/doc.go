// Package editor applies user corrections to processed documents. Every
// edit lands through a revision-guarded write so concurrent editors never
// silently overwrite each other, and each call appends one entry to the
// record's capped edit history.
package editor
