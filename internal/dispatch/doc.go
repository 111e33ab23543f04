// Package dispatch submits routed documents to the work queue exactly once
// per status generation.
//
// Every trigger shape (API call, storage event, reconciler requeue, operator
// retry) normalizes to one internal form before any token math. The dispatch
// token is derived from the document id and the post-transition status
// generation and stored on the record in the same conditional write that
// moves it to queued; consumers discard any queue item whose token no longer
// matches. That pairing is what turns an at-least-once queue into
// exactly-one-effective-submission.
package dispatch
