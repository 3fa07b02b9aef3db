// Package queue implements the retry queue for background jobs.
//
// Items move pending -> in_progress -> done, or back to pending with
// exponential backoff on failure, or to failed once the retry budget
// is exhausted. Backoff math lives in pure transition functions taking
// an explicit clock so it can be tested without timers; the Worker is
// a separate poll loop that drives claims through registered handlers.
package queue
