// Package corpus is the library boundary of the subsystem. It owns
// the content store, the embedding records, the PII scanner and the
// retry queue, and exposes the operations collectors and presentation
// code consume: upsert, find-similar, search, scan, and queue control.
package corpus
