// Package embeddings stores embedding vectors keyed by document and
// model. Vectors arrive from an external generator through the retry
// queue; this package only records them. Records are derived data: the
// corpus can always re-request a vector, so losing the store never
// loses truth.
//
// With a configured path, records are written through to an embedded
// chromem-go database, one collection per model, and reloaded on
// startup for the document ids the caller knows about.
package embeddings
