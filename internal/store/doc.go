// Package store holds the document corpus and its derived index state.
//
// The store is the source of truth: documents and their content hashes.
// The document-frequency index and per-document TF-IDF vectors are a
// rebuildable cache owned by the store, invalidated on any upsert that
// changes hash-relevant fields and rebuilt lazily on the next read.
package store
