// Package index holds the corpus-wide document frequency table and the
// per-document TF-IDF vectorizer.
//
// The DF index and the cached vectors are derived data: both are rebuilt
// from the document store and are never a source of truth. Rebuilds are
// full-corpus; at the corpus sizes this system targets (tens of thousands
// of short transcripts) a rebuild is cheaper than incremental bookkeeping.
package index
