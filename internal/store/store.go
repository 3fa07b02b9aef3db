package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/index"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

var (
	// ErrMissingID is returned when a document has no id.
	ErrMissingID = errors.New("document id is required")

	// ErrNotFound is returned when no document exists for the given id.
	ErrNotFound = errors.New("document not found")
)

// UpsertResult reports what an upsert did.
type UpsertResult int

const (
	// Unchanged means the stored hash matched; no write occurred.
	Unchanged UpsertResult = iota
	// Inserted means the document was new.
	Inserted
	// Updated means an existing document was replaced.
	Updated
)

// String returns the result name.
func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Filter narrows a List call. Zero-value fields match everything.
type Filter struct {
	Status   string
	Category string
	Tag      string
}

// Store is a mutex-guarded document corpus with a lazily rebuilt
// TF-IDF cache. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*document.Document
	hashes map[string]string

	opts    index.Options
	df      *index.DFIndex
	vectors map[string]index.Vector
	dirty   bool

	logger *zap.Logger
}

// New creates an empty store. A nil logger disables logging.
func New(opts index.Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		docs:   make(map[string]*document.Document),
		hashes: make(map[string]string),
		opts:   opts,
		logger: logger,
	}
}

// Upsert stores the document, gated by its content hash: if a document
// with the same id exists and the hashes are equal, nothing is written
// and Unchanged is returned. Inserted and Updated both invalidate the
// index cache and tell the caller to re-vectorize.
func (s *Store) Upsert(doc *document.Document) (UpsertResult, error) {
	if doc == nil || doc.ID == "" {
		return Unchanged, ErrMissingID
	}

	hash := doc.Hash()

	s.mu.Lock()
	defer s.mu.Unlock()

	result := Inserted
	if prev, ok := s.hashes[doc.ID]; ok {
		if prev == hash {
			return Unchanged, nil
		}
		result = Updated
	}

	stored := doc.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = timeNow().UTC()
	}
	s.docs[doc.ID] = stored
	s.hashes[doc.ID] = hash
	s.dirty = true

	s.logger.Debug("document upserted",
		zap.String("id", doc.ID),
		zap.String("result", result.String()),
	)
	return result, nil
}

// Get returns a copy of the document with the given id.
func (s *Store) Get(id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return doc.Clone(), nil
}

// Delete removes the document and invalidates the index cache.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	delete(s.docs, id)
	delete(s.hashes, id)
	s.dirty = true
	return nil
}

// List returns copies of the documents matching the filter, newest
// first, ties broken by id ascending.
func (s *Store) List(f Filter) []*document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*document.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if !matches(doc, f) {
			continue
		}
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Snapshot returns the document-frequency index, the per-document
// TF-IDF vectors and the documents themselves, rebuilding the derived
// state first if any mutation happened since the last read. The
// returned index and vectors reflect every upsert that completed
// before the call.
func (s *Store) Snapshot() (*index.DFIndex, map[string]index.Vector, []*document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty || s.df == nil {
		s.rebuildLocked()
	}

	docs := make([]*document.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc.Clone())
	}
	vectors := make(map[string]index.Vector, len(s.vectors))
	for id, vec := range s.vectors {
		vectors[id] = vec
	}
	return s.df, vectors, docs
}

// Vector returns the cached TF-IDF vector for the given id, rebuilding
// the cache if stale.
func (s *Store) Vector(id string) (index.Vector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty || s.df == nil {
		s.rebuildLocked()
	}
	vec, ok := s.vectors[id]
	return vec, ok
}

func (s *Store) rebuildLocked() {
	start := timeNow()

	docs := make([]*document.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	s.df = index.Build(docs, s.opts)
	s.vectors = make(map[string]index.Vector, len(docs))
	for _, doc := range docs {
		s.vectors[doc.ID] = index.Vectorize(doc, s.df, s.opts)
	}
	s.dirty = false

	s.logger.Debug("index rebuilt",
		zap.Int("documents", len(docs)),
		zap.Duration("elapsed", timeNow().Sub(start)),
	)
}

func matches(doc *document.Document, f Filter) bool {
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.Category != "" && doc.Category != f.Category {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range doc.Tags {
			if tag == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
