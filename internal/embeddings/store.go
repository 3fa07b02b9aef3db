package embeddings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// DefaultModel is used when a caller does not name a model.
const DefaultModel = "text-embedding-3-small"

var (
	// ErrEmptyVector is returned when storing a zero-length vector.
	ErrEmptyVector = errors.New("embedding vector is empty")

	// ErrMissingID is returned when a record has no document id.
	ErrMissingID = errors.New("document id is required")
)

// Config holds embedding store configuration.
type Config struct {
	// Path is the directory for persistent storage. Empty means
	// memory only.
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`

	// Model is the default embedding model name.
	Model string `koanf:"model"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
}

// record is one stored embedding with its computation time.
type record struct {
	vec        []float32
	computedAt time.Time
}

// Store holds embedding vectors in memory with optional write-through
// persistence to chromem. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	// byModel maps model -> document id -> record.
	byModel map[string]map[string]record

	db          *chromem.DB
	collections map[string]*chromem.Collection

	cfg    Config
	logger *zap.Logger
}

// New creates a store. With a non-empty cfg.Path the underlying
// chromem database is opened (and created if needed); otherwise the
// store is memory only. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		byModel:     make(map[string]map[string]record),
		collections: make(map[string]*chromem.Collection),
		cfg:         cfg,
		logger:      logger,
	}

	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
		}
		db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db: %w", err)
		}
		s.db = db
		logger.Info("embedding store opened",
			zap.String("path", cfg.Path),
			zap.Bool("compress", cfg.Compress),
			zap.String("default_model", cfg.Model),
		)
	}
	return s, nil
}

// NewMemory creates a memory-only store, for tests and callers that
// do not persist.
func NewMemory(logger *zap.Logger) *Store {
	s, _ := New(Config{}, logger)
	return s
}

// Put records the vector for the document under the given model. An
// empty model selects the configured default. Persistent stores write
// through before updating the in-memory map.
func (s *Store) Put(ctx context.Context, docID, model string, vec []float32) error {
	if docID == "" {
		return ErrMissingID
	}
	if len(vec) == 0 {
		return ErrEmptyVector
	}
	model = s.modelOrDefault(model)
	computedAt := timeNow().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		col, err := s.collectionLocked(model)
		if err != nil {
			return err
		}
		doc := chromem.Document{
			ID:        docID,
			Embedding: vec,
			Content:   docID,
			Metadata: map[string]string{
				"model":       model,
				"computed_at": computedAt.Format(time.RFC3339Nano),
			},
		}
		if err := col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
			return fmt.Errorf("persisting embedding %s/%s: %w", model, docID, err)
		}
	}

	records, ok := s.byModel[model]
	if !ok {
		records = make(map[string]record)
		s.byModel[model] = records
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	records[docID] = record{vec: stored, computedAt: computedAt}
	return nil
}

// Get returns the vector for the document under the given model.
func (s *Store) Get(docID, model string) ([]float32, bool) {
	model = s.modelOrDefault(model)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byModel[model][docID]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(rec.vec))
	copy(out, rec.vec)
	return out, true
}

// ComputedAt returns when the document's embedding under the model was
// generated (the persisted timestamp after a Load).
func (s *Store) ComputedAt(docID, model string) (time.Time, bool) {
	model = s.modelOrDefault(model)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byModel[model][docID]
	return rec.computedAt, ok
}

// Has reports whether a vector exists without copying it.
func (s *Store) Has(docID, model string) bool {
	model = s.modelOrDefault(model)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byModel[model][docID]
	return ok
}

// ForModel returns a snapshot of every vector stored under the model,
// keyed by document id. Ranking reads the corpus through this.
func (s *Store) ForModel(model string) map[string][]float32 {
	model = s.modelOrDefault(model)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]float32, len(s.byModel[model]))
	for id, rec := range s.byModel[model] {
		out[id] = rec.vec
	}
	return out
}

// Delete removes the document's vectors under every model.
func (s *Store) Delete(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for model, records := range s.byModel {
		if _, ok := records[docID]; !ok {
			continue
		}
		if s.db != nil {
			col, err := s.collectionLocked(model)
			if err == nil {
				err = col.Delete(ctx, nil, nil, docID)
			}
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("deleting embedding %s/%s: %w", model, docID, err)
			}
		}
		delete(records, docID)
	}
	return firstErr
}

// Load hydrates the in-memory map from the persistent database for
// the given document ids under the given model. Ids without a stored
// vector are skipped. No-op for memory-only stores.
func (s *Store) Load(ctx context.Context, docIDs []string, model string) error {
	if s.db == nil {
		return nil
	}
	model = s.modelOrDefault(model)

	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collectionLocked(model)
	if err != nil {
		return err
	}

	records, ok := s.byModel[model]
	if !ok {
		records = make(map[string]record)
		s.byModel[model] = records
	}

	loaded := 0
	for _, id := range docIDs {
		doc, err := col.GetByID(ctx, id)
		if err != nil {
			continue
		}
		vec := make([]float32, len(doc.Embedding))
		copy(vec, doc.Embedding)
		computedAt, _ := time.Parse(time.RFC3339Nano, doc.Metadata["computed_at"])
		records[id] = record{vec: vec, computedAt: computedAt}
		loaded++
	}

	s.logger.Debug("embeddings loaded",
		zap.String("model", model),
		zap.Int("requested", len(docIDs)),
		zap.Int("loaded", loaded),
	)
	return nil
}

// Count returns how many vectors are stored under the model.
func (s *Store) Count(model string) int {
	model = s.modelOrDefault(model)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byModel[model])
}

func (s *Store) modelOrDefault(model string) string {
	if model == "" {
		return s.cfg.Model
	}
	return model
}

// collectionLocked returns the chromem collection for the model,
// creating it on first use. Caller holds s.mu.
func (s *Store) collectionLocked(model string) (*chromem.Collection, error) {
	if col, ok := s.collections[model]; ok {
		return col, nil
	}
	name := collectionName(model)
	col, err := s.db.GetOrCreateCollection(name, map[string]string{"model": model}, nil)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	s.collections[model] = col
	return col, nil
}

// collectionName maps a model name onto chromem's allowed character
// set (alphanumerics, dash, underscore).
func collectionName(model string) string {
	var b strings.Builder
	b.WriteString("emb-")
	for _, r := range model {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
