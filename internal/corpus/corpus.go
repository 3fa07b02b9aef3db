package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/embeddings"
	"github.com/fyrsmithlabs/threadbank/internal/index"
	"github.com/fyrsmithlabs/threadbank/internal/piiscan"
	"github.com/fyrsmithlabs/threadbank/internal/queue"
	"github.com/fyrsmithlabs/threadbank/internal/rank"
	"github.com/fyrsmithlabs/threadbank/internal/store"
)

const instrumentationName = "threadbank.corpus"

// EmbedJobKind is the queue kind for background embedding generation.
const EmbedJobKind = "embed"

// ErrNotFound is returned when an operation names an unknown document.
var ErrNotFound = store.ErrNotFound

// EmbedFunc generates a dense vector for text. Implementations call an
// external model service; failures are retried through the queue.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Config configures the corpus service.
type Config struct {
	// Model names the embedding model vectors are stored under.
	Model string `koanf:"model"`

	// Index tunes TF-IDF vectorization.
	Index index.Options `koanf:"index"`

	// Queue tunes retry backoff.
	Queue queue.Config `koanf:"queue"`

	// QueryCacheSize bounds the LRU cache of query vectors.
	QueryCacheSize int `koanf:"query_cache_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = embeddings.DefaultModel
	}
	if c.QueryCacheSize <= 0 {
		c.QueryCacheSize = 256
	}
	c.Queue.ApplyDefaults()
}

// Service is the corpus API.
type Service interface {
	// Upsert stores a document. Inserted and updated documents get an
	// embedding job enqueued; unchanged ones cost nothing.
	Upsert(ctx context.Context, doc *document.Document) (store.UpsertResult, error)

	// Get returns the document with the given id.
	Get(ctx context.Context, id string) (*document.Document, error)

	// List returns documents matching the filter, newest first.
	List(ctx context.Context, f store.Filter) []*document.Document

	// Delete removes a document and its embedding records.
	Delete(ctx context.Context, id string) error

	// FindSimilar ranks other documents by similarity to the one named.
	FindSimilar(ctx context.Context, id string, topK int) ([]rank.Match, error)

	// Search ranks documents against a free-text query.
	Search(ctx context.Context, query string, topK int) ([]rank.SearchResult, error)

	// ScanForPII returns masked findings for the text, ordered by
	// position, never overlapping.
	ScanForPII(ctx context.Context, text string) []piiscan.Finding

	// Queue exposes the retry queue for operator surfaces.
	Queue() *queue.Queue
}

type service struct {
	cfg        Config
	store      *store.Store
	embeddings *embeddings.Store
	queue      *queue.Queue
	scanner    *piiscan.Scanner
	embed      EmbedFunc

	// queryCache holds query vectors keyed by query text. cachedDF
	// tracks which index generation they were built against; a new
	// generation purges the cache.
	cacheMu    sync.Mutex
	queryCache *lru.Cache[string, index.Vector]
	cachedDF   *index.DFIndex

	logger *zap.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	upsertCounter  metric.Int64Counter
	similarCounter metric.Int64Counter
	searchCounter  metric.Int64Counter
	scanCounter    metric.Int64Counter
}

// New creates a corpus service. embed may be nil, in which case no
// embedding jobs are enqueued and similarity falls back to TF-IDF.
// A nil logger disables logging.
func New(cfg Config, embStore *embeddings.Store, embed EmbedFunc, logger *zap.Logger) (Service, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if embStore == nil {
		embStore = embeddings.NewMemory(logger)
	}

	cache, err := lru.New[string, index.Vector](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	s := &service{
		cfg:        cfg,
		store:      store.New(cfg.Index, logger),
		embeddings: embStore,
		queue:      queue.New(cfg.Queue, logger),
		scanner:    piiscan.NewDefault(logger),
		embed:      embed,
		queryCache: cache,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.upsertCounter, err = s.meter.Int64Counter(
		"threadbank.corpus.upserts_total",
		metric.WithDescription("Total number of document upserts"),
		metric.WithUnit("{upsert}"),
	)
	if err != nil {
		s.logger.Warn("failed to create upsert counter", zap.Error(err))
	}

	s.similarCounter, err = s.meter.Int64Counter(
		"threadbank.corpus.similar_queries_total",
		metric.WithDescription("Total number of find-similar queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		s.logger.Warn("failed to create similar counter", zap.Error(err))
	}

	s.searchCounter, err = s.meter.Int64Counter(
		"threadbank.corpus.searches_total",
		metric.WithDescription("Total number of text searches"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		s.logger.Warn("failed to create search counter", zap.Error(err))
	}

	s.scanCounter, err = s.meter.Int64Counter(
		"threadbank.corpus.pii_scans_total",
		metric.WithDescription("Total number of PII scans"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		s.logger.Warn("failed to create scan counter", zap.Error(err))
	}
}

func (s *service) Upsert(ctx context.Context, doc *document.Document) (store.UpsertResult, error) {
	ctx, span := s.tracer.Start(ctx, "corpus.Upsert")
	defer span.End()

	result, err := s.store.Upsert(doc)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	s.upsertCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result.String()),
	))

	if result != store.Unchanged && s.embed != nil {
		// A vector persisted by a previous run may already cover an
		// inserted document; reloading it beats an external call.
		if result == store.Inserted && !s.embeddings.Has(doc.ID, s.cfg.Model) {
			_ = s.embeddings.Load(ctx, []string{doc.ID}, s.cfg.Model)
		}
		if result == store.Updated || !s.embeddings.Has(doc.ID, s.cfg.Model) {
			payload, _ := json.Marshal(embedJob{DocumentID: doc.ID, Model: s.cfg.Model})
			item := s.queue.Enqueue(EmbedJobKind, payload)
			s.logger.Debug("embedding job enqueued",
				zap.String("document_id", doc.ID),
				zap.String("item_id", item.ID),
			)
		}
	}
	return result, nil
}

func (s *service) Get(_ context.Context, id string) (*document.Document, error) {
	return s.store.Get(id)
}

func (s *service) List(_ context.Context, f store.Filter) []*document.Document {
	return s.store.List(f)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	return s.embeddings.Delete(ctx, id)
}

func (s *service) FindSimilar(ctx context.Context, id string, topK int) ([]rank.Match, error) {
	ctx, span := s.tracer.Start(ctx, "corpus.FindSimilar")
	defer span.End()

	target, err := s.store.Get(id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	_, vectors, docs := s.store.Snapshot()
	targetEmb, _ := s.embeddings.Get(id, s.cfg.Model)

	cands := rank.Candidates{
		Docs:       docs,
		Vectors:    vectors,
		Embeddings: s.embeddings.ForModel(s.cfg.Model),
	}
	matches := rank.FindSimilar(target, vectors[id], targetEmb, cands, topK)

	s.similarCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("results", len(matches)),
	))
	return matches, nil
}

func (s *service) Search(ctx context.Context, query string, topK int) ([]rank.SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "corpus.Search")
	defer span.End()

	df, vectors, docs := s.store.Snapshot()
	queryVec := s.queryVector(query, df)

	cands := rank.Candidates{Docs: docs, Vectors: vectors}
	results := rank.SearchWithVector(queryVec, query, cands, topK)

	s.searchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("results", len(results)),
	))
	return results, nil
}

func (s *service) ScanForPII(ctx context.Context, text string) []piiscan.Finding {
	ctx, span := s.tracer.Start(ctx, "corpus.ScanForPII")
	defer span.End()

	findings := s.scanner.Scan(text)
	s.scanCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("findings", len(findings)),
	))
	return findings
}

func (s *service) Queue() *queue.Queue {
	return s.queue
}

// queryVector returns the TF-IDF vector for the query, cached per
// index generation. A rebuilt index purges the cache because the IDF
// weights behind the cached vectors are stale.
func (s *service) queryVector(query string, df *index.DFIndex) index.Vector {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if df != s.cachedDF {
		s.queryCache.Purge()
		s.cachedDF = df
	}
	if vec, ok := s.queryCache.Get(query); ok {
		return vec
	}
	vec := index.VectorizeQuery(query, df, s.cfg.Index)
	s.queryCache.Add(query, vec)
	return vec
}

// embedJob is the queue payload for background embedding generation.
type embedJob struct {
	DocumentID string `json:"document_id"`
	Model      string `json:"model"`
}

// NewWorker builds a queue worker with the embedding handler
// registered. The caller owns Start and Stop.
func NewWorker(svc Service, logger *zap.Logger, opts ...queue.WorkerOption) (*queue.Worker, error) {
	s, ok := svc.(*service)
	if !ok {
		return nil, errors.New("unsupported service implementation")
	}

	w := queue.NewWorker(s.queue, logger, opts...)
	w.Register(EmbedJobKind, s.handleEmbedJob)
	return w, nil
}

// handleEmbedJob generates and records the embedding for one document.
// Runs without holding any store lock while the external call is in
// flight.
func (s *service) handleEmbedJob(ctx context.Context, item queue.Item) error {
	var job embedJob
	if err := json.Unmarshal(item.Payload, &job); err != nil {
		return fmt.Errorf("decoding embed payload: %w", err)
	}

	doc, err := s.store.Get(job.DocumentID)
	if err != nil {
		return fmt.Errorf("loading document for embedding: %w", err)
	}

	vec, err := s.embed(ctx, embeddingText(doc))
	if err != nil {
		return fmt.Errorf("embedding %s: %w", job.DocumentID, err)
	}

	if err := s.embeddings.Put(ctx, job.DocumentID, job.Model, vec); err != nil {
		return fmt.Errorf("storing embedding %s: %w", job.DocumentID, err)
	}
	return nil
}

// embeddingText assembles the text sent to the embedding model.
func embeddingText(doc *document.Document) string {
	text := doc.Title
	if doc.Summary != "" {
		text += "\n" + doc.Summary
	}
	if doc.Body != "" {
		text += "\n" + doc.Body
	}
	return text
}
