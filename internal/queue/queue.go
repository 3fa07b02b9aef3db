package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

var (
	// ErrNotFound is returned when no item exists for the given id.
	ErrNotFound = errors.New("queue item not found")

	// ErrNotClaimed is returned when reporting on an item that is not
	// in progress.
	ErrNotClaimed = errors.New("queue item is not in progress")

	// ErrNotPending is returned when canceling an item that has
	// already been claimed or finished.
	ErrNotPending = errors.New("queue item is not pending")

	// ErrNotFailed is returned when resetting an item that has not
	// terminally failed.
	ErrNotFailed = errors.New("queue item is not failed")
)

// Queue is an in-memory retry queue. Safe for concurrent use; ClaimNext
// is atomic, so two workers never receive the same item.
type Queue struct {
	mu    sync.Mutex
	items map[string]*Item
	cfg   Config

	// rnd yields jitter samples in [0,1). Replaceable in tests.
	rnd func() float64

	logger *zap.Logger
}

// New creates an empty queue. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Queue {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		items:  make(map[string]*Item),
		cfg:    cfg,
		rnd:    rand.Float64,
		logger: logger,
	}
}

// Enqueue creates a pending item for the given kind and payload and
// returns a copy of it.
func (q *Queue) Enqueue(kind string, payload json.RawMessage) Item {
	now := timeNow().UTC()
	// Detach from the caller's backing array so later mutations cannot
	// reach into queue state.
	var stored json.RawMessage
	if payload != nil {
		stored = make(json.RawMessage, len(payload))
		copy(stored, payload)
	}
	item := Item{
		ID:            uuid.NewString(),
		Kind:          kind,
		Payload:       stored,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	q.mu.Lock()
	q.items[item.ID] = &item
	q.mu.Unlock()

	q.logger.Debug("item enqueued",
		zap.String("id", item.ID),
		zap.String("kind", kind),
	)
	return item
}

// ClaimNext atomically picks the oldest pending item whose retry time
// has passed, marks it in progress and returns a copy. The boolean is
// false when nothing is claimable.
func (q *Queue) ClaimNext() (Item, bool) {
	now := timeNow().UTC()

	q.mu.Lock()
	defer q.mu.Unlock()

	var oldest *Item
	for _, item := range q.items {
		if !claimable(*item, now) {
			continue
		}
		if oldest == nil ||
			item.CreatedAt.Before(oldest.CreatedAt) ||
			(item.CreatedAt.Equal(oldest.CreatedAt) && item.ID < oldest.ID) {
			oldest = item
		}
	}
	if oldest == nil {
		return Item{}, false
	}

	oldest.Status = StatusInProgress
	oldest.UpdatedAt = now
	return *oldest, true
}

// ReportSuccess marks an in-progress item done.
func (q *Queue) ReportSuccess(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("report success %q: %w", id, ErrNotFound)
	}
	if item.Status != StatusInProgress {
		return fmt.Errorf("report success %q: %w", id, ErrNotClaimed)
	}
	*item = succeed(*item, timeNow().UTC())
	return nil
}

// ReportFailure records a failed attempt on an in-progress item. The
// item is rescheduled with backoff, or marked failed once the attempt
// count reaches the retry limit.
func (q *Queue) ReportFailure(id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("report failure %q: %w", id, ErrNotFound)
	}
	if item.Status != StatusInProgress {
		return fmt.Errorf("report failure %q: %w", id, ErrNotClaimed)
	}

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	*item = fail(*item, q.cfg, msg, timeNow().UTC(), q.rnd())

	if item.Status == StatusFailed {
		q.logger.Warn("item exhausted retries",
			zap.String("id", id),
			zap.String("kind", item.Kind),
			zap.Int("attempts", item.AttemptCount),
			zap.String("last_error", msg),
		)
	}
	return nil
}

// Cancel marks a still-pending item failed before any worker claims
// it. Claimed and finished items cannot be canceled.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("cancel %q: %w", id, ErrNotFound)
	}
	if item.Status != StatusPending {
		return fmt.Errorf("cancel %q: %w", id, ErrNotPending)
	}
	item.Status = StatusFailed
	item.LastError = "canceled"
	item.UpdatedAt = timeNow().UTC()
	return nil
}

// Reset returns a terminally failed item to pending with a fresh
// attempt budget. The item becomes claimable immediately; its last
// error is kept until the next attempt overwrites it.
func (q *Queue) Reset(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("reset %q: %w", id, ErrNotFound)
	}
	if item.Status != StatusFailed {
		return fmt.Errorf("reset %q: %w", id, ErrNotFailed)
	}

	now := timeNow().UTC()
	item.Status = StatusPending
	item.AttemptCount = 0
	item.NextAttemptAt = now
	item.UpdatedAt = now

	q.logger.Info("item reset",
		zap.String("id", id),
		zap.String("kind", item.Kind),
	)
	return nil
}

// Get returns a copy of the item with the given id.
func (q *Queue) Get(id string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return Item{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return *item, nil
}

// List returns copies of all items with the given status, oldest
// first. An empty status matches every item.
func (q *Queue) List(status Status) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Item
	for _, item := range q.items {
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the total number of items, terminal ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
