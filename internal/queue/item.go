package queue

import (
	"encoding/json"
	"math"
	"time"
)

// Status is the lifecycle state of a queue item.
type Status string

const (
	// StatusPending means the item is waiting to be claimed.
	StatusPending Status = "pending"
	// StatusInProgress means a worker has claimed the item.
	StatusInProgress Status = "in_progress"
	// StatusDone means the item completed successfully. Terminal.
	StatusDone Status = "done"
	// StatusFailed means the retry budget is exhausted or the item
	// was canceled. Terminal.
	StatusFailed Status = "failed"
)

// Item is one unit of background work.
type Item struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Status        Status          `json:"status"`
	AttemptCount  int             `json:"attempt_count"`
	LastError     string          `json:"last_error,omitempty"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Config holds the backoff parameters.
type Config struct {
	BaseDelay     time.Duration `koanf:"base_delay"`
	BackoffFactor float64       `koanf:"backoff_factor"`
	MaxDelay      time.Duration `koanf:"max_delay"`
	MaxRetries    int           `koanf:"max_retries"`
	JitterFactor  float64       `koanf:"jitter_factor"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 1000 * time.Millisecond
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30000 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	} else if c.JitterFactor == 0 {
		c.JitterFactor = 0.25
	}
}

// backoffDelay computes the delay before the given attempt, before
// jitter: min(MaxDelay, BaseDelay * BackoffFactor^attempt).
func backoffDelay(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

// jitteredDelay spreads the base delay by +/- JitterFactor. rnd must
// be uniform in [0, 1).
func jitteredDelay(cfg Config, attempt int, rnd float64) time.Duration {
	base := backoffDelay(cfg, attempt)
	if cfg.JitterFactor == 0 {
		return base
	}
	// Map rnd from [0,1) onto [-1,1) and scale.
	offset := (2*rnd - 1) * cfg.JitterFactor * float64(base)
	d := time.Duration(float64(base) + offset)
	if d < 0 {
		d = 0
	}
	return d
}

// succeed returns the item transitioned to done.
func succeed(item Item, now time.Time) Item {
	item.Status = StatusDone
	item.LastError = ""
	item.UpdatedAt = now
	return item
}

// fail records a failed attempt. The attempt counter is incremented;
// while attempts remain the item goes back to pending with a jittered
// backoff delay, otherwise it becomes failed for good.
func fail(item Item, cfg Config, cause string, now time.Time, rnd float64) Item {
	item.AttemptCount++
	item.LastError = cause
	item.UpdatedAt = now

	if item.AttemptCount >= cfg.MaxRetries {
		item.Status = StatusFailed
		return item
	}
	item.Status = StatusPending
	item.NextAttemptAt = now.Add(jitteredDelay(cfg, item.AttemptCount, rnd))
	return item
}

// claimable reports whether the item can be handed to a worker.
func claimable(item Item, now time.Time) bool {
	return item.Status == StatusPending && !item.NextAttemptAt.After(now)
}
