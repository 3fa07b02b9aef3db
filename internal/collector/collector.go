// Package collector feeds the corpus from a spool directory. Producers
// drop one JSON document per file; the collector picks them up, upserts
// them and renames the file out of the way.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/threadbank/internal/corpus"
	"github.com/fyrsmithlabs/threadbank/internal/document"
)

// spoolExt is the extension of files the collector ingests. Processed
// files are renamed to .done, rejected ones to .err, so a crash never
// ingests twice and a bad file never loops.
const spoolExt = ".json"

// Collector watches a spool directory and upserts dropped documents.
type Collector struct {
	dir      string
	svc      corpus.Service
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	logger   *zap.Logger
}

// New creates a collector for the given directory, creating it if
// needed. A nil logger disables logging.
func New(dir string, svc corpus.Service, logger *zap.Logger) (*Collector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Collector{
		dir:     dir,
		svc:     svc,
		watcher: watcher,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}, nil
}

// Start sweeps files already in the directory, then begins watching
// for new ones. Runs until Stop or context cancellation.
func (c *Collector) Start(ctx context.Context) error {
	if err := c.watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watching %s: %w", c.dir, err)
	}

	// Files dropped before startup get no events; sweep them now.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading spool directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			c.maybeIngest(ctx, filepath.Join(c.dir, entry.Name()))
		}
	}

	go c.processEvents(ctx)

	c.logger.Info("collector started", zap.String("spool_dir", c.dir))
	return nil
}

// Stop stops the collector and cleans up resources. Safe to call more
// than once, including concurrently.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		_ = c.watcher.Close()
	})
	<-c.done
}

func (c *Collector) processEvents(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				c.maybeIngest(ctx, event.Name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// maybeIngest processes one spool file if it carries the spool
// extension. Success and failure both rename the file so it is never
// seen again.
func (c *Collector) maybeIngest(ctx context.Context, path string) {
	if !strings.HasSuffix(path, spoolExt) {
		return
	}
	if _, err := os.Stat(path); err != nil {
		// Already renamed by an earlier event for the same file.
		return
	}

	if err := c.ingest(ctx, path); err != nil {
		c.logger.Warn("spool file rejected",
			zap.String("path", path),
			zap.Error(err),
		)
		_ = os.Rename(path, path+".err")
		return
	}
	_ = os.Rename(path, path+".done")
}

func (c *Collector) ingest(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var doc document.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}

	result, err := c.svc.Upsert(ctx, &doc)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	c.logger.Debug("spool file ingested",
		zap.String("path", path),
		zap.String("document_id", doc.ID),
		zap.String("result", result.String()),
	)
	return nil
}
