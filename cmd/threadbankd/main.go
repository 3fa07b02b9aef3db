// Threadbankd is the thread transcript indexing daemon.
//
// It watches a spool directory for dropped transcripts, indexes them
// for similarity and search, records embedding vectors fetched through
// the retry queue, and serves the HTTP API.
//
// Configuration comes from ~/.config/threadbank/config.yaml overridden
// by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	threadbankd
//
//	# Explicit config file
//	threadbankd --config /etc/threadbank/config.yaml
//
//	# Show version
//	threadbankd version
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/threadbank/internal/collector"
	"github.com/fyrsmithlabs/threadbank/internal/config"
	"github.com/fyrsmithlabs/threadbank/internal/corpus"
	"github.com/fyrsmithlabs/threadbank/internal/embeddings"
	httpserver "github.com/fyrsmithlabs/threadbank/internal/http"
	"github.com/fyrsmithlabs/threadbank/internal/index"
	"github.com/fyrsmithlabs/threadbank/internal/logging"
	"github.com/fyrsmithlabs/threadbank/internal/queue"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  threadbankd           Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  threadbankd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("threadbankd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is canceled.
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting threadbankd",
		zap.String("version", version),
		zap.String("commit", gitCommit),
	)

	// Embedding record store, persistent when a path is configured.
	embStore, err := embeddings.New(embeddings.Config{
		Path:     cfg.Embeddings.Path,
		Compress: cfg.Embeddings.Compress,
		Model:    cfg.Corpus.Model,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating embedding store: %w", err)
	}

	// External embedding generator, absent when no endpoint is set.
	var embed corpus.EmbedFunc
	if cfg.Embeddings.Endpoint != "" {
		client := embeddings.NewClient(
			cfg.Embeddings.Endpoint,
			cfg.Embeddings.APIKey.Value(),
			cfg.Corpus.Model,
			cfg.Embeddings.Timeout.Duration(),
			logger,
		)
		embed = client.Embed
	} else {
		logger.Info("no embedding endpoint configured, similarity uses TF-IDF only")
	}

	svc, err := corpus.New(corpus.Config{
		Model: cfg.Corpus.Model,
		Index: index.Options{
			MaxTerms:      cfg.Index.MaxTerms,
			BodyPrefixLen: cfg.Index.BodyPrefixLen,
		},
		Queue: queue.Config{
			BaseDelay:     cfg.Queue.BaseDelay.Duration(),
			BackoffFactor: cfg.Queue.BackoffFactor,
			MaxDelay:      cfg.Queue.MaxDelay.Duration(),
			MaxRetries:    cfg.Queue.MaxRetries,
			JitterFactor:  cfg.Queue.JitterFactor,
		},
		QueryCacheSize: cfg.Corpus.QueryCacheSize,
	}, embStore, embed, logger)
	if err != nil {
		return fmt.Errorf("creating corpus service: %w", err)
	}

	worker, err := corpus.NewWorker(svc, logger,
		queue.WithPollInterval(cfg.Worker.PollInterval.Duration()),
		queue.WithRateLimit(cfg.Worker.RatePerSecond, cfg.Worker.RateBurst),
	)
	if err != nil {
		return fmt.Errorf("creating queue worker: %w", err)
	}
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("starting queue worker: %w", err)
	}
	defer worker.Stop()

	if cfg.Collector.SpoolDir != "" {
		col, err := collector.New(cfg.Collector.SpoolDir, svc, logger)
		if err != nil {
			return fmt.Errorf("creating collector: %w", err)
		}
		if err := col.Start(ctx); err != nil {
			return fmt.Errorf("starting collector: %w", err)
		}
		defer col.Stop()
	}

	srv, err := httpserver.NewServer(svc, logger, &httpserver.Config{
		Host: "localhost",
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout.Duration(),
	)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	// Give the listener goroutine a moment to return.
	select {
	case <-errCh:
	case <-time.After(time.Second):
	}
	return nil
}
