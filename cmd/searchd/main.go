package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelichko/searchserver/internal/cache"
	"github.com/avelichko/searchserver/internal/httpapi"
	"github.com/avelichko/searchserver/internal/ingest"
	"github.com/avelichko/searchserver/internal/search"
	"github.com/avelichko/searchserver/internal/search/requests"
	"github.com/avelichko/searchserver/pkg/config"
	"github.com/avelichko/searchserver/pkg/metrics"
	"github.com/avelichko/searchserver/pkg/middleware"
	"github.com/avelichko/searchserver/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)
	slog.Info("starting search service", "port", cfg.Server.Port)

	stopWords, err := cfg.Search.LoadStopWords()
	if err != nil {
		slog.Error("failed to load stop words", "error", err)
		os.Exit(1)
	}
	server, err := search.New(stopWords,
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithShardCount(cfg.Search.ShardCount),
	)
	if err != nil {
		slog.Error("failed to create search server", "error", err)
		os.Exit(1)
	}
	tracker := requests.NewQueue(server, cfg.Search.RequestWindow)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var docStore *postgres.DocumentStore
	if cfg.Postgres.Host != "" {
		err := dialWithRetry(ctx, "postgres", 5, func() error {
			var openErr error
			docStore, openErr = postgres.Open(cfg.Postgres)
			return openErr
		})
		if err != nil {
			slog.Error("postgres unavailable, skipping document preload", "error", err)
		} else {
			defer docStore.Close()
			loaded, err := docStore.LoadAll(ctx, func(doc postgres.StoredDocument) error {
				if !search.ValidStatus(doc.Status) {
					return fmt.Errorf("unknown status %d", doc.Status)
				}
				return server.AddDocument(doc.ID, doc.Text, search.DocumentStatus(doc.Status), doc.Ratings)
			})
			if err != nil {
				slog.Error("document preload failed", "error", err, "loaded", loaded)
				os.Exit(1)
			}
			if m != nil {
				m.DocsIndexedTotal.Add(float64(loaded))
			}
			slog.Info("documents preloaded", "count", loaded)
		}
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Addr != "" {
		err := dialWithRetry(ctx, "redis", 5, func() error {
			var openErr error
			queryCache, openErr = cache.New(cfg.Redis)
			return openErr
		})
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer queryCache.Close()
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var notifier *ingest.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		notifier = ingest.NewNotifier(cfg.Kafka)
		defer notifier.Close()

		consumer := ingest.NewConsumer(cfg.Kafka, server, docStore, m)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("document ingest stopped", "error", err)
			}
		}()
	}

	api := httpapi.New(server, tracker, queryCache, notifier, m, cfg.Search.DefaultPageSize)
	mux := http.NewServeMux()
	api.Register(mux)

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	chain = http.TimeoutHandler(chain, cfg.Server.WriteTimeout, `{"error":"request timeout"}`)

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     chain,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays above the handler timeout so TimeoutHandler
		// answers first.
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

// setupLogging installs the process-wide slog handler per config.
func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// dialWithRetry retries a connection attempt with doubling backoff until it
// succeeds, the attempts run out, or ctx is cancelled.
func dialWithRetry(ctx context.Context, target string, attempts int, dial func() error) error {
	delay := 500 * time.Millisecond
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = dial(); err == nil {
			if attempt > 1 {
				slog.Info("connected after retry", "target", target, "attempt", attempt)
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		slog.Warn("connection failed, retrying",
			"target", target,
			"attempt", attempt,
			"error", err,
			"next_delay", delay,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("connecting to %s: %w", target, ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("connecting to %s after %d attempts: %w", target, attempts, err)
}
