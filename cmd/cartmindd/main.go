package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cartmind/cartmind-go/completion"
	"github.com/cartmind/cartmind-go/config"
	"github.com/cartmind/cartmind-go/conversation"
	"github.com/cartmind/cartmind-go/httpapi"
	"github.com/cartmind/cartmind-go/lookup"
	"github.com/cartmind/cartmind-go/memory"
	"github.com/cartmind/cartmind-go/memory/embedder/hash"
	chromemstore "github.com/cartmind/cartmind-go/memory/store/chromem"
	"github.com/cartmind/cartmind-go/observability"
	"github.com/cartmind/cartmind-go/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	ctx := context.Background()

	convLog, err := conversation.NewLog(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("conversation log init failed: %v", err)
	}
	defer convLog.Close()

	store, err := chromemstore.New(chromemstore.Config{
		Dir:      cfg.MemoryPath,
		Compress: cfg.MemoryCompress,
	})
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}

	mem := memory.NewService(store, hash.New(), convLog, &memory.Config{
		ExpiryDays:   cfg.MemoryExpiryDays,
		DefaultLimit: cfg.MemoryLimit,
	})
	defer mem.Close()

	var orders lookup.OrderLookup
	var products lookup.ProductLookup
	if cfg.DatabaseURL != "" {
		pg, err := lookup.NewPostgresLookup(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("lookup init failed: %v", err)
		}
		defer pg.Close()
		orders, products = pg, pg
	} else {
		inmem := lookup.NewInMemoryLookup()
		orders, products = inmem, inmem
		log.Printf("DATABASE_URL not set, using in-memory lookups")
	}

	cache, err := lookup.NewCache(orders, products, lookup.CacheConfig{
		MaxEntries: cfg.LookupCacheSize,
		TTL:        cfg.LookupCacheTTL,
	})
	if err != nil {
		log.Fatalf("lookup cache init failed: %v", err)
	}
	defer cache.Close()

	var client completion.Client
	if cfg.AnthropicAPIKey != "" {
		client = completion.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.CompletionModel)
	} else {
		client = completion.Disabled{}
		log.Printf("ANTHROPIC_API_KEY not set, responses use fallback templates")
	}

	engine := workflow.NewEngine(mem, cache, cache, client,
		workflow.WithMetrics(metrics),
		workflow.WithLookupTimeout(cfg.LookupTimeout),
		workflow.WithCompletionTimeout(cfg.CompletionTimeout),
		workflow.WithMemoryLimit(cfg.MemoryLimit),
	)

	api := httpapi.New(cfg, engine, mem, convLog, cache, cache, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
