package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/config"
	dbRedis "github.com/kailas-cloud/bookscout/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/bookscout/internal/db/sqlite"
	"github.com/kailas-cloud/bookscout/internal/domain"
	domprice "github.com/kailas-cloud/bookscout/internal/domain/price"
	"github.com/kailas-cloud/bookscout/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/bookscout/internal/logger"
	"github.com/kailas-cloud/bookscout/internal/metrics"
	bookrepo "github.com/kailas-cloud/bookscout/internal/repository/book"
	budgetrepo "github.com/kailas-cloud/bookscout/internal/repository/budget"
	"github.com/kailas-cloud/bookscout/internal/repository/embcache"
	"github.com/kailas-cloud/bookscout/internal/repository/pricecache"
	anthropicGen "github.com/kailas-cloud/bookscout/internal/transport/anthropic"
	chiTransport "github.com/kailas-cloud/bookscout/internal/transport/chi"
	openaiProv "github.com/kailas-cloud/bookscout/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/bookscout/internal/usecase/budget"
	embeddinguc "github.com/kailas-cloud/bookscout/internal/usecase/embedding"
	enhanceuc "github.com/kailas-cloud/bookscout/internal/usecase/enhance"
	generationuc "github.com/kailas-cloud/bookscout/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/bookscout/internal/usecase/health"
	priceuc "github.com/kailas-cloud/bookscout/internal/usecase/price"
	"github.com/kailas-cloud/bookscout/internal/usecase/retry"
	searchuc "github.com/kailas-cloud/bookscout/internal/usecase/search"
	usageuc "github.com/kailas-cloud/bookscout/internal/usecase/usage"
	"github.com/kailas-cloud/bookscout/internal/version"
)

const embeddingCacheTTL = 30 * 24 * time.Hour

// healthChecker is implemented by every provider client.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// generator is a provider client: it generates and reports its health.
type generator interface {
	domain.Generator
	healthChecker
}

func main() {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bookscout API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("price_cache", cfg.Price.CacheDriver),
	)

	// redis and valkey share one client; they differ only in full-text support
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Password:   cfg.Database.Password,
		TextSearch: *cfg.Database.TextSearch,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	books := bookrepo.New(store, bookrepo.Config{
		KeyPrefix:       cfg.Storage.KeyPrefix,
		IndexName:       cfg.Index.Name,
		Dimensions:      cfg.Index.Dimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := books.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure book index", zap.Error(err))
	}

	budgetStore := budgetrepo.New(store)
	embBudget := newTracker(ctx, "embedding", cfg.Storage.KeyPrefix, cfg.Embedding.Budget, budgetStore, logger)
	genBudget := newTracker(ctx, "generation", cfg.Storage.KeyPrefix, cfg.Generation.Budget, budgetStore, logger)

	// Embedder chain: OpenAI -> Cached -> Instruction -> Instrumented
	baseEmbedder := openaiProv.NewEmbedder(&openaiProv.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = baseEmbedder
	if *cfg.Embedding.CacheEnabled {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix:  cfg.Storage.KeyPrefix,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Index.Dimensions,
			TTL:        embeddingCacheTTL,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, asChecker(embBudget), logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", *cfg.Embedding.CacheEnabled),
	)

	genChecker := asChecker(genBudget)
	enhanceBase := buildGenerator(cfg.Generation, cfg.Generation.Enhancement, logger)
	priceBase := buildGenerator(cfg.Generation, cfg.Generation.PriceSearch, logger)

	embedExec := retry.New(retryPolicy(cfg.Embedding.Retry), logger)
	genExec := retry.New(retryPolicy(cfg.Generation.Retry), logger)

	var enhancer *enhanceuc.Enhancer
	if cfg.Search.Enhancement {
		enhancer = enhanceuc.New(
			generationuc.NewInstrumentedGenerator(enhanceBase, cfg.Generation.Enhancement.Provider,
				cfg.Generation.Enhancement.Model, genChecker, logger),
			genExec,
			enhanceuc.Options{
				MaxChars:    cfg.Search.MaxEnhancedChars,
				MaxTokens:   cfg.Generation.Enhancement.MaxTokens,
				Temperature: cfg.Generation.Enhancement.Temperature,
			},
			logger,
		)
	}

	searchSvc := searchuc.New(books, embedder, enhancer, embedExec, searchuc.Options{
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
		MaxCandidates:       cfg.Search.MaxCandidates,
		TieEpsilon:          cfg.Search.TieEpsilon,
	}, logger)

	cache, sweepable, closeCache := buildPriceCache(ctx, cfg, store, logger)
	defer closeCache()

	priceSvc := priceuc.New(
		cache,
		generationuc.NewInstrumentedGenerator(priceBase, cfg.Generation.PriceSearch.Provider,
			cfg.Generation.PriceSearch.Model, genChecker, logger),
		genExec,
		domprice.NewValidator(cfg.Price.MaxPrice, cfg.Price.KnownRetailers),
		priceuc.Options{
			Timeout:     cfg.Price.Timeout(),
			MaxTokens:   cfg.Generation.PriceSearch.MaxTokens,
			Temperature: cfg.Generation.PriceSearch.Temperature,
		},
		logger,
	)

	sweeper := priceuc.NewSweeper(sweepable, cfg.Price.CacheMaxAge(), logger)
	if err := sweeper.Start(cfg.Price.SweepSchedule); err != nil {
		logger.Fatal("Failed to start price cache sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	var readers []usageuc.BudgetReader
	for _, t := range []*budgetuc.Tracker{embBudget, genBudget} {
		if t != nil {
			readers = append(readers, t)
		}
	}
	usageSvc := usageuc.New(readers...)

	healthSvc := healthuc.New(store,
		providerChecks(baseEmbedder, priceBase, enhanceBase, cfg.Generation, cfg.Search.Enhancement))

	server := chiTransport.NewServer(searchSvc, priceSvc, usageSvc, healthSvc,
		request.Limits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(cfg.Auth.APIKeys),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newTracker returns nil when the budget has no limits.
func newTracker(
	ctx context.Context, name, keyPrefix string, bc config.BudgetConfig,
	store budgetuc.Store, logger *zap.Logger,
) *budgetuc.Tracker {
	if bc.DailyTokenLimit <= 0 && bc.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := budgetuc.ActionWarn
	if bc.Action == string(budgetuc.ActionReject) {
		action = budgetuc.ActionReject
	}
	return budgetuc.NewTracker(name, keyPrefix, budgetuc.Limits{
		Daily:   bc.DailyTokenLimit,
		Monthly: bc.MonthlyTokenLimit,
		Action:  action,
	}, logger).WithStore(ctx, store)
}

// asChecker keeps an absent tracker a nil interface, which Admit treats as unlimited.
func asChecker(t *budgetuc.Tracker) budgetuc.Checker {
	if t == nil {
		return nil
	}
	return t
}

// providerChecks names the upstreams probed by /health. The enhancement
// generator gets its own entry only when it is enabled and talks to a
// different provider than price search.
func providerChecks(
	embedder, priceGen, enhanceGen healthuc.Checker,
	gc config.GenerationConfig,
	enhancement bool,
) map[string]healthuc.Checker {
	checks := map[string]healthuc.Checker{
		"embedding":  embedder,
		"generation": priceGen,
	}
	if enhancement && gc.Enhancement.Provider != gc.PriceSearch.Provider {
		checks["enhancement"] = enhanceGen
	}
	return checks
}

func buildGenerator(gc config.GenerationConfig, mc config.ModelConfig, logger *zap.Logger) generator {
	pc := gc.Providers[mc.Provider]
	if mc.Provider == "anthropic" {
		return anthropicGen.NewGenerator(&anthropicGen.Config{
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
			Model:   mc.Model,
			Logger:  logger,
		})
	}
	return openaiProv.NewGenerator(&openaiProv.GeneratorConfig{
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   mc.Model,
		Logger:  logger,
	})
}

// buildPriceCache opens the configured cache backend. The returned func
// releases it.
func buildPriceCache(
	ctx context.Context, cfg config.Config, store *dbRedis.Store, logger *zap.Logger,
) (priceuc.Cache, priceuc.Sweepable, func()) {
	if cfg.Price.CacheDriver != "sqlite" {
		repo := pricecache.NewKV(store, cfg.Storage.KeyPrefix)
		return repo, repo, func() {}
	}

	conn, err := dbSqlite.Open(ctx, dbSqlite.Config{Path: cfg.Price.SQLitePath})
	if err != nil {
		logger.Fatal("Failed to open price cache database", zap.Error(err))
	}
	repo := pricecache.NewSQL(conn)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate price cache", zap.Error(err))
	}
	logger.Info("Price cache on sqlite", zap.String("path", cfg.Price.SQLitePath))
	return repo, repo, func() { closeDB(conn, logger) }
}

func closeDB(conn *sql.DB, logger *zap.Logger) {
	if err := conn.Close(); err != nil {
		logger.Warn("Failed to close price cache database", zap.Error(err))
	}
}

func retryPolicy(rc config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxRetries: *rc.MaxRetries,
		BaseDelay:  time.Duration(rc.BaseDelayMS) * time.Millisecond,
		Multiplier: rc.Multiplier,
	}
}
