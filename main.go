package main

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/config"
	"github.com/schoolgrid/schoolgrid-engine/pkg/database"
	"github.com/schoolgrid/schoolgrid-engine/pkg/executor"
	"github.com/schoolgrid/schoolgrid-engine/pkg/handlers"
	"github.com/schoolgrid/schoolgrid-engine/pkg/llm"
	"github.com/schoolgrid/schoolgrid-engine/pkg/logging"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
	"github.com/schoolgrid/schoolgrid-engine/pkg/middleware"
	"github.com/schoolgrid/schoolgrid-engine/pkg/pipeline"
	"github.com/schoolgrid/schoolgrid-engine/pkg/schema"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("db_host", cfg.Database.Host),
		zap.Int("max_attempts", cfg.Pipeline.MaxAttempts))

	store := metadata.NewStore()
	if err := store.Load(); err != nil {
		logger.Fatal("Failed to load metadata bundles", zap.Error(err))
	}

	client, err := llm.NewFromConfig(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	ctx := context.Background()
	var exec executor.SQLExecutor
	var samples pipeline.SampleSource

	// Postgres shares one pool between the executor and the example-row
	// provider; mssql has no sample provider.
	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		exec = executor.NewPostgresExecutor(db, cfg.Pipeline.QueryTimeout(), logger)
		samples = schema.NewSampleProvider(db, cfg.Pipeline.SampleCacheTTL(), logger)
	case "mssql":
		exec, err = executor.NewMSSQLExecutor(cfg.Database.URL(), cfg.Pipeline.QueryTimeout(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
	default:
		logger.Fatal("Unsupported database driver", zap.String("driver", cfg.Database.Driver))
	}
	defer func() { _ = exec.Close() }()

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewIntentClassifier(store, client, logger),
		pipeline.NewKeywordExtractor(store),
		pipeline.NewDisambiguator(store, logger),
		pipeline.NewSQLGenerator(client, samples, logger),
		pipeline.NewEvaluator(),
		cfg.Pipeline.MaxAttempts,
		logger,
	)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, store, client.Model(), logger)
	healthHandler.RegisterRoutes(mux)

	queryHandler := handlers.NewQueryHandler(orchestrator, exec, logger)
	queryHandler.RegisterRoutes(mux)

	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting schoolgrid-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
