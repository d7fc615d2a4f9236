package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"pa-intake/catalog"
	"pa-intake/classifier"
	"pa-intake/config"
	"pa-intake/engine"
	"pa-intake/flow"
	"pa-intake/normalize"
	"pa-intake/session"
	"pa-intake/web"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load drug catalog", zap.Error(err))
	}
	graphs, err := flow.Load(cfg.QuestionSetsPath)
	if err != nil {
		logger.Fatal("Failed to load question sets", zap.Error(err))
	}
	logger.Info("Reference data loaded",
		zap.Int("drugs", len(cat.Drugs)),
		zap.Int("question_sets", len(graphs)))

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}

	resolver, err := catalog.NewResolver(cat, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize drug resolver", zap.Error(err))
	}

	textClassifier := classifier.New(cfg, logger)
	normalizer := normalize.New(cfg, logger, textClassifier)

	eng := engine.New(cfg, logger, store, resolver, graphs, normalizer, textClassifier)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reaper := engine.NewReaper(store, cfg, logger)
	go reaper.Run(ctx)

	webServer := web.NewServer(eng, logger, cfg)
	logger.Info("Starting prior-authorization intake server", zap.Int("port", cfg.WebPort))
	if err := webServer.Start(ctx); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}

// newStore selects the session store backend from configuration.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, error) {
	switch cfg.SessionStore {
	case "redis":
		logger.Info("Using Redis session store", zap.String("addr", cfg.RedisAddr))
		return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionRetentionAge), nil
	case "postgres":
		logger.Info("Using Postgres session store")
		store, err := session.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		logger.Info("Using in-memory session store")
		return session.NewMemoryStore(), nil
	}
}
