package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/ai"
	"github.com/buildsafe/backend/internal/api/handlers"
	"github.com/buildsafe/backend/internal/audit"
	redisCache "github.com/buildsafe/backend/internal/cache/redis"
	"github.com/buildsafe/backend/internal/legislation"
	"github.com/buildsafe/backend/internal/library"
	"github.com/buildsafe/backend/internal/matching"
	"github.com/buildsafe/backend/internal/metrics"
	"github.com/buildsafe/backend/internal/middleware/ratelimit"
	"github.com/buildsafe/backend/internal/middleware/security"
	"github.com/buildsafe/backend/internal/middleware/validation"
	"github.com/buildsafe/backend/internal/storage/sqlite"
	"github.com/buildsafe/backend/internal/suggestion"
	"github.com/buildsafe/backend/pkg/config"
	appLogger "github.com/buildsafe/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting BuildSafe suggestion engine API")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	err = sqliteClient.SeedLibraries(context.Background(), "")
	if err != nil {
		appLogger.Warn("Failed to seed libraries", zap.Error(err))
	}

	var cacheClient *redisCache.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redisCache.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without library cache", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	var libraryStore *library.Store
	if cacheClient != nil {
		// Seeding may have changed library rows under a previous cache snapshot.
		if err := cacheClient.InvalidateLibraries(context.Background()); err != nil {
			appLogger.Warn("Failed to invalidate library cache", zap.Error(err))
		}
		libraryStore = library.NewStore(sqliteClient, cacheClient)
	} else {
		libraryStore = library.NewStore(sqliteClient, nil)
	}

	matcher := matching.NewMatcher(matching.Config{
		ScoreThreshold: cfg.Matching.ScoreThreshold,
		KeywordWeight:  cfg.Matching.KeywordWeight,
		NameWeight:     cfg.Matching.NameWeight,
		CategoryWeight: cfg.Matching.CategoryWeight,
	})

	auditLog := audit.NewLog(sqliteClient)

	orchestratorCfg := suggestion.Config{
		ControlCoverage: suggestion.CoveragePolicy{
			MinBestConfidence: cfg.Matching.ControlCoverageScore,
			MinMatches:        cfg.Matching.ControlCoverageCount,
		},
		SupportCoverage: suggestion.CoveragePolicy{
			MinBestConfidence: cfg.Matching.SupportCoverageScore,
			MinMatches:        cfg.Matching.SupportCoverageCount,
		},
	}

	var orchestrator *suggestion.Orchestrator
	if cfg.AI.APIKey != "" {
		aiClient := ai.NewClient(
			cfg.AI.APIKey,
			cfg.AI.Model,
			cfg.AI.Temperature,
			cfg.AI.MaxTokens,
			cfg.AI.TimeoutSec,
		)
		orchestrator = suggestion.NewOrchestrator(libraryStore, matcher, aiClient, auditLog, orchestratorCfg)
	} else {
		appLogger.Warn("No AI API key configured, generative fallback disabled")
		orchestrator = suggestion.NewOrchestrator(libraryStore, matcher, nil, auditLog, orchestratorCfg)
	}

	fetcher := legislation.NewFetcher(10 * time.Second)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	feed := handlers.NewActivityFeed()

	suggestionTTL := time.Duration(cfg.Redis.TTLSec) * time.Second
	var suggestionHandler *handlers.SuggestionHandler
	if cacheClient != nil {
		suggestionHandler = handlers.NewSuggestionHandler(orchestrator, auditLog, feed, cacheClient, suggestionTTL)
	} else {
		suggestionHandler = handlers.NewSuggestionHandler(orchestrator, auditLog, feed, nil, 0)
	}
	libraryHandler := handlers.NewLibraryHandler(libraryStore, fetcher)

	api := app.Group("/api/v1")

	api.Post("/suggestions", suggestionHandler.HandleSuggest)
	api.Post("/suggestions/:id/decision", suggestionHandler.HandleDecide)
	api.Get("/suggestions/history", suggestionHandler.GetHistory)
	api.Get("/suggestions/:id", suggestionHandler.GetAuditRecord)

	api.Get("/libraries/:kind", libraryHandler.GetLibrary)
	api.Get("/legislation/reference", libraryHandler.GetLegislationReference)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/activity", websocket.New(feed.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
