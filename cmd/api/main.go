package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/samirrijal/srimap/internal/adapters/filesystem"
	"github.com/samirrijal/srimap/internal/adapters/gemini"
	"github.com/samirrijal/srimap/internal/adapters/http"
	"github.com/samirrijal/srimap/internal/adapters/httpsource"
	natsadapter "github.com/samirrijal/srimap/internal/adapters/nats"
	"github.com/samirrijal/srimap/internal/adapters/postgres"
	"github.com/samirrijal/srimap/internal/adapters/valkey"
	"github.com/samirrijal/srimap/internal/core/ports"
	"github.com/samirrijal/srimap/internal/core/usecases"
	"github.com/samirrijal/srimap/internal/pkg/config"
	"github.com/samirrijal/srimap/internal/pkg/geospatial"
	"github.com/samirrijal/srimap/internal/pkg/logging"
	"github.com/samirrijal/srimap/internal/pkg/retry"
	"github.com/samirrijal/srimap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("srimap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Dataset source
	var source ports.DatasetSource
	if cfg.Data.BaseURL != "" {
		source = httpsource.New(cfg.Data.BaseURL, 30*time.Second)
		slog.Info("datasets served over http", "base_url", cfg.Data.BaseURL)
	} else {
		source = filesystem.New(cfg.Data.Dir)
		slog.Info("datasets served from disk", "dir", cfg.Data.Dir)
	}
	store := usecases.NewFeatureStore(source, cfg.Data.FileMap())

	deps := &http.Dependencies{WebDir: cfg.Web.Dir}

	// Cache
	var nearbyCache ports.CacheService
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			nearbyCache = cache
			deps.Cache = cache
		}
	}

	// NATS
	origin := instanceID()
	var events ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			deps.Events = pub
		}
	}

	// Database
	var history ports.ChatLogRepository
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			slog.Warn("database unavailable, chat history disabled", "error", err)
		} else {
			defer db.Close()
			history = postgres.NewChatRepo(db)
			deps.DB = db
		}
	}

	// Use cases
	mode, _ := geospatial.ParseCentroidMode(cfg.Query.Centroid)
	nearbySvc := usecases.NewNearbyService(store, nearbyCache, mode, cfg.Query.CacheTTL)
	datasetSvc := usecases.NewDatasetService(store, events, origin)

	chatCfg := usecases.ChatConfig{
		MinInterval: cfg.Chat.MinInterval,
		IdleTimeout: cfg.Chat.IdleTimeout,
		Retry: retry.Policy{
			MaxRetries: uint64(cfg.Chat.MaxRetries),
			BaseDelay:  cfg.Chat.BaseDelay,
			MaxDelay:   cfg.Chat.MaxDelay,
		},
	}
	var chatOpts []usecases.ChatOption
	if cfg.Gemini.APIKey != "" {
		chatOpts = append(chatOpts, usecases.WithRemote(gemini.New(gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Gemini.Timeout,
		})))
	} else {
		slog.Info("no gemini api key, unmatched questions get the help message")
	}
	if events != nil {
		chatOpts = append(chatOpts, usecases.WithEvents(events))
	}
	if history != nil {
		chatOpts = append(chatOpts, usecases.WithHistory(history))
	}
	chatSvc := usecases.NewChatService(usecases.NewAnswerer(store, nearbySvc), chatCfg, chatOpts...)
	go chatSvc.RunSweeper(ctx, time.Minute)

	deps.Datasets = datasetSvc
	deps.Nearby = nearbySvc
	deps.Chat = chatSvc

	// Peer cache invalidation
	if cfg.NATS.URL != "" {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeCacheCleared(ctx, datasetSvc.HandleRemoteClear); err != nil {
				slog.Warn("cache clear subscription failed", "error", err)
			}
		}
	}

	// Warm the cache; failures are retried on first use
	go func() {
		for id, err := range store.LoadAll(ctx) {
			slog.Warn("dataset preload failed", "dataset", id, "error", err)
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "srimap API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "instance", origin)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// instanceID names this process in cache-clear broadcasts.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "srimap"
	}
	return host + "-" + uuid.NewString()[:8]
}
