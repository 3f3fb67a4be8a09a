package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/srimap/internal/pkg/metrics"
)

const (
	queryTimeout = 15 * time.Second
	chatTimeout  = 60 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Datasets
	v1.Get("/datasets", ListDatasetsHandler(deps))
	v1.Get("/datasets/:id", timeout.NewWithContext(GetDatasetHandler(deps), queryTimeout))
	v1.Get("/datasets/:id/features", timeout.NewWithContext(DatasetFeaturesHandler(deps), queryTimeout))
	v1.Get("/datasets/:id/stats", timeout.NewWithContext(DatasetStatsHandler(deps), queryTimeout))
	v1.Get("/datasets/:id/summary", timeout.NewWithContext(DatasetSummaryHandler(deps), queryTimeout))
	v1.Get("/datasets/:id/nearby", timeout.NewWithContext(NearbyHandler(deps), queryTimeout))
	v1.Get("/datasets/:id/search", timeout.NewWithContext(SearchLocationHandler(deps), queryTimeout))
	v1.Get("/datasets/:id/query", timeout.NewWithContext(QueryPropertyHandler(deps), queryTimeout))
	v1.Get("/search", timeout.NewWithContext(SearchAllHandler(deps), queryTimeout))
	v1.Get("/classify", ClassifyHandler())
	v1.Post("/cache/clear", ClearCacheHandler(deps))

	// Chat
	v1.Post("/chat/sessions", CreateSessionHandler(deps))
	v1.Put("/chat/sessions/:id/location", SetLocationHandler(deps))
	v1.Delete("/chat/sessions/:id/location", ClearLocationHandler(deps))
	v1.Post("/chat/sessions/:id/messages", timeout.NewWithContext(AskHandler(deps), chatTimeout))
	v1.Get("/chat/sessions/:id/history", timeout.NewWithContext(HistoryHandler(deps), queryTimeout))
	v1.Delete("/chat/sessions/:id", CloseSessionHandler(deps))

	// Raw files as fetched by the original map front end
	app.Get("/data/:file",
		DeprecationMiddleware(legacySunset, legacySuccessor(deps)),
		timeout.NewWithContext(LegacyDataHandler(deps), queryTimeout),
	)

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), chatTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

	// WebSocket chat
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(ChatWebSocketHandler(deps.Chat)))

	// Map front end
	if deps.WebDir != "" {
		app.Static("/", deps.WebDir, fiber.Static{Compress: true, Index: "index.html"})
	}
}
