package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx/errxfiber"
	"github.com/Abraxas-365/escolar/pkg/logx"
)

func main() {
	// 1. Initialize Logger
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	logx.Info("🚀 Starting Escolar OCR API Server...")

	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 2. Initialize Dependency Container
	container := NewContainer(ctx, cfg)
	defer container.Cleanup()

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "Escolar OCR API",
		DisableStartupMessage: true,
		ErrorHandler:          errxfiber.ErrorHandler(!cfg.Server.IsProduction()),
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !cfg.Server.IsProduction(),
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(container))

	// 6. Register Routes
	// /api/auth/login, /api/auth/logout, /api/auth/me
	container.AuthHandlers.RegisterRoutes(app)
	logx.Info("✓ Auth routes registered")

	// /api/ocr/*
	container.ScanHandlers.RegisterRoutes(app, container.AuthHandlers.Middleware().Authenticate())
	logx.Info("✓ OCR routes registered")

	// 7. 404 Handler
	app.Use(notFoundHandler)

	printRouteSummary()

	// 8. Workers + server, until a signal arrives
	workersDone := container.StartBackgroundServices(ctx)
	startServer(ctx, app, cfg.Server)

	cancel()
	<-workersDone
	logx.Info("✅ Server exited successfully")
}

// ============================================================================
// Handler Functions
// ============================================================================

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "escolar-ocr-api",
			"version": getEnv("APP_VERSION", "1.0.0"),
			"engine":  container.Recognizer.Engine(),
		}

		if err := container.DB.PingContext(c.Context()); err != nil {
			health["db"] = "unhealthy"
			health["db_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		if container.Redis != nil {
			if err := container.Redis.Ping(c.Context()).Err(); err != nil {
				health["redis"] = "unhealthy"
				health["redis_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["redis"] = "healthy"
			}
		}

		if c.QueryBool("check_storage", false) {
			if exists, err := container.FileSystem.Exists(c.Context(), ".health-check"); err != nil {
				health["storage"] = "unhealthy"
				health["storage_error"] = err.Error()
			} else {
				health["storage"] = "healthy"
				health["storage_accessible"] = exists
			}
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

func infoHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "Escolar OCR API",
			"version":     getEnv("APP_VERSION", "1.0.0"),
			"description": "Extracción de datos de documentos escolares",
			"engine":      container.Recognizer.Engine(),
			"endpoints": fiber.Map{
				"login":   "POST /api/auth/login",
				"process": "POST /api/ocr/process",
				"batch":   "POST /api/ocr/batch",
				"extract": "POST /api/ocr/extract",
				"jobs":    "POST /api/ocr/jobs, GET /api/ocr/jobs/:id",
				"scans":   "GET /api/ocr/scans, GET /api/ocr/scans/:id",
				"health":  "GET /health",
			},
		})
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	})
}

// ============================================================================
// Utility Functions
// ============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Auth: /api/auth/*")
	logx.Info("   ├─ OCR: /api/ocr/*")
	logx.Info("   └─ Health: /health")
}

// startServer blocks until ctx is cancelled, then drains connections.
func startServer(ctx context.Context, app *fiber.App, cfg config.ServerConfig) {
	go func() {
		logx.Info(strings.Repeat("=", 61))
		logx.Infof("🚀 Server listening on port %s", cfg.Port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", cfg.Port)
		logx.Info(strings.Repeat("=", 61))

		if err := app.Listen(":" + cfg.Port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logx.Info("🛑 Shutdown signal received, shutting down gracefully...")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
}
