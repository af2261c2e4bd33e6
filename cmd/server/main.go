package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/database"
	"github.com/channelpartner/position-backend/internal/events"
	"github.com/channelpartner/position-backend/internal/handlers"
	"github.com/channelpartner/position-backend/internal/logging"
	"github.com/channelpartner/position-backend/internal/metrics"
	"github.com/channelpartner/position-backend/internal/middleware"
	"github.com/channelpartner/position-backend/internal/otp"
	"github.com/channelpartner/position-backend/internal/routes"
	"github.com/channelpartner/position-backend/internal/scheduler"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/channelpartner/position-backend/internal/sms"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateShared(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records also go to system_logs
	dbLogHandler := logging.AttachDB(database.DB)

	// OTP storage: Redis when configured, process memory otherwise
	var otpStore otp.Store
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		otpStore = otp.NewRedisStore(redisClient, cfg.OTPMaxAttempts)
		slog.Info("otp store ready", "backend", "redis")
	} else {
		otpStore = otp.NewMemoryStore(cfg.OTPMaxAttempts)
		slog.Info("otp store ready", "backend", "memory")
	}
	otpThrottle := otp.NewThrottle(30*time.Second, 1)

	var smsSender sms.Sender = sms.LogSender{}
	if cfg.SMSAPIKey != "" {
		smsSender = sms.NewFast2SMS(cfg.SMSAPIKey, cfg.SMSAPIURL, cfg.SMSTimeout)
	} else {
		slog.Warn("FAST2SMS_API_KEY not set, OTPs will only be logged")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		slog.Info("event publishing enabled", "topic", cfg.KafkaTopic)
	}

	// Services
	authService := services.NewAuthService(database.DB, cfg, otpStore, smsSender, otpThrottle)
	creditService := services.NewCreditService(database.DB, cfg, publisher)
	positionService := services.NewPositionService(database.DB, cfg)
	applicationService := services.NewApplicationService(database.DB, cfg, publisher)
	locationService := services.NewLocationService(database.DB)
	adService := services.NewAdService(database.DB, creditService, cfg)
	userService := services.NewUserService(database.DB)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(database.Ping)
	positionHandler := handlers.NewPositionHandler(positionService)
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	creditHandler := handlers.NewCreditHandler(creditService)
	locationHandler := handlers.NewLocationHandler(locationService)
	adHandler := handlers.NewAdHandler(adService)
	userHandler := handlers.NewUserHandler(userService)

	// Background jobs
	jobs := scheduler.New(database.DB, otpStore, otpThrottle)
	if err := jobs.Register(cfg.OTPSweepInterval); err != nil {
		slog.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(metrics.Middleware())
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB,
		authHandler, healthHandler, positionHandler, applicationHandler,
		creditHandler, locationHandler, adHandler, userHandler,
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	jobs.Stop(stopCtx)
	cancel()
	authService.Wait()

	if err := publisher.Close(); err != nil {
		slog.Error("event publisher close error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
