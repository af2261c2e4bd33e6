package routes

import (
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/handlers"
	"github.com/channelpartner/position-backend/internal/metrics"
	"github.com/channelpartner/position-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func perIPLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	positionHandler *handlers.PositionHandler,
	applicationHandler *handlers.ApplicationHandler,
	creditHandler *handlers.CreditHandler,
	locationHandler *handlers.LocationHandler,
	adHandler *handlers.AdHandler,
	userHandler *handlers.UserHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(perIPLimiter(60))

	api.Get("/health", healthHandler.Check)

	// Auth: stricter 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(perIPLimiter(10))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/forgot-password/request-otp", authHandler.RequestOTP)
	auth.Post("/forgot-password/verify-otp", authHandler.VerifyOTP)

	// Protected auth routes take the middleware per route so the group stays public.
	auth.Get("/verify", middleware.JWTProtected(cfg), authHandler.Verify)
	auth.Get("/profile", middleware.JWTProtected(cfg), authHandler.Profile)
	auth.Put("/profile", middleware.JWTProtected(cfg), authHandler.UpdateProfile)
	auth.Put("/change-password", middleware.JWTProtected(cfg), authHandler.ChangePassword)

	// Positions and reference data (public)
	api.Get("/dynamic-positions", positionHandler.Resolve)
	api.Get("/dynamic-positions/status/:positionId", positionHandler.Status)
	api.Get("/dynamic-positions/applications-by-position",
		middleware.AdminJWT(cfg), middleware.AdminRequired(db, cfg), applicationHandler.ByPosition)
	api.Get("/positions", positionHandler.List)
	api.Get("/positions/:id", positionHandler.Get)

	locations := api.Group("/locations")
	locations.Get("/all", locationHandler.All)
	locations.Get("/reverse-lookup/:value", locationHandler.ReverseLookup)
	locations.Get("/:level", locationHandler.Values)

	api.Post("/applications", applicationHandler.Submit)
	api.Get("/users/:personCode/introduced-count", userHandler.IntroducedCount)

	// Credits and ads (JWT)
	credits := api.Group("/credits", middleware.JWTProtected(cfg))
	credits.Get("/balance", creditHandler.Balance)
	credits.Get("/transactions", creditHandler.Transactions)
	credits.Post("/transfer", creditHandler.Transfer)
	credits.Post("/search-users", creditHandler.SearchUsers)

	api.Post("/ads", middleware.JWTProtected(cfg), adHandler.Create)

	// Admin panel (JWT or X-Admin-Token, then admin check)
	admin := api.Group("/admin", middleware.AdminJWT(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/dashboard", applicationHandler.Dashboard)

	admin.Get("/applications", applicationHandler.List)
	admin.Get("/applications/:id", applicationHandler.Get)
	admin.Put("/applications/:id/approve", applicationHandler.Approve)
	admin.Put("/applications/:id/reject", applicationHandler.Reject)
	admin.Put("/applications/:id/payment", applicationHandler.UpdatePayment)
	admin.Delete("/applications/:id", applicationHandler.Delete)

	admin.Get("/positions", positionHandler.List)
	admin.Post("/positions", positionHandler.Create)
	admin.Get("/positions/:id", positionHandler.Get)
	admin.Put("/positions/:id", positionHandler.Update)
	admin.Delete("/positions/:id", positionHandler.Delete)

	admin.Get("/locations", locationHandler.List)
	admin.Post("/locations", locationHandler.Create)
	admin.Post("/locations/bulk-import", locationHandler.BulkImport)
	admin.Put("/locations/:id", locationHandler.Update)
	admin.Delete("/locations/:id", locationHandler.Delete)

	admin.Get("/users/pending-verification", userHandler.PendingVerification)
	admin.Get("/user-documents/:phone", userHandler.Documents)
	admin.Put("/users/:id/verify", userHandler.SetVerified)
	admin.Post("/users/:id/credits", creditHandler.Grant)
	admin.Post("/users/:id/payment", creditHandler.ProcessPayment)
	admin.Get("/users/:id/reconcile", creditHandler.Reconcile)
}
