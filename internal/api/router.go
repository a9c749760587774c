package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/peaberry/peaberry-api/internal/api/handler"
	"github.com/peaberry/peaberry-api/internal/api/middleware"
	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// Deps are the services and settings the HTTP layer is built from.
type Deps struct {
	Log           zerolog.Logger
	JWTSecret     string
	WebhookSecret string

	Auth       ports.AuthService
	Cafes      ports.CafeService
	Engagement ports.EngagementService
	Users      ports.UserService
	Orphans    ports.OrphanService
	Webhooks   ports.WebhookService

	// Health maps dependency names to readiness checks.
	Health map[string]handler.Checker
	// Metrics receives the HTTP request collectors. Defaults to the global registry.
	Metrics prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	registerer := d.Metrics
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "peaberry",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	authHandler := handler.NewAuthHandler(d.Auth)
	cafeHandler := handler.NewCafeHandler(d.Cafes)
	engagementHandler := handler.NewEngagementHandler(d.Engagement)
	userHandler := handler.NewUserHandler(d.Users)
	orphanHandler := handler.NewOrphanHandler(d.Orphans)
	webhookHandler := handler.NewWebhookHandler(d.Webhooks, d.Log)
	healthHandler := handler.NewHealthHandler(d.Health)

	requireAuth := middleware.Auth(d.JWTSecret)
	optionalAuth := middleware.OptionalAuth(d.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Operational ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// --- Auth ---
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/firebase", authHandler.LoginWithFirebase)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// --- Identity provider webhook (signature instead of JWT) ---
	api.POST("/webhooks/firebase-auth", webhookHandler.FirebaseAuth,
		middleware.VerifySignature(d.WebhookSecret, d.Log))

	// --- Public catalogue ---
	api.GET("/filters", cafeHandler.Filters)
	cafes := api.Group("/cafes")
	cafes.GET("", cafeHandler.List, optionalAuth)
	cafes.GET("/map", cafeHandler.Map)
	cafes.GET("/:id", cafeHandler.Get, optionalAuth)
	cafes.GET("/:id/ratings", engagementHandler.ListRatings)

	// --- Signed-in users ---
	cafes.PUT("/:id/favorite", engagementHandler.AddFavorite, requireAuth)
	cafes.DELETE("/:id/favorite", engagementHandler.RemoveFavorite, requireAuth)
	cafes.PUT("/:id/rating", engagementHandler.Rate, requireAuth)
	cafes.DELETE("/:id/rating", engagementHandler.RemoveRating, requireAuth)

	me := api.Group("/me", requireAuth)
	me.GET("", userHandler.Me)
	me.DELETE("", userHandler.DeleteMe)
	me.GET("/favorites", engagementHandler.ListFavorites)

	// --- Admin back office ---
	admin := api.Group("/admin", requireAuth, adminOnly)
	admin.GET("/cafes", cafeHandler.AdminList)
	admin.POST("/cafes", cafeHandler.Create)
	admin.PUT("/cafes/:id", cafeHandler.Update)
	admin.PATCH("/cafes/:id/status", cafeHandler.SetStatus)
	admin.DELETE("/cafes/:id", cafeHandler.Delete)

	admin.GET("/users", userHandler.List)
	admin.GET("/users/orphaned", orphanHandler.ListOrphaned)
	admin.POST("/users/orphans/scan", orphanHandler.Scan)
	admin.POST("/users/cleanup", orphanHandler.Cleanup)
	admin.PATCH("/users/:id/role", userHandler.ChangeRole)
	admin.DELETE("/users/:id", userHandler.Delete)

	return e
}
