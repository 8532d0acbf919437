package router

import (
	"time"

	"school-registration/internal/api/handlers"
	"school-registration/internal/api/middleware"
	"school-registration/internal/auth"
	interfaces "school-registration/internal/interfaces/infrastructure"
	serviceInterfaces "school-registration/internal/interfaces/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services and infrastructure the HTTP API is built on.
// Cache may be nil, which turns off view caching and idempotent replays.
type Dependencies struct {
	Registrations serviceInterfaces.RegistrationService
	Requests      serviceInterfaces.ChangeRequestService
	Payments      serviceInterfaces.PaymentService
	Reports       serviceInterfaces.ReportService
	Tokens        *auth.TokenManager

	Cache          interfaces.ResponseCache
	ViewTTL        time.Duration
	IdempotencyTTL time.Duration

	AllowedOrigins []string
	Health         map[string]handlers.Pinger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.IdempotencyHeader, middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader, middleware.CacheHeader, middleware.ReplayedHeader}

	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(middleware.Logger())
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))
	r.Use(gin.Recovery())

	healthHandler := handlers.NewHealthHandler(deps.Health)
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/ready", healthHandler.ReadinessCheck)
	r.GET("/live", healthHandler.LivenessCheck)

	registerRoutes(r.Group("/api/v1"), deps)
	return r
}
