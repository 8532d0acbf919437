package router

import (
	"context"

	"school-registration/internal/api/handlers"
	"school-registration/internal/api/middleware"
	"school-registration/internal/auth"
	"school-registration/internal/config"
	"school-registration/internal/infrastructure/cache"
	"school-registration/internal/infrastructure/database"
	"school-registration/internal/infrastructure/report"
	"school-registration/internal/infrastructure/repository"
	"school-registration/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes mounts the family and admin APIs. Access checks run before
// the view cache so a cached page is never served to a caller who could not
// have loaded it.
func registerRoutes(v1 *gin.RouterGroup, deps Dependencies) {
	registrationHandler := handlers.NewRegistrationHandler(deps.Registrations)
	requestHandler := handlers.NewChangeRequestHandler(deps.Requests)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments, deps.Reports)

	viewCache := middleware.ViewCache(deps.Cache, deps.ViewTTL)
	idempotent := middleware.Idempotency(deps.Cache, deps.IdempotencyTTL)

	v1.Use(middleware.Authenticate(deps.Tokens))

	families := v1.Group("/families/:family_id")
	families.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleFamily), middleware.FamilyAccess("family_id"))
	{
		families.POST("/registrations", idempotent, registrationHandler.Register)
		families.GET("/registrations", viewCache, registrationHandler.ListFamilyRegistrations)
		families.POST("/requests", idempotent, requestHandler.Submit)
		families.GET("/seasons/:season_id/balance", registrationHandler.EffectiveBalance)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/registrations/:reg_id/drop", idempotent, registrationHandler.Drop)

		requests := admin.Group("/requests/:request_id")
		{
			requests.POST("/approve", idempotent, requestHandler.Approve)
			requests.POST("/reject", idempotent, requestHandler.Reject)
			requests.POST("/undo", requestHandler.Undo)
		}

		admin.POST("/families/:family_id/checks", idempotent, paymentHandler.ApplyCheck)
		admin.GET("/families/:family_id/balances", viewCache, registrationHandler.ListFamilyBalances)
		admin.DELETE("/balances/:balance_id", paymentHandler.RemoveBalance)

		admin.GET("/seasons/:season_id/registrations", viewCache, registrationHandler.ListSeasonRegistrations)
		admin.GET("/seasons/:season_id/balances", paymentHandler.SeasonBalances)
	}
}

// NewRegistrationRouter wires repositories and services over db and returns
// the HTTP API. responseCache may be nil.
func NewRegistrationRouter(db *gorm.DB, responseCache *cache.RedisCache, cfg *config.Config) (*gin.Engine, error) {
	fees, err := cfg.Fees.Schedule()
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL())
	if err != nil {
		return nil, err
	}
	reporter, err := report.FromGorm(db)
	if err != nil {
		return nil, err
	}

	deps := Dependencies{
		Tokens:         tokens,
		ViewTTL:        cfg.Cache.ViewTTLDuration(),
		IdempotencyTTL: cfg.Cache.IdempotencyTTLDuration(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health: map[string]handlers.Pinger{
			"database": func(context.Context) error { return database.HealthCheck(db) },
		},
	}

	var opts []service.Option
	if responseCache != nil {
		deps.Cache = responseCache
		deps.Health["cache"] = responseCache.Health
		opts = append(opts, service.WithRevalidator(responseCache))
	}

	uow := repository.NewUnitOfWork(db)
	deps.Registrations = service.NewRegistrationService(uow, fees, opts...)
	deps.Requests = service.NewChangeRequestService(uow, fees, opts...)
	deps.Payments = service.NewPaymentService(uow, fees, opts...)
	deps.Reports = service.NewReportService(uow, reporter)

	return NewRouter(deps), nil
}

