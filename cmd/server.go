package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"school-registration/internal/api/router"
	"school-registration/internal/config"
	"school-registration/internal/infrastructure/cache"
	"school-registration/internal/infrastructure/database"
	"school-registration/internal/infrastructure/repository"
	"school-registration/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	port        string
	skipMigrate bool
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long: `Start the registration API server.
It connects to the database, applies pending migrations, opens the redis
view cache and serves the family and admin endpoints until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Flags for server command
	serverCmd.Flags().StringVarP(&port, "port", "p", "", "Port for the server to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply migrations on startup")
}

func openCache(cfg *config.Config) *cache.RedisCache {
	if cfg.Cache.Type != "redis" {
		logger.Info("View cache disabled (cache.type=%s)", cfg.Cache.Type)
		return nil
	}

	redisCache := cache.NewRedisCache(cfg.Cache.Addr(), cfg.Cache.Password, cfg.Cache.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := redisCache.Health(ctx); err != nil {
		logger.Warn("Redis at %s unavailable, continuing without view cache: %v", cfg.Cache.Addr(), err)
		_ = redisCache.Close()
		return nil
	}
	return redisCache
}

// logActiveCycle reports which cycle registrations will be taken for.
func logActiveCycle(db *gorm.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	year, err := repository.NewSeasonRepository(db).GetActiveYear(ctx)
	switch {
	case err != nil:
		logger.Warn("Failed to look up the active cycle: %v", err)
	case year == nil:
		logger.Warn("No active season; registration is closed until one is activated")
	default:
		logger.WithField("season_id", year.SeasonID).
			Infof("Active cycle %s (%s to %s)", year.SeasonNameEn,
				year.StartDate.Format("2006-01-02"), year.EndDate.Format("2006-01-02"))
	}
}

func startServer() {
	cfg := config.Get()

	// Override port if flag is provided
	if port != "" {
		cfg.Server.Port = port
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if !skipMigrate {
		if err := database.RunMigrations(db); err != nil {
			logger.Error("Failed to run database migrations: %v", err)
			os.Exit(1)
		}
	}

	if err := database.HealthCheck(db); err != nil {
		logger.Error("Database health check failed: %v", err)
		os.Exit(1)
	}

	logActiveCycle(db)

	redisCache := openCache(cfg)
	if redisCache != nil {
		defer redisCache.Close()
	}

	r, err := router.NewRegistrationRouter(db, redisCache, cfg)
	if err != nil {
		logger.Error("Failed to build router: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:        r,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("Starting %s %s on %s", cfg.App.Name, cfg.App.Version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server exited")
}
