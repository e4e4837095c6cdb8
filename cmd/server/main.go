// ============================================================================
// MAIN.GO - APPLICATION ENTRY POINT
// ============================================================================
// Startup flow:
// config → logger → sentry → postgres (+ migrations) → redis (optional) →
// catalog → services → live feed → handlers → router → server
//
// Shutdown drains HTTP, waits for detached view upserts, then closes the
// pools and flushes Sentry.
// ============================================================================

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"product-views/internal/catalog"
	"product-views/internal/config"
	"product-views/internal/format"
	httpHandler "product-views/internal/handler/http"
	"product-views/internal/repository/postgres"
	redisrepo "product-views/internal/repository/redis"
	"product-views/internal/service"
	"product-views/pkg/logger"

	"github.com/getsentry/sentry-go"
)

func main() {
	// ========================================================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================================================
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// ========================================================================
	// STEP 2: INITIALIZE STRUCTURED LOGGER AND ERROR REPORTING
	// ========================================================================
	appLogger := logger.New(cfg.App.LogLevel)
	appLogger.Info("Starting Product Views",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"upsert_strategy", cfg.App.UpsertStrategy,
	)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.App.Environment,
			Debug:       !cfg.App.IsProduction(),
		}); err != nil {
			log.Fatalf("Failed to initialize Sentry: %v", err)
		}
		defer sentry.Flush(cfg.Sentry.FlushTimeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// STEP 3: INITIALIZE DATABASE CONNECTION POOL
	// ========================================================================
	db, err := postgres.InitDB(
		ctx,
		cfg.Database.DatabaseDSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		appLogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	appLogger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			appLogger.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
		appLogger.Info("Database migrations applied")
	}

	// ========================================================================
	// STEP 4: CATALOG AND OPTIONAL REDIS LAYER
	// ========================================================================
	// Redis serves two roles: product cache and the per-session view guard.
	// Without it the catalog is called directly and the guard is in-process.
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)

	var (
		products httpHandler.ProductSource = catalogClient
		guard    service.ViewGuard         = service.NewMemoryViewGuard(cfg.App.ViewGuardTTL)
		cache    *redisrepo.Cache
	)

	if cfg.Redis.Enabled {
		redisClient, err := redisrepo.InitRedis(ctx, cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without cache", "error", err)
		} else {
			defer redisClient.Close()
			cache = redisrepo.NewCache(redisClient, cfg.Redis.CacheTTL)
			products = catalog.NewCachedSource(catalogClient, cache, appLogger.Logger)
			guard = redisrepo.NewViewGuard(redisClient, cfg.App.ViewGuardTTL)
			appLogger.Info("Redis connection established")
		}
	}

	// ========================================================================
	// STEP 5: DEPENDENCY INJECTION
	// ========================================================================
	// Database Pool → Repository → Services → Handler
	strategy, err := service.ParseUpsertStrategy(cfg.App.UpsertStrategy)
	if err != nil {
		appLogger.Error("Invalid upsert strategy", "error", err)
		os.Exit(1)
	}

	formatter, err := format.New(cfg.App.DisplayLocale, cfg.App.DisplayTimezone)
	if err != nil {
		appLogger.Error("Invalid display settings", "error", err)
		os.Exit(1)
	}

	logRepo := postgres.NewLogRepository(db)
	viewService := service.NewViewService(logRepo, products, cfg.App.BaseURL, strategy, appLogger.Logger)
	feedLogger := appLogger.WithFields(map[string]any{"component": "live_feed"}).Logger
	feed := service.NewLogFeed(logRepo, postgres.NewChangeFeed(db, feedLogger), cfg.App.LivePollInterval, feedLogger)

	handler, err := httpHandler.NewHandler(httpHandler.Deps{
		Views:        viewService,
		Products:     products,
		Guard:        guard,
		Feed:         feed,
		Formatter:    formatter,
		Logger:       appLogger,
		StoreBaseURL: cfg.Catalog.BaseURL,
	})
	if err != nil {
		appLogger.Error("Failed to build handlers", "error", err)
		os.Exit(1)
	}

	handler.AddReadinessCheck("postgres", db)
	if cache != nil {
		handler.AddReadinessCheck("redis", cache)
	}

	// ========================================================================
	// STEP 6: ROUTES AND MIDDLEWARE
	// ========================================================================
	router := httpHandler.NewRouter(handler, appLogger, httpHandler.RouterOptions{
		EnableMetrics: cfg.App.EnableMetrics,
		SentryTimeout: cfg.Sentry.FlushTimeout,
		APITimeout:    cfg.Server.WriteTimeout,
	})

	// ========================================================================
	// STEP 7: CREATE AND START HTTP SERVER
	// ========================================================================
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Live streams never go idle, so Shutdown ends them explicitly. In-flight
	// requests keep their own contexts and are drained.
	server.RegisterOnShutdown(handler.CloseStreams)

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	// ========================================================================
	// STEP 8: GRACEFUL SHUTDOWN
	// ========================================================================
	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down server...")
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Detail pages may still be writing their view
	handler.Wait()

	appLogger.Info("Server exited gracefully")
}
