package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"

	connectorapp "github.com/erpsync/backend/internal/application/connector"
	identityapp "github.com/erpsync/backend/internal/application/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/auth"
	"github.com/erpsync/backend/internal/infrastructure/cache"
	"github.com/erpsync/backend/internal/infrastructure/config"
	"github.com/erpsync/backend/internal/infrastructure/erp"
	"github.com/erpsync/backend/internal/infrastructure/logger"
	"github.com/erpsync/backend/internal/infrastructure/persistence"
	"github.com/erpsync/backend/internal/infrastructure/ratelimit"
	"github.com/erpsync/backend/internal/infrastructure/scheduler"
	"github.com/erpsync/backend/internal/infrastructure/telemetry"
	"github.com/erpsync/backend/internal/infrastructure/vault"
	"github.com/erpsync/backend/internal/interfaces/http/handler"
	"github.com/erpsync/backend/internal/interfaces/http/middleware"
	"github.com/erpsync/backend/internal/interfaces/http/router"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ERP sync control plane",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database connection with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Telemetry.Enabled {
		if err := db.DB.Use(otelgorm.NewPlugin()); err != nil {
			log.Warn("Failed to enable GORM tracing", zap.Error(err))
		}
	}

	// Credential vault
	credentialVault, err := vault.New(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Tracing
	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 10*time.Second)
	tracerProvider, err := telemetry.NewTracerProvider(tracerCtx, cfg.Telemetry, log)
	tracerCancel()
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	entityRepo := persistence.NewGormEntityRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)

	// Idempotency store. The Redis backend shares one client with the
	// health endpoint; other backends leave it nil.
	var redisClient *redis.Client
	var idempotencyStore shared.IdempotencyStore
	if cfg.Idempotency.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		pingCancel()
		idempotencyStore = cache.NewRedisIdempotencyStoreWithClient(redisClient, "")
		log.Info("Using Redis idempotency store")
	} else {
		idempotencyStore, err = cache.NewIdempotencyStore(cfg.Idempotency, cfg.Redis, db.DB, log)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
	}

	// Identity services
	jwtService := auth.NewJWTService(cfg.JWT)
	authGate := identityapp.NewAuthGate(userRepo, jwtService, cfg.SystemAuth, log)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)

	// Connector services
	registry := erp.NewRegistry()
	auditService := connectorapp.NewAuditService(auditRepo, log)
	limiter := ratelimit.New(db.DB, cfg.RateLimit, log)
	admission := connectorapp.NewAdmissionControl(limiter, idempotencyStore, cfg.Idempotency.TTL, auditService, log)
	tokenService := connectorapp.NewTokenService(integrationRepo, registry, credentialVault, auditService, log)
	integrationService := connectorapp.NewIntegrationService(integrationRepo, entityRepo, registry, credentialVault, auditService, log)
	syncService := connectorapp.NewSyncService(integrationRepo, entityRepo, jobRepo, registry, credentialVault, tokenService, admission, nil, auditService, log)

	// Background scheduler
	sched, err := scheduler.NewScheduler(cfg.Scheduler, syncService, tokenService, idempotencyStore, log)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Duration("sweep_interval", cfg.Scheduler.SweepInterval),
		)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request ID first so every later log line carries
	// it, recovery before anything that can panic, then auth. The write
	// guard must run after Auth because it reads the resolved principal.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	authCfg := middleware.DefaultAuthConfig(authGate)
	authCfg.Logger = log
	engine.Use(middleware.AuthWithConfig(authCfg))
	engine.Use(middleware.RequireElevatedForWrites(authGate))

	systemHandler := handler.NewSystemHandler(db, redisClient, version)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine).
		Register(systemHandler).
		Register(handler.NewAuthHandler(authService)).
		Register(handler.NewIntegrationHandler(integrationService, tokenService)).
		Register(handler.NewSyncHandler(syncService)).
		Register(handler.NewAuditHandler(auditService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Stop(ctx); err != nil {
			log.Error("Scheduler did not stop cleanly", zap.Error(err))
		}
	}

	// Drain pending audit writes before the process exits
	auditService.Flush()

	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
