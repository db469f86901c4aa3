package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conjuntos-api/internal/auth"
	"conjuntos-api/internal/config"
	"conjuntos-api/internal/database"
	httpapi "conjuntos-api/internal/http"
	"conjuntos-api/internal/logger"
	"conjuntos-api/internal/metrics"
	"conjuntos-api/internal/repository"
	"conjuntos-api/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "conjuntos-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	httpapi.SetExposeErrorDetails(!cfg.IsProduction())

	// Token verification: identity provider behind an optional redis cache.
	var verifier auth.TokenVerifier = auth.NewIdentityClient(cfg.Auth.VerifyURL, cfg.Auth.APIKey, log)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unavailable, token verification will not be cached", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			verifier = auth.NewCachedVerifier(verifier, auth.NewRedisKV(redisClient), log)
			log.Info("Token verification cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
		pingCancel()
	}

	// Storage: postgres when available, in-memory for local development.
	var db *sql.DB
	var conjuntosRepo repository.ConjuntosRepository
	var usersRepo repository.UsersRepository
	var reportsRepo repository.ReportsRepository
	if cfg.DBEnabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Error("Failed to connect to postgres", zap.Error(err))
			os.Exit(1)
		}
		conjuntosRepo = repository.NewPostgresConjuntosRepository(db)
		usersRepo = repository.NewPostgresUsersRepository(db)
		reportsRepo = repository.NewPostgresReportsRepository(db)
		log.Info("Postgres storage enabled",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
	} else {
		conjuntosRepo = repository.NewMemoryConjuntosRepository()
		usersRepo = repository.NewMemoryUsersRepository()
		reportsRepo = repository.NewMemoryReportsRepository()
		log.Warn("DB disabled, using in-memory storage (data is lost on restart)")
	}

	conjuntos := service.NewConjuntoService(conjuntosRepo, log)
	users := service.NewUserService(usersRepo, log)
	reports := service.NewReportService(reportsRepo, log)

	authmw := httpapi.NewAuthMiddleware(verifier, users, log)
	router := httpapi.NewRouter(log)
	router.RegisterConjuntoRoutes(httpapi.NewConjuntoHandler(conjuntos, log), authmw)
	router.RegisterUserRoutes(httpapi.NewUserHandler(users, log), authmw)
	router.RegisterReportRoutes(httpapi.NewReportHandler(reports, log), authmw)
	router.Handle("/metrics", metrics.Handler())

	var handler http.Handler = router
	handler = metrics.Middleware(handler)
	handler = httpapi.CORS(cfg.HTTP.CORSOrigin, handler)

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
