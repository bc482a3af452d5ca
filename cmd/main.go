package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/servicehooks/userbase/config"
	"github.com/servicehooks/userbase/internal/application"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/internal/infrastructure/localstore"
	pginfra "github.com/servicehooks/userbase/internal/infrastructure/postgres"
	"github.com/servicehooks/userbase/internal/interface/middleware"
	"github.com/servicehooks/userbase/internal/router"
	"github.com/servicehooks/userbase/pkg/demodata"
	"github.com/servicehooks/userbase/pkg/helpers"
	"github.com/servicehooks/userbase/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Backend selection happens exactly once; the chosen pair is passed
	// by reference everywhere and never swapped at runtime.
	var (
		repo repository.UserRepository
		rdb  *redis.Client
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}

		rdb = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()

		repo = pginfra.NewUserRepository(pool, rdb)
	case config.BackendLocal:
		store, err := localstore.NewStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to open local store: %v", err)
		}
		repo = localstore.NewUserRepository(store)
	default:
		log.Fatalf("unknown backend %q (want %q or %q)", cfg.Backend, config.BackendLocal, config.BackendPostgres)
	}
	logger.WithField("backend", cfg.Backend).Info("storage backend selected")

	if cfg.DemoData {
		if err := demodata.Seed(repo, 20, logger); err != nil {
			logger.WithError(err).Warn("demo data seeding failed")
		}
	}

	tokens := helpers.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
	authSvc := application.NewAuthService(repo, tokens, logger)
	userSvc := application.NewUserService(repo, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, router.Deps{
		Auth:   authSvc,
		Users:  userSvc,
		Tokens: tokens,
		Redis:  rdb,
		Logger: logger,
	})
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
