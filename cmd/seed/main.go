package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/servicehooks/userbase/config"
	"github.com/servicehooks/userbase/internal/domain/repository"
	"github.com/servicehooks/userbase/internal/infrastructure/localstore"
	pginfra "github.com/servicehooks/userbase/internal/infrastructure/postgres"
	"github.com/servicehooks/userbase/pkg/demodata"
	"github.com/servicehooks/userbase/pkg/helpers"
)

// Seeds the configured backend with the synthetic demo user set.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)

	var repo repository.UserRepository
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pginfra.NewPool(context.Background(), cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		repo = pginfra.NewUserRepository(pool, rdb)
	default:
		store, err := localstore.NewStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to open local store: %v", err)
		}
		repo = localstore.NewUserRepository(store)
	}

	if err := demodata.Seed(repo, 20, logger); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
}
