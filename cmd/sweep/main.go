// Command sweep runs one expiry sweep over the idempotency key store and
// exits, intended for external cron schedulers.
package main

import (
	"context"
	"log"
	"time"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/pkg/logger"
	"github.com/oncepay/oncepay/internal/repository"
	"github.com/oncepay/oncepay/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(logger.OptionsFromConfig(cfg.Log)); err != nil {
		log.Fatalf("initialize logger: %v", err)
	}
	defer logger.Sync()

	db, cleanup, err := repository.NewDB(cfg)
	if err != nil {
		logger.S().Fatalf("open database: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sweeper := service.NewSweeperService(repository.NewIdempotencyKeyRepository(db), cfg)
	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.S().Fatalf("sweep failed: %v", err)
	}
	logger.S().Infow("sweep completed", "deleted", deleted)
}
