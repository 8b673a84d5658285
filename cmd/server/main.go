package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/oncepay/oncepay/internal/pkg/logger"
)

func main() {
	app, cleanup, err := initializeApplication()
	if err != nil {
		log.Fatalf("initialize application: %v", err)
	}
	defer cleanup()

	if err := logger.Init(logger.OptionsFromConfig(app.Config.Log)); err != nil {
		log.Fatalf("initialize logger: %v", err)
	}
	defer logger.Sync()

	app.Sweeper.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.S().Infof("http server listening on %s", app.Server.Addr)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.S().Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.S().Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		logger.S().Warnf("http server shutdown: %v", err)
	}

	app.Cleanup()
	logger.S().Info("server stopped")
}
