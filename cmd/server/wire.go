//go:build wireinject
// +build wireinject

package main

import (
	"net/http"

	"github.com/google/wire"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/handler"
	"github.com/oncepay/oncepay/internal/pkg/logger"
	"github.com/oncepay/oncepay/internal/repository"
	"github.com/oncepay/oncepay/internal/server"
	"github.com/oncepay/oncepay/internal/service"
)

type Application struct {
	Config  *config.Config
	Server  *http.Server
	Sweeper *service.SweeperService
	Cleanup func()
}

func initializeApplication() (*Application, func(), error) {
	wire.Build(
		config.ProviderSet,
		repository.ProviderSet,
		service.ProviderSet,
		handler.ProviderSet,
		server.ProviderSet,

		provideCleanup,

		wire.Struct(new(Application), "Config", "Server", "Sweeper", "Cleanup"),
	)
	return nil, nil, nil
}

// provideCleanup stops background services before the wire-managed resource
// cleanups close the database and redis connections.
func provideCleanup(sweeper *service.SweeperService) func() {
	return func() {
		cleanupSteps := []struct {
			name string
			fn   func()
		}{
			{"SweeperService", func() {
				if sweeper != nil {
					sweeper.Stop()
				}
			}},
		}
		for _, step := range cleanupSteps {
			step.fn()
			logger.S().Infof("[Cleanup] %s stopped", step.name)
		}
	}
}
