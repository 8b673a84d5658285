// Package server assembles the gin engine and the HTTP server around it.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/handler"
	middleware2 "github.com/oncepay/oncepay/internal/server/middleware"
)

// SetupRouter wires middleware and routes onto a fresh engine.
func SetupRouter(handlers *handler.Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware2.RequestLogger())
	r.Use(middleware2.Logger())
	r.Use(middleware2.CORS(cfg.CORS))
	r.Use(middleware2.SecurityHeaders())

	registerRoutes(r, handlers)
	return r
}

func registerRoutes(r *gin.Engine, h *handler.Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/idempotency-keys", h.IdempotencyKey.Issue)
		v1.GET("/idempotency-keys/:key", h.IdempotencyKey.Get)
		v1.GET("/idempotency/metrics", h.IdempotencyKey.Metrics)

		v1.POST("/payments", h.Payment.Execute)
		v1.GET("/payments/:key", h.Payment.GetPayment)
	}
}

// NewHTTPServer builds the http.Server with timeouts from config.
func NewHTTPServer(engine *gin.Engine, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           engine,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

var ProviderSet = wire.NewSet(SetupRouter, NewHTTPServer)
