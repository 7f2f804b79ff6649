package main

import (
	"net/http"
	"time"

	"github.com/NordCoder/firmbook/internal/apperr"
	config "github.com/NordCoder/firmbook/internal/config/api"
	"github.com/NordCoder/firmbook/internal/obs"
	"github.com/NordCoder/firmbook/internal/services/api/auth"
	"github.com/NordCoder/firmbook/internal/services/api/health"
	"github.com/NordCoder/firmbook/internal/services/api/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpDeps struct {
	Usecase *auth.Usecase
	Gateway *auth.Gateway
	Health  *health.Checker
}

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, deps httpDeps) *http.Server {
	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	resp := httpx.NewResponder(cfg.App.Production(), logger)

	r := gin.New()
	r.Use(
		httpx.RequestID(),
		httpx.Recovery(resp),
		httpx.AccessLog(logger),
		httpx.CORS(httpx.CORSConfig{AllowedOrigins: cfg.Server.CORSOrigins}),
		deps.Gateway.Middleware(),
	)

	r.GET("/healthz", deps.Health.Handler())
	r.GET("/metrics", gin.WrapH(obs.MetricsHandler()))
	auth.NewServer(deps.Usecase, resp).Register(&r.RouterGroup)

	r.NoRoute(func(c *gin.Context) {
		resp.Error(c, apperr.NotFound("route"))
	})

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           obs.HTTPHandler(r, cfg.App.Name),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
