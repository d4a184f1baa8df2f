package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/restgate/agent/internal/api/middleware"
	"github.com/restgate/agent/internal/config"
	"github.com/restgate/agent/internal/cookies"
	"github.com/restgate/agent/internal/executor"
	agenthttp "github.com/restgate/agent/internal/http"
	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/monitoring"
	"github.com/restgate/agent/internal/pairing"
	"github.com/restgate/agent/internal/shared/paths"
	"github.com/restgate/agent/internal/store"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	srv     *http.Server
	pairing *pairing.Manager
	logger  *logging.Logger
	config  *config.Config
}

// New assembles the agent: storage, pairing, cookie jars, executor and the
// management routes.
func New(cfg *config.Config, layout paths.Layout, logger *logging.Logger) (*Server, error) {
	if err := layout.Ensure(); err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	st := store.Open(layout.SettingsFile, logger.Named("store"))
	pair := pairing.New(st, logger.Named("pairing"))
	jars := cookies.NewStore(layout, logger.Named("cookies"))
	exec := executor.New(logger.Named("executor"), metrics)

	handlers := agenthttp.NewHandlers(pair, st, jars, exec, metrics,
		logger.Named("api"), cfg.Server.Host, cfg.Server.Port)

	if !cfg.Logging.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.Named("api")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowAnyOrigin: cfg.CORS.AllowAnyOrigin,
	}))

	router.GET("/health", handlers.Health)
	router.GET("/pair", handlers.GetPair)
	router.POST("/pair", handlers.PostPair)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry(), promhttp.HandlerOpts{})))

	gated := router.Group("/", middleware.RequireToken(pair))
	gated.GET("/config", handlers.GetConfig)
	gated.POST("/config", handlers.PostConfig)
	gated.POST("/send", handlers.Send)
	gated.GET("/jars/:id", handlers.GetJar)
	gated.DELETE("/jars/:id", handlers.DeleteJar)
	gated.POST("/jars/:id/set-cookies", handlers.SetCookies)
	gated.POST("/cookies/resolve", handlers.ResolveCookies)

	return &Server{
		router:  router,
		pairing: pair,
		logger:  logger,
		config:  cfg,
		srv: &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

// PairCode exposes the initial pairing code so cmd/agent can print it.
func (s *Server) PairCode() string {
	return s.pairing.Code()
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the listener and blocks until the server stops. The http.Server
// is created in New, so Close always sees it even when a shutdown signal
// arrives before the listener is up.
func (s *Server) Run() error {
	s.logger.Info("management API listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the listener down gracefully.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
