package api

import (
	"net/http"

	"hostexposer/internal/server/api/handler"
	"hostexposer/internal/server/api/middleware"
	"hostexposer/internal/server/auth"
	"hostexposer/internal/server/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router handles all routing logic
type Router struct {
	engine *gin.Engine
	config *config.Config
	logger *zap.Logger
}

// NewRouter creates and configures a new router. exposer serves the
// websocket endpoint the agents connect to.
func NewRouter(cfg *config.Config, svc handler.ClientService, exposer http.HandlerFunc, authenticator *auth.Authenticator, logger *zap.Logger) *Router {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		config: cfg,
		logger: logger,
	}

	m := middleware.New(cfg, logger)
	r.setupMiddleware(m)
	r.setupRoutes(m, handler.NewAPI(svc, logger), exposer, authenticator)

	return r
}

// Handler returns the HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// setupMiddleware configures all middleware
func (r *Router) setupMiddleware(m *middleware.Middleware) {
	// Basic middleware
	r.engine.Use(m.RequestID())
	r.engine.Use(m.Logger())
	r.engine.Use(m.Recovery())

	// Security middleware
	r.engine.Use(m.Secure())

	// CORS if enabled
	if r.config.API.CORS.Enabled {
		r.engine.Use(m.Cors())
	}
}

func (r *Router) setupRoutes(m *middleware.Middleware, api *handler.API, exposer http.HandlerFunc, authenticator *auth.Authenticator) {
	r.engine.GET("/healthz", api.Health)
	r.engine.GET("/expose", gin.WrapF(exposer))

	clients := r.engine.Group("/api/client")
	if r.config.API.RateLimit.Enabled {
		clients.Use(m.RateLimit())
	}
	clients.Use(m.NoCache(), m.BasicAuth(authenticator))
	api.RegisterClientRoutes(clients)
}
