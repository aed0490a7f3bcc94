package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/recall/internal/logger"
)

// Option configures a Router.
type Option func(*Router)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(r *Router) {
		r.metrics = h
	}
}

// WithMCP mounts the streamable MCP handler at /mcp.
func WithMCP(h http.Handler) Option {
	return func(r *Router) {
		r.mcp = h
	}
}

// WithAllowedOrigins restricts cross-origin requests to the given origins.
// Without it any origin may call the API.
func WithAllowedOrigins(origins ...string) Option {
	return func(r *Router) {
		r.origins = append(r.origins, origins...)
	}
}

// Router is the HTTP front of recall.
type Router struct {
	engine  *gin.Engine
	handler *handler
	metrics http.Handler
	mcp     http.Handler
	origins []string
}

// New creates a router serving the given ports.
func New(ports *Ports, opts ...Option) (*Router, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:  gin.New(),
		handler: &handler{ports: ports},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r, nil
}

// Engine returns the gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(recovery())
	r.engine.Use(requestID())
	r.engine.Use(accessLog())
	r.engine.Use(cors.New(r.corsConfig()))
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(r.origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = r.origins
	}
	return cfg
}

func (r *Router) setupRoutes() {
	h := r.handler

	r.engine.GET("/health", h.health)

	// Conversation endpoint of the chat frontend.
	r.engine.POST("/query", h.query)

	if r.metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.metrics))
	}
	if r.mcp != nil {
		r.engine.Any("/mcp", gin.WrapH(r.mcp))
	}

	v1 := r.engine.Group("/v1")
	{
		v1.POST("/ask", h.ask)
		v1.POST("/retrieve", h.retrieve)

		if h.ports.Index != nil {
			v1.GET("/index", h.stats)
			v1.POST("/index/rebuild", h.rebuild)
			v1.GET("/sources", h.sources)
			v1.DELETE("/sources/:id", h.removeSource)
		}
		if h.ports.Polls != nil {
			v1.GET("/polls", h.polls)
		}
	}
}
