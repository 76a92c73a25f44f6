// Package api exposes the digest engine over HTTP. Handlers are thin:
// they decode the request, call the engine, and map sentinel errors to
// status codes. All state lives in the engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/digest/engine"
	"github.com/xraph/digest/stream"
)

// API wires all HTTP handlers for the digest system.
type API struct {
	eng    *engine.Engine
	broker *stream.Broker
	logger *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used by the request middleware.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithBroker enables the /api/events SSE endpoint, serving lifecycle
// events from the given stream broker.
func WithBroker(b *stream.Broker) Option {
	return func(a *API) {
		a.broker = b
	}
}

// New creates an API from a digest Engine.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{eng: eng, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID())
	router.Use(recovery(a.logger))
	router.Use(requestLogger(a.logger))
	a.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers all digest API routes into the given router.
func (a *API) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", a.health)

	g := router.Group("/api")

	g.POST("/documents", a.createDocument)
	g.GET("/documents", a.listDocuments)
	g.GET("/documents/:documentId", a.getDocument)

	g.POST("/jobs", a.createJob)
	g.GET("/jobs", a.listJobs)
	g.GET("/jobs/:jobId", a.getJob)
	g.DELETE("/jobs/:jobId", a.cancelJob)

	g.POST("/estimate", a.estimateCost)
	g.GET("/providers", a.listProviders)
	g.GET("/stats", a.stats)
	g.POST("/demo/jobs", a.generateDemoJobs)
	g.GET("/events", a.streamEvents)
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
