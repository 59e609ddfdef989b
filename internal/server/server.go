package server

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/catalog"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/service"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/webhook"
)

// Server wires the lifecycle manager and its collaborators to HTTP.
type Server struct {
	manager  *service.LifecycleManager
	catalog  *catalog.Catalog
	verifier *webhook.Verifier
	logger   *slog.Logger
	health   func() map[string]string
}

// Option tweaks a Server at construction.
type Option func(*Server)

// WithHealthCheck attaches an extra health probe (the database ping)
// reported under /healthz.
func WithHealthCheck(fn func() map[string]string) Option {
	return func(s *Server) { s.health = fn }
}

func New(manager *service.LifecycleManager, cat *catalog.Catalog, verifier *webhook.Verifier, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		manager:  manager,
		catalog:  cat,
		verifier: verifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine. The webhook route stays outside the CORS
// middleware: the gateway is a server, not a browser.
func (s *Server) Router(allowedOrigins []string, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/webhooks/stripe", s.handleStripeEvent)
	r.GET("/healthz", s.handleHealth)
	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
	}))
	api.POST("/payment-intents", s.handleCreatePaymentIntent)
	api.POST("/payment-intents/cancel", s.handleCancelPaymentIntent)
	api.GET("/products", s.handleListProducts)

	return r
}
