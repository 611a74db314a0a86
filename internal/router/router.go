package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinical-api/internal/handler/health"
	"github.com/jwalitptl/clinical-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinical-api/internal/middleware"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
	"github.com/jwalitptl/clinical-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// RateLimit of zero disables throttling.
	RateLimit   rate.Limit
	RateBurst   int
	CORSConfig  middleware.CORSConfig
	MetricsPath string
}

type Router struct {
	engine    *gin.Engine
	config    RouterConfig
	auth      *middleware.AuthMiddleware
	health    *health.Handler
	promH     *prometheus.Handler
	public    []Handler
	protected []Handler
}

func NewRouter(config RouterConfig, m *metrics.Metrics, auth *middleware.AuthMiddleware) *Router {
	gin.SetMode(gin.ReleaseMode)
	validator.Register()

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodyBytes}),
	)

	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine: engine,
		config: config,
		auth:   auth,
	}
}

// WithHealth mounts the liveness and readiness probes.
func (r *Router) WithHealth(h *health.Handler) *Router {
	r.health = h
	return r
}

// WithMetrics exposes the prometheus registry.
func (r *Router) WithMetrics(h *prometheus.Handler) *Router {
	r.promH = h
	return r
}

// Public registers handlers reachable without a token.
func (r *Router) Public(handlers ...Handler) *Router {
	r.public = append(r.public, handlers...)
	return r
}

// Protected registers handlers behind authentication.
func (r *Router) Protected(handlers ...Handler) *Router {
	r.protected = append(r.protected, handlers...)
	return r
}

func (r *Router) Setup() *gin.Engine {
	if r.health != nil {
		r.health.RegisterRoutes(r.engine)
	}
	if r.promH != nil {
		r.promH.RegisterRoutes(r.engine, r.config.MetricsPath)
	}

	api := r.engine.Group("/api/v1")
	for _, h := range r.public {
		h.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.protected {
		h.RegisterRoutes(protected)
	}

	return r.engine
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
