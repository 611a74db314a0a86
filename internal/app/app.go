// Package app assembles the HTTP API from a configuration and a set of
// repositories.
package app

import (
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinical-api/internal/config"
	"github.com/jwalitptl/clinical-api/internal/handler"
	authHandler "github.com/jwalitptl/clinical-api/internal/handler/auth"
	"github.com/jwalitptl/clinical-api/internal/handler/carerelationship"
	"github.com/jwalitptl/clinical-api/internal/handler/clinician"
	"github.com/jwalitptl/clinical-api/internal/handler/department"
	"github.com/jwalitptl/clinical-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinical-api/internal/handler/patient"
	procedureHandler "github.com/jwalitptl/clinical-api/internal/handler/procedure"
	"github.com/jwalitptl/clinical-api/internal/handler/proceduretype"
	"github.com/jwalitptl/clinical-api/internal/handler/prometheus"
	reportHandler "github.com/jwalitptl/clinical-api/internal/handler/report"
	userHandler "github.com/jwalitptl/clinical-api/internal/handler/user"
	"github.com/jwalitptl/clinical-api/internal/middleware"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/router"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	authService "github.com/jwalitptl/clinical-api/internal/service/auth"
	"github.com/jwalitptl/clinical-api/internal/service/catalog"
	"github.com/jwalitptl/clinical-api/internal/service/event"
	patientService "github.com/jwalitptl/clinical-api/internal/service/patient"
	procedureService "github.com/jwalitptl/clinical-api/internal/service/procedure"
	reportService "github.com/jwalitptl/clinical-api/internal/service/report"
	userService "github.com/jwalitptl/clinical-api/internal/service/user"
	"github.com/jwalitptl/clinical-api/pkg/auth"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
	"github.com/jwalitptl/clinical-api/pkg/security"
)

type Options struct {
	// Registry receives the application collectors. Nil leaves them
	// unregistered and disables the metrics endpoint.
	Registry *promclient.Registry
	// Now overrides the clock of the services that validate times.
	Now func() time.Time
}

type App struct {
	Engine  *gin.Engine
	Metrics *metrics.Metrics
}

// New wires services and handlers over repos.
func New(cfg *config.Config, repos repository.Repositories, opts Options) *App {
	var reg promclient.Registerer
	if opts.Registry != nil {
		reg = opts.Registry
	}
	m := metrics.New(cfg.Metrics.Namespace, reg)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	guard := access.NewGuard(m)
	resolver := access.NewResolver(repos.Users, repos.Clinicians, repos.Patients, cfg.Auth.AdminGroup)
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())

	var events *event.EventService
	if cfg.Outbox.Enabled {
		events = event.NewEventService(repos.Outbox)
	}

	authSvc := authService.NewService(repos.Users, tokens, hasher)
	userSvc := userService.NewService(repos.Users, hasher, guard)
	patientSvc := patientService.NewService(repos.Patients, repos.CareRelationships, guard, events, patientService.WithClock(now))
	catalogSvc := catalog.NewService(repos, patientSvc, guard, catalog.WithClock(now))
	procedureSvc := procedureService.NewService(repos, guard, events, m, procedureService.WithClock(now))
	reportSvc := reportService.NewService(repos.Departments, repos.ProcedureTypes, repos.Reports, guard, m)

	base := handler.NewBaseHandler(httputil.Limits{
		Default: cfg.Pagination.DefaultLimit,
		Max:     cfg.Pagination.MaxLimit,
	}, guard)

	var limit rate.Limit
	if cfg.RateLimit.Enabled {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	r := router.NewRouter(router.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimit:      limit,
		RateBurst:      cfg.RateLimit.Burst,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPath:    cfg.Metrics.Path,
	}, m, middleware.NewAuthMiddleware(authSvc, resolver))

	r.WithHealth(health.NewHandler(repos.Ping))
	if cfg.Metrics.Enabled && opts.Registry != nil {
		r.WithMetrics(prometheus.New(opts.Registry))
	}

	r.Public(authHandler.NewHandler(base, authSvc))
	r.Protected(
		userHandler.NewHandler(base, userSvc),
		department.NewHandler(base, catalogSvc),
		clinician.NewHandler(base, catalogSvc),
		patientHandler.NewHandler(base, patientSvc),
		carerelationship.NewHandler(base, catalogSvc),
		proceduretype.NewHandler(base, catalogSvc),
		reportHandler.NewHandler(base, reportSvc),
		procedureHandler.NewHandler(base, procedureSvc),
	)

	return &App{Engine: r.Setup(), Metrics: m}
}
