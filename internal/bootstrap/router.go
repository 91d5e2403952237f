package bootstrap

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/GoSim-25-26J-441/go-sim-projects/internal/api/http"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/metrics"
	projectshttp "github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string

	Store   *Store
	Log     *slog.Logger
	Metrics *metrics.Metrics
	// Gatherer serves /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Auth resolves the request owner, e.g. auth middleware.FirebaseAuthMiddleware
	// or auth.OptionalUser.
	Auth    gin.HandlerFunc
	Limiter *projectshttp.OwnerLimiter

	SnapshotTimeout time.Duration
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))

	if len(dep.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     dep.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	var pinger httpapi.Pinger
	backend := ""
	if dep.Store != nil {
		pinger = dep.Store
		backend = dep.Store.Backend
	}
	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, backend, pinger)
	healthHandler.RegisterRoutes(r)

	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	if dep.Auth != nil {
		api.Use(dep.Auth)
	}

	projectsHandler := projectshttp.New(dep.Store, projectshttp.Options{
		Logger:          dep.Log,
		Metrics:         dep.Metrics,
		SnapshotTimeout: dep.SnapshotTimeout,
	})

	var limit gin.HandlerFunc
	if dep.Limiter != nil {
		limit = dep.Limiter.Middleware()
	}
	projectsHandler.Register(api.Group("/projects"), limit)

	return r
}
