package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medtracker-api/internal/handler/health"
	"github.com/jwalitptl/medtracker-api/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker-api/internal/middleware"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/event"
	"github.com/jwalitptl/medtracker-api/pkg/httputil"
	"github.com/jwalitptl/medtracker-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type EventHandler interface {
	Handler
	event.EventHandler
}

type Router struct {
	engine       *gin.Engine
	medicationH  EventHandler
	doseLogH     EventHandler
	noteH        EventHandler
	healthH      *health.Handler
	metricsH     *prometheus.Handler
	eventTracker *event.EventTrackerMiddleware
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// RateLimit of zero disables per-client limiting.
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

// NewRouter builds the engine and its global middleware. metricsH may be nil
// when metrics are disabled.
func NewRouter(
	medicationH EventHandler,
	doseLogH EventHandler,
	noteH EventHandler,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	eventTracker *event.EventTrackerMiddleware,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	validator.RegisterGinRules()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithStatus(c, http.StatusNotFound, "resource not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.MethodNotAllowed("method not allowed"))
	})

	r := &Router{
		engine:       engine,
		medicationH:  medicationH,
		doseLogH:     doseLogH,
		noteH:        noteH,
		healthH:      healthH,
		metricsH:     metricsH,
		eventTracker: eventTracker,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if metricsH != nil {
		engine.Use(metricsH.Middleware())
	}
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(config.RequestTimeout))
	}

	engine.Use(middleware.CORS(config.CORSConfig))
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}
	engine.Use(middleware.SecurityHeaders(middleware.DefaultSecurityConfig()))

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	r.medicationH.RegisterRoutesWithEvents(api, r.eventTracker)
	r.doseLogH.RegisterRoutesWithEvents(api, r.eventTracker)
	r.noteH.RegisterRoutesWithEvents(api, r.eventTracker)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	if r.healthH != nil {
		r.healthH.RegisterRoutes(rg)
	}
	if r.metricsH != nil {
		rg.GET("/health/metrics", r.metricsH.Handler())
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
