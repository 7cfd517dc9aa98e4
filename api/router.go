package api

import (
	"ddd-users/api/forum"
	"ddd-users/api/health"
	"ddd-users/api/middleware"
	"ddd-users/api/user"
	"ddd-users/config"
	metrics "ddd-users/infrastructure/metrics/prometheus"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router Route configuration
type Router struct {
	engine           *gin.Engine
	config           *config.Config
	healthController *health.Controller
	userController   *user.Controller
	forumController  *forum.Controller
	gatherer         prometheus.Gatherer
}

// NewRouter gatherer 为 nil 时不挂载 /metrics
func NewRouter(
	cfg *config.Config,
	healthController *health.Controller,
	userController *user.Controller,
	forumController *forum.Controller,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) *Router {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// order matters: request id first so every later log line carries it
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RecoveryMiddleware())
	engine.Use(middleware.LoggingMiddleware())
	if httpMetrics != nil {
		engine.Use(middleware.MetricsMiddleware(httpMetrics))
	}
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit))

	return &Router{
		engine:           engine,
		config:           cfg,
		healthController: healthController,
		userController:   userController,
		forumController:  forumController,
		gatherer:         gatherer,
	}
}

func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	{
		r.healthController.RegisterRoutes(apiGroup)
		r.userController.RegisterRoutes(apiGroup)
		r.forumController.RegisterRoutes(apiGroup)
	}

	if r.gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
