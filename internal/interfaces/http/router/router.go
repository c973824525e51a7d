// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gutenberg-analysis-api/internal/config"
	"gutenberg-analysis-api/internal/interfaces/http/handler"
	"gutenberg-analysis-api/internal/interfaces/http/middleware"
)

// Dependencies 路由所需的应用服务
type Dependencies struct {
	Analyzer    handler.Analyzer
	Books       handler.BookCatalog
	Jobs        handler.JobService
	Health      handler.HealthChecker
	RateLimiter middleware.RateLimiter
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
	deps   Dependencies
}

// New 创建路由器并注册中间件与路由
func New(cfg *config.Config, deps Dependencies) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
		deps:   deps,
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

func (r *Router) setupRoutes() {
	health := handler.NewHealthHandler(r.cfg.App.Version, r.deps.Health)
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/live", health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 限流只作用于业务接口
	v1 := r.engine.Group("/api/v1", middleware.RateLimit(r.cfg.Security.RateLimit, r.deps.RateLimiter))
	RegisterV1Routes(v1,
		handler.NewAnalysisHandler(r.deps.Analyzer),
		handler.NewBookHandler(r.deps.Books),
		handler.NewJobHandler(r.deps.Jobs),
	)
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, analysisHandler *handler.AnalysisHandler, bookHandler *handler.BookHandler, jobHandler *handler.JobHandler) {
	a := v1.Group("/analysis")
	{
		a.GET("/tasks", analysisHandler.ListTasks)
		a.POST("/text", analysisHandler.AnalyzeText)
		a.POST("/:task", analysisHandler.AnalyzeBook)
	}

	v1.GET("/books/:id", bookHandler.GetBook)

	jobs := v1.Group("/jobs")
	{
		jobs.POST("", jobHandler.SubmitJob)
		jobs.GET("/:id", jobHandler.GetJob)
	}
}
