// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"novel-journey-api/internal/config"
	"novel-journey-api/internal/interfaces/http/handler"
	"novel-journey-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health    *handler.HealthHandler
	Project   *handler.ProjectHandler
	Workflow  *handler.WorkflowHandler
	Chapter   *handler.ChapterHandler
	Retrieval *handler.RetrievalHandler
	Model     *handler.ModelHandler
	Job       *handler.JobHandler
	RateLimit gin.HandlerFunc
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine: engine,
		cfg:    cfg,
	}

	r.setupMiddleware(handlers.RateLimit)
	r.setupRoutes(handlers)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware(rateLimit gin.HandlerFunc) {
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

	r.engine.Use(middleware.Auth(r.cfg.Security.JWT, middleware.DefaultSkipPaths))

	if rateLimit != nil {
		r.engine.Use(rateLimit)
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(h Handlers) {
	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")

	// 模型目录
	v1.GET("/models", h.Model.ListModels)

	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.PUT("/:pid", h.Project.UpdateProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)
		projects.POST("/:pid/save", h.Project.SaveProject)

		// 工作流阶段
		projects.GET("/:pid/workflow", h.Workflow.GetState)
		projects.POST("/:pid/workflow/analyze", h.Workflow.AnalyzeSource)
		projects.POST("/:pid/workflow/ideas", h.Workflow.GenerateIdeas)
		projects.POST("/:pid/workflow/ideas/select", h.Workflow.SelectIdea)
		projects.POST("/:pid/workflow/blueprint", h.Workflow.GenerateBlueprint)
		projects.POST("/:pid/workflow/advance", h.Workflow.Advance)
		projects.POST("/:pid/workflow/goto", h.Workflow.GotoStage)
		projects.POST("/:pid/workflow/reset", h.Workflow.Reset)
		projects.POST("/:pid/workflow/finalize", h.Workflow.Finalize)
		projects.PUT("/:pid/workflow/models", h.Workflow.SelectModel)
		projects.PUT("/:pid/workflow/credentials", h.Workflow.SetCredential)

		// 章节生成与编辑
		projects.GET("/:pid/chapters", h.Chapter.ListChapters)
		projects.POST("/:pid/chapters/batch", h.Chapter.BatchGenerate)
		projects.GET("/:pid/chapters/:num", h.Chapter.GetChapter)
		projects.POST("/:pid/chapters/:num/regenerate", h.Chapter.RegenerateChapter)
		projects.POST("/:pid/chapters/:num/edit", h.Chapter.EditChapter)
		projects.POST("/:pid/chapters/:num/feedback", h.Chapter.AddFeedback)

		// 记忆检索调试
		projects.POST("/:pid/memory/search", h.Retrieval.Search)

		// 生成任务
		projects.GET("/:pid/jobs", h.Job.ListProjectJobs)
	}

	// 任务与批次
	v1.GET("/jobs/:jid", h.Job.GetJob)
	v1.GET("/batches/:bid/jobs", h.Job.ListBatchJobs)
}
