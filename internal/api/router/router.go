package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jazz-17/reservation-system/config"
	"github.com/jazz-17/reservation-system/internal/api/handler"
	"github.com/jazz-17/reservation-system/internal/api/middleware"
	"github.com/jazz-17/reservation-system/pkg/jwt"
	"github.com/jazz-17/reservation-system/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(logger))
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
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 20, time.Minute))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 可用性与日历（公开只读）
		v1.GET("/availability", h.Availability.Get)
		calendar := v1.Group("/calendar")
		{
			calendar.GET("/events", h.Availability.Events)
			calendar.GET("/ics", h.Availability.ICS)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 预约模块（学生端）
			reservations := authorized.Group("/reservations")
			{
				reservations.POST("", middleware.RateLimit(rdb, 10, time.Minute), h.Reservation.Create)
				reservations.GET("", h.Reservation.List)
				reservations.GET("/:id", h.Reservation.Get)
				reservations.POST("/:id/cancel", h.Reservation.Cancel)
			}

			// 管理端
			admin := authorized.Group("/admin")
			admin.Use(middleware.RoleAuth("admin"))
			{
				admin.GET("/reservations", h.AdminReservation.List)
				admin.POST("/reservations/expire-sweep", h.AdminReservation.ExpireSweep)
				admin.POST("/reservations/:id/approve", h.AdminReservation.Approve)
				admin.POST("/reservations/:id/reject", h.AdminReservation.Reject)
				admin.POST("/reservations/:id/cancel", h.AdminReservation.Cancel)
				admin.GET("/reservations/:id/artifacts", h.Artifact.ListByReservation)
				admin.GET("/reservations/:id/pdf", h.Artifact.DownloadPDF)
				admin.POST("/artifacts/:id/retry", h.Artifact.Retry)

				admin.GET("/blackouts", h.Blackout.List)
				admin.POST("/blackouts", h.Blackout.Create)
				admin.DELETE("/blackouts/:id", h.Blackout.Delete)

				admin.GET("/settings", h.Settings.Get)
				admin.PUT("/settings", h.Settings.Update)

				admin.GET("/allow-list", h.AllowList.List)
				admin.POST("/allow-list", h.AllowList.Create)
				admin.DELETE("/allow-list/:id", h.AllowList.Delete)

				admin.GET("/audit-events", h.Audit.List)
				admin.GET("/export/reservations", h.Export.ExportReservations)
			}
		}
	}

	return r
}
