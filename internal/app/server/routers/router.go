package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/request"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/notification"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/order"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/scan"
	"github.com/gorbenco03/curatire-backend/internal/app/server/middlewares"
)

// Options 路由配置
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Logger      logger.Logger
}

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	opts Options,
	orderHandler *order.OrderHandler,
	scanHandler *scan.ScanHandler,
	notificationHandler *notification.NotificationHandler,
) *gin.Engine {
	request.RegisterValidators()

	r := gin.New()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.CORS(opts.CORSOrigins))
	r.Use(middlewares.Logger(opts.Logger))
	r.Use(middlewares.ErrorHandler(opts.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "curatire-backend",
			"message": "Service is running",
		})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middlewares.Auth(opts.JWTSecret))
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/attention", orderHandler.Attention)
			orders.GET("/items/:itemCode", orderHandler.ItemByCode)
			orders.POST("/scan-by-code", scanHandler.ScanByCode)
			orders.POST("/scan", scanHandler.Scan)
			orders.GET("/:id", orderHandler.Get)
			orders.PATCH("/:id/status", orderHandler.UpdateStatus)
			orders.GET("/:id/items/:itemId/status", orderHandler.ItemStatus)
			orders.PATCH("/:id/items/:itemId/ready", orderHandler.MarkItemReady)
		}

		scans := v1.Group("/scans")
		{
			scans.GET("/history", scanHandler.History)
			scans.GET("/stats", scanHandler.Stats)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("/pending", notificationHandler.Pending)
			notifications.GET("/:orderNumber/status", notificationHandler.Status)
			notifications.POST("/:orderNumber/send", notificationHandler.Send)

			admin := notifications.Group("", middlewares.RequireElevated())
			admin.POST("/bulk", notificationHandler.Bulk)
			admin.GET("/smtp/check", notificationHandler.CheckSMTP)
		}
	}

	return r
}
