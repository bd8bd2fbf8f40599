package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/bootstrap"
	"github.com/gorbenco03/curatire-backend/internal/app/config"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/notification"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/order"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/scan"
	"github.com/gorbenco03/curatire-backend/internal/app/server/routers"
)

// App HTTP 进程依赖
type App struct {
	Engine *gin.Engine
	Logger logger.Logger
}

// InitializeApp 初始化日志、存储、业务服务和路由
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	log, err := logger.NewZapLogger(logger.Options{
		Level: cfg.App.LogLevel,
		File:  cfg.App.LogFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	domain, cleanupDomain, err := bootstrap.NewDomain(context.Background(), cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	engine := routers.SetupRoutes(
		routers.Options{
			JWTSecret:   cfg.Auth.JWTSecret,
			CORSOrigins: cfg.Server.CORSOrigins,
			Logger:      log,
		},
		order.NewOrderHandler(domain.OrderService, domain.ScanService),
		scan.NewScanHandler(domain.ScanService),
		notification.NewNotificationHandler(domain.NotifyService),
	)

	cleanup := func() {
		cleanupDomain()
		_ = log.Sync()
	}

	return &App{Engine: engine, Logger: log}, cleanup, nil
}
