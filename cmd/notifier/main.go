package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorbenco03/curatire-backend/internal/app/bootstrap"
	"github.com/gorbenco03/curatire-backend/internal/app/config"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
	"github.com/gorbenco03/curatire-backend/internal/jobs"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common"
	"github.com/gorbenco03/curatire-backend/internal/worker"
)

var (
	configPath = flag.String("config", "./config/config.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(logger.Options{
		Level: cfg.App.LogLevel,
		File:  cfg.App.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()
	zapLogger.Infof(ctx, "Notifier starting: %s, env: %s", cfg.App.Name, cfg.App.Env)

	// 3. 初始化存储与通知服务
	domain, cleanup, err := bootstrap.NewDomain(ctx, cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to initialize domain: %v", err)
	}
	defer cleanup()

	// 4. 创建 Manager
	proc := jobs.GetProcess(zapLogger, &common.Deps{Notifier: domain.NotifyService})
	mgr, err := worker.NewManagerInstance(cfg.Workers, domain.Queue, proc, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 5. 启动 Manager（goroutine）
	go func() {
		if err := mgr.Start(); err != nil {
			zapLogger.Errorf(ctx, "Manager start failed: %v", err)
		}
	}()

	zapLogger.Infof(ctx, "Notifier started. Press Ctrl+C to shutdown.")

	// 6. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	zapLogger.Infof(ctx, "Received signal: %v, shutting down notifier...", sig)

	// 7. 优雅关闭 Manager
	mgr.Shutdown()

	zapLogger.Infof(ctx, "Notifier exited gracefully")
}
