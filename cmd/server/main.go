package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"substore/api"
	"substore/config"
	"substore/internal/client"
	"substore/internal/eventbus"
	"substore/internal/repository"
	"substore/internal/scheduler"
	"substore/internal/service"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化日志
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// 3. 初始化本地缓存数据库
	db, err := repository.InitDB(cfg.Database)
	if err != nil {
		sugar.Fatalw("Failed to initialize database", "err", err)
	}

	// 4. 初始化后端客户端
	backend, err := client.New(cfg.Backend, sugar)
	if err != nil {
		sugar.Fatalw("Failed to initialize backend client", "err", err)
	}

	// 5. 初始化仓库、事件总线和服务
	repos := repository.NewRepositories(backend, db, sugar)
	bus := eventbus.NewEventBus(sugar)
	services := service.NewServices(cfg, repos, bus, sugar)

	// 6. 预热共享集合，后端不可达时由缓存兜底
	ctx := context.Background()
	if err := services.Subscription.Load(ctx); err != nil {
		sugar.Warnw("初始加载订阅失败", "err", err)
	}
	if err := services.Collection.Load(ctx); err != nil {
		sugar.Warnw("初始加载组合订阅失败", "err", err)
	}
	if err := services.Artifact.Load(ctx); err != nil {
		sugar.Warnw("初始加载产物失败", "err", err)
	}
	if err := services.File.Load(ctx); err != nil {
		sugar.Warnw("初始加载文件失败", "err", err)
	}
	if err := services.Share.Load(ctx); err != nil {
		sugar.Warnw("初始加载分享失败", "err", err)
	}

	// 7. 启动调度器
	sched := scheduler.NewScheduler(services, sugar)
	if err := sched.Init(cfg); err != nil {
		sugar.Fatalw("Failed to start scheduler", "err", err)
	}
	defer sched.Stop()

	// 8. 启动HTTP服务器
	router := api.SetupRouter(cfg, services, backend, bus, sched, sugar)

	sugar.Infow("Starting server", "address", cfg.Server.Address)
	if err := http.ListenAndServe(cfg.Server.Address, router); err != nil {
		sugar.Fatalw("Failed to start server", "err", err)
	}
}
