package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-asset/backend/config"
	"campus-asset/backend/internal/api/handler"
	"campus-asset/backend/internal/api/router"
	"campus-asset/backend/internal/repository"
	"campus-asset/backend/internal/service"
	"campus-asset/backend/pkg/database"
	"campus-asset/backend/pkg/jwt"
	"campus-asset/backend/pkg/kvstore"
	applogger "campus-asset/backend/pkg/logger"
	"campus-asset/backend/pkg/redis"
	"campus-asset/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ASSET_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库（仅 store.driver=postgres 时需要）
	var db *gorm.DB
	if cfg.Store.Driver == "postgres" {
		db, err = database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		logger.Info("数据库连接成功")
	}

	// 4. 连接 Redis：redis 存储必需；否则仅用于限流，连接失败降级运行
	var rdb *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Feature.RateLimit > 0 {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			if cfg.Store.Driver == "redis" {
				logger.Fatal("Redis 连接失败", zap.Error(err))
			}
			logger.Warn("Redis 连接失败，接口限流将不可用", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 打开键值存储
	deps := kvstore.Deps{
		DB:            db,
		ChannelPrefix: cfg.Redis.ChannelPrefix,
		Logger:        applogger.Component(logger, "kvstore"),
	}
	if rdb != nil {
		deps.Redis = rdb.Raw()
	}
	store, err := kvstore.Open(&cfg.Store, deps)
	if err != nil {
		logger.Fatal("打开键值存储失败", zap.Error(err))
	}

	// 6. 附件文件存储（可选）
	var files storage.FileStorage
	if cfg.MinIO.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mc, err := storage.NewMinioStorage(ctx, &cfg.MinIO, applogger.Component(logger, "storage"))
		cancel()
		if err != nil {
			logger.Fatal("对象存储初始化失败", zap.Error(err))
		}
		files = mc
	} else {
		logger.Warn("未配置对象存储，附件只保存元数据")
	}

	// 7. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 8. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(store, cfg.Store.KeyPrefix, cfg.Audit.MaxEntries)
	svc := service.NewService(cfg, repo, files, applogger.Component(logger, "service"))
	h := handler.NewHandler(svc, store, repo, applogger.Component(logger, "events"))

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	// WriteTimeout 为 0：变更推送是长连接，下载大附件也不应被截断
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		logger.Error("关闭键值存储失败", zap.Error(err))
	}

	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
