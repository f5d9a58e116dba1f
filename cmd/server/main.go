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

	"github.com/jazz-17/reservation-system/config"
	"github.com/jazz-17/reservation-system/internal/api/handler"
	"github.com/jazz-17/reservation-system/internal/api/router"
	"github.com/jazz-17/reservation-system/internal/repository"
	"github.com/jazz-17/reservation-system/internal/service"
	"github.com/jazz-17/reservation-system/internal/worker"
	"github.com/jazz-17/reservation-system/pkg/database"
	"github.com/jazz-17/reservation-system/pkg/jwt"
	applogger "github.com/jazz-17/reservation-system/pkg/logger"
	"github.com/jazz-17/reservation-system/pkg/mailer"
	"github.com/jazz-17/reservation-system/pkg/pdf"
	"github.com/jazz-17/reservation-system/pkg/redis"
)

// sweepLockTTL 过期扫描分布式锁的持有时长（多实例部署时防止重复扫描）
const sweepLockTTL = 5 * time.Minute

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与扫描锁功能将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Worker → Service → Handler
	repo := repository.NewRepository(db)

	settingsSvc := service.NewSettingsService(repo, logger)
	pdfWorker := worker.NewPDFWorker(repo, pdf.NewRenderer(), settingsSvc, cfg.Storage.Root, logger)
	emailWorker := worker.NewEmailWorker(repo, mailer.NewSMTPMailer(&cfg.Mail), settingsSvc, cfg.Storage.Root, logger)
	dispatcher := worker.NewDispatcher(pdfWorker, emailWorker, cfg.Worker.QueueSize, logger)

	svc := service.NewService(repo, jwtMgr, rdb, dispatcher, settingsSvc, cfg, logger)
	h := handler.NewHandler(svc, cfg.Storage.Root)

	// 7. 启动产物工作池与过期扫描
	workerCtx, workerCancel := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx, cfg.Worker.PoolSize)
	go runExpireSweep(workerCtx, svc.Reservation, rdb, cfg.Sweep.Interval, logger)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止扫描与工作池，排空队列中的存量任务
	workerCancel()
	dispatcher.Stop()

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("应用已关闭")
}

// runExpireSweep 周期扫描超时未审批的预约并自动作废。
// 有 Redis 时用分布式锁保证多实例下同一轮只扫一次；无 Redis 时直接执行。
func runExpireSweep(ctx context.Context, reservationSvc service.ReservationService,
	rdb *redis.Client, interval time.Duration, logger *zap.Logger) {

	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if rdb != nil {
			acquired, err := rdb.AcquireLock(ctx, "expire_sweep", sweepLockTTL)
			if err != nil {
				logger.Warn("获取扫描锁失败，跳过本轮", zap.Error(err))
				continue
			}
			if !acquired {
				continue
			}
		}

		if _, err := reservationSvc.ExpirePending(ctx, time.Now()); err != nil {
			logger.Error("过期扫描执行失败", zap.Error(err))
		}

		if rdb != nil {
			if err := rdb.ReleaseLock(ctx, "expire_sweep"); err != nil {
				logger.Warn("释放扫描锁失败", zap.Error(err))
			}
		}
	}
}
