package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunarlink-fsw/hss-node/internal/bussession"
	cfgpkg "github.com/lunarlink-fsw/hss-node/internal/config"
	"github.com/lunarlink-fsw/hss-node/internal/fusion"
	"github.com/lunarlink-fsw/hss-node/internal/health"
	"github.com/lunarlink-fsw/hss-node/internal/httpserver"
	"github.com/lunarlink-fsw/hss-node/internal/landing"
	"github.com/lunarlink-fsw/hss-node/internal/logging"
	"github.com/lunarlink-fsw/hss-node/internal/metrics"
)

func main() {
	// 1) 加载配置（路径可用环境变量 HSS_CONFIG 指定）
	cfg, err := cfgpkg.Load(os.Getenv("HSS_CONFIG"))
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	instanceID := uuid.NewString()
	log.Info("height sensing subsystem starting",
		zap.String("instance", instanceID),
		zap.String("env", cfg.App.Env))

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	appMetrics := metrics.NewAppMetrics(reg)
	metricsHandler := metrics.Handler(reg)

	// 4) 核心对象：融合引擎、着陆检测器、总线会话
	engine := fusion.NewEngine()
	detector := landing.New(cfg.Landing.ThresholdMetres)
	session := bussession.New(cfg.Bus, engine, detector, appMetrics, log)

	// 5) 健康检查与运维 HTTP
	agg := health.NewAggregator(health.NewBusChecker(session.Probe))
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, agg, httpserver.StatusSource{
		InstanceID: instanceID,
		Engine:     engine,
		Detector:   detector,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// 总线会话是主体；绑定失败直接退出
	sessionErr := make(chan error, 1)
	go func() { sessionErr <- session.Start(ctx) }()

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var sErr error
	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		cancel()
		sErr = <-sessionErr
	case sErr = <-sessionErr:
		cancel()
	}
	if sErr != nil && !errors.Is(sErr, context.Canceled) {
		log.Error("bus session error", zap.Error(sErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
