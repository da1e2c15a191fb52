package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/lunarlink-fsw/hss-node/internal/config"
	"github.com/lunarlink-fsw/hss-node/internal/fusion"
	"github.com/lunarlink-fsw/hss-node/internal/health"
	"github.com/lunarlink-fsw/hss-node/internal/landing"
)

// Server 运维 HTTP 服务封装。总线契约之外的观测面：
// 健康检查、就绪检查、当前融合状态与 Prometheus 指标。
type Server struct {
	srv *http.Server
}

// StatusSource /statusz 数据来源
type StatusSource struct {
	InstanceID string
	Engine     *fusion.Engine
	Detector   *landing.Detector
}

// New 创建并配置 Gin + HTTP Server，注册健康检查、状态与指标路由
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, agg *health.Aggregator, status StatusSource) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, agg.BuildReport(c.Request.Context()))
	})
	r.GET("/readyz", func(c *gin.Context) {
		if agg.Ready(c.Request.Context()) {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	r.GET("/statusz", func(c *gin.Context) {
		snap := status.Engine.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"instance": status.InstanceID,
			"state":    status.Detector.State().String(),
			"fusion":   snap,
		})
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
