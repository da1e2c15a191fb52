// Package bussession 实现 HSS 在 MoonWire 总线上的会话：
// 绑定入站 UDP 端点，单循环串行地 解码 -> 融合 -> 着陆判定 -> 回发，
// 出站报文发往总线路由器。处理顺序严格等于收包顺序，
// HEIGHT 的发出顺序因此与 LASER_ALTIMETER 的到达顺序一致。
package bussession

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cfgpkg "github.com/lunarlink-fsw/hss-node/internal/config"
	"github.com/lunarlink-fsw/hss-node/internal/fusion"
	"github.com/lunarlink-fsw/hss-node/internal/landing"
	"github.com/lunarlink-fsw/hss-node/internal/metrics"
	"github.com/lunarlink-fsw/hss-node/internal/protocol/moonwire"
)

// readDeadline 周期性放开阻塞读以便检查 ctx 取消
const readDeadline = 100 * time.Millisecond

// Session MoonWire 总线会话
type Session struct {
	cfg      cfgpkg.BusConfig
	log      *zap.Logger
	m        *metrics.AppMetrics
	registry *moonwire.Registry
	engine   *fusion.Engine
	detector *landing.Detector

	conn   *net.UDPConn
	router *net.UDPAddr

	// 坏帧/未知类型告警限速，防止对端异常时刷爆日志；计数器不受限速影响
	warnLim *rate.Limiter

	bound   atomic.Bool
	looping atomic.Bool
}

// New 创建会话并注册入站报文处理器。
// 融合引擎与着陆检测器由外部构造注入，便于单测隔离。
func New(cfg cfgpkg.BusConfig, engine *fusion.Engine, detector *landing.Detector, m *metrics.AppMetrics, log *zap.Logger) *Session {
	if cfg.WarnRatePerSec <= 0 {
		cfg.WarnRatePerSec = 5
	}
	if cfg.WarnBurst <= 0 {
		cfg.WarnBurst = 10
	}
	s := &Session{
		cfg:      cfg,
		log:      log,
		m:        m,
		registry: moonwire.NewRegistry(),
		engine:   engine,
		detector: detector,
		warnLim:  rate.NewLimiter(rate.Limit(cfg.WarnRatePerSec), cfg.WarnBurst),
	}
	s.registry.Register(moonwire.TypeLaserAltimeter, s.handleAltimeter)
	return s
}

// Start 绑定端点并阻塞运行收包循环，直到 ctx 取消。
// 绑定失败是致命错误：没有固定端口子系统无法工作。
func (s *Session) Start(ctx context.Context) error {
	laddr, err := net.ResolveUDPAddr("udp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolve listen addr: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", s.cfg.RouterAddr)
	if err != nil {
		return fmt.Errorf("resolve router addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("bind bus endpoint: %w", err)
	}
	s.conn = conn
	s.router = raddr
	s.bound.Store(true)
	defer func() {
		s.bound.Store(false)
		_ = conn.Close()
	}()

	if s.cfg.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(s.cfg.ReadBuffer); err != nil {
			s.log.Warn("set read buffer failed", zap.Int("bytes", s.cfg.ReadBuffer), zap.Error(err))
		}
	}
	s.log.Info("bus session started",
		zap.String("listen", conn.LocalAddr().String()),
		zap.String("router", raddr.String()))

	s.looping.Store(true)
	defer s.looping.Store(false)

	// 比帧上限多留 1 字节，让超长数据报与恰好满帧可区分
	buf := make([]byte, moonwire.MaxFrameLen+1)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("bus session stopping")
			return ctx.Err()
		default:
		}
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			s.log.Warn("set read deadline failed", zap.Error(err))
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			s.log.Warn("bus read error", zap.Error(err))
			continue
		}
		s.handleDatagram(buf[:n])
	}
}

// handleDatagram 处理单个数据报。任何坏输入都计数、丢弃并继续——
// 在这里崩溃意味着可能丢掉着陆信号。
func (s *Session) handleDatagram(raw []byte) {
	s.m.BusFramesReceived.Inc()
	s.m.BusBytesReceived.Add(float64(len(raw)))

	if len(raw) > moonwire.MaxFrameLen {
		s.drop(metrics.ReasonOversize, zap.Int("len", len(raw)))
		return
	}
	f, err := moonwire.Decode(raw)
	if err != nil {
		switch {
		case errors.Is(err, moonwire.ErrFrameTooShort):
			s.drop(metrics.ReasonShort, zap.Int("len", len(raw)))
		default:
			s.drop(metrics.ReasonOversize, zap.Int("len", len(raw)))
		}
		return
	}
	if err := s.registry.Dispatch(f); err != nil {
		if errors.Is(err, moonwire.ErrUnknownType) {
			// 前向兼容：未知类型不是错误，丢弃即可
			s.drop(metrics.ReasonUnknownType, zap.Uint16("type", f.Type))
			return
		}
		s.drop(metrics.ReasonPayload, zap.Uint16("type", f.Type), zap.Error(err))
	}
}

// handleAltimeter LASER_ALTIMETER 处理：融合 -> 发 HEIGHT -> 着陆判定 -> 至多一次 ENGINE_CUTOFF
func (s *Session) handleAltimeter(f *moonwire.Frame) error {
	reading, err := moonwire.DecodeAltimeter(f)
	if err != nil {
		return err
	}

	fused := s.engine.Update(reading)
	s.m.AltimeterReadings.WithLabelValues(strconv.Itoa(int(reading.SensorID))).Inc()
	s.m.FusedHeight.Set(fused)
	s.log.Debug("altimeter reading",
		zap.Uint8("sensor", reading.SensorID),
		zap.Float64("height", reading.Height),
		zap.Float64("fused", fused),
		zap.Uint32("bus_time", reading.Timestamp))

	// 每处理一条读数就回发一条 HEIGHT，时间戳回写触发帧的总线时间
	s.send(moonwire.EncodeHeight(f.Timestamp, fused))
	s.m.HeightSent.Inc()

	if s.detector.Evaluate(fused) {
		s.log.Info("landing detected, transmitting engine cutoff",
			zap.Float64("fused", fused),
			zap.Float64("threshold", s.detector.Threshold()),
			zap.Uint32("bus_time", f.Timestamp))
		s.send(moonwire.EncodeEngineCutoff(f.Timestamp))
		s.m.CutoffSent.Inc()
		s.m.Landed.Set(1)
	}
	return nil
}

// send 出站一帧。瞬时发送失败重试一次并计数，绝不中断收包循环：
// 继续监听比任何单条出站报文都重要。
func (s *Session) send(f *moonwire.Frame) {
	b := moonwire.Encode(f)
	if _, err := s.conn.WriteToUDP(b, s.router); err != nil {
		s.m.SendErrors.Inc()
		s.log.Warn("bus send failed, retrying once",
			zap.Uint16("type", f.Type), zap.Error(err))
		if _, err := s.conn.WriteToUDP(b, s.router); err != nil {
			s.m.SendErrors.Inc()
			s.log.Error("bus send retry failed, dropping message",
				zap.Uint16("type", f.Type), zap.Error(err))
		}
	}
}

func (s *Session) drop(reason string, fields ...zap.Field) {
	s.m.BusFramesDropped.WithLabelValues(reason).Inc()
	if s.warnLim.Allow() {
		s.log.Warn("frame dropped", append([]zap.Field{zap.String("reason", reason)}, fields...)...)
	}
}

// Probe 供健康检查使用：套接字是否已绑定、循环是否存活
func (s *Session) Probe() (bound bool, looping bool) {
	return s.bound.Load(), s.looping.Load()
}

// LocalAddr 实际绑定地址（测试用 :0 时拿到临时端口）
func (s *Session) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}
