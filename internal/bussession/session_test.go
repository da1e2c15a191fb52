package bussession

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/lunarlink-fsw/hss-node/internal/config"
	"github.com/lunarlink-fsw/hss-node/internal/fusion"
	"github.com/lunarlink-fsw/hss-node/internal/landing"
	"github.com/lunarlink-fsw/hss-node/internal/metrics"
	"github.com/lunarlink-fsw/hss-node/internal/protocol/moonwire"
)

// harness 回环 UDP 测试环境：router 扮演总线路由器，client 扮演高度计对端
type harness struct {
	sess   *Session
	m      *metrics.AppMetrics
	router *net.UDPConn
	client net.Conn
}

func newHarness(t *testing.T, threshold float64) *harness {
	t.Helper()

	router, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	cfg := cfgpkg.BusConfig{
		ListenAddr:     "127.0.0.1:0",
		RouterAddr:     router.LocalAddr().String(),
		WarnRatePerSec: 100,
		WarnBurst:      100,
	}
	m := metrics.NewAppMetrics(metrics.NewRegistry())
	sess := New(cfg, fusion.NewEngine(), landing.New(threshold), m, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Start(ctx) }()

	require.Eventually(t, func() bool {
		bound, _ := sess.Probe()
		return bound
	}, 2*time.Second, 5*time.Millisecond, "session never bound")

	client, err := net.Dial("udp", sess.LocalAddr().String())
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		<-done
		_ = client.Close()
		_ = router.Close()
	})
	return &harness{sess: sess, m: m, router: router, client: client}
}

func (h *harness) sendAltimeter(t *testing.T, ts uint32, id uint8, height float64) {
	t.Helper()
	_, err := h.client.Write(moonwire.Encode(moonwire.EncodeAltimeter(ts, id, height)))
	require.NoError(t, err)
}

func (h *harness) sendRaw(t *testing.T, raw []byte) {
	t.Helper()
	_, err := h.client.Write(raw)
	require.NoError(t, err)
}

// recvFrame 在路由器侧收一帧
func (h *harness) recvFrame(t *testing.T) *moonwire.Frame {
	t.Helper()
	require.NoError(t, h.router.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, moonwire.MaxFrameLen+1)
	n, _, err := h.router.ReadFromUDP(buf)
	require.NoError(t, err, "expected an outbound frame")
	f, err := moonwire.Decode(buf[:n])
	require.NoError(t, err)
	return f
}

// recvNone 断言一段时间内路由器侧没有任何出站帧
func (h *harness) recvNone(t *testing.T, d time.Duration) {
	t.Helper()
	require.NoError(t, h.router.SetReadDeadline(time.Now().Add(d)))
	buf := make([]byte, moonwire.MaxFrameLen+1)
	n, _, err := h.router.ReadFromUDP(buf)
	if err == nil {
		t.Fatalf("unexpected outbound frame: % x", buf[:n])
	}
	ne, ok := err.(net.Error)
	require.True(t, ok && ne.Timeout(), "err: %v", err)
}

func (h *harness) recvHeight(t *testing.T) (float64, uint32) {
	t.Helper()
	f := h.recvFrame(t)
	require.Equal(t, moonwire.TypeHeight, f.Type)
	v, err := moonwire.DecodeHeight(f)
	require.NoError(t, err)
	return v, f.Timestamp
}

func TestSession_HeightPerReading(t *testing.T) {
	h := newHarness(t, 0.0)

	// 场景：三路传感器依次报 48/50/52，第三条之后融合高度恰为 50
	h.sendAltimeter(t, 1, 1, 48.0)
	v, ts := h.recvHeight(t)
	assert.InDelta(t, 48.0, v, 1e-12)
	assert.Equal(t, uint32(1), ts)

	h.sendAltimeter(t, 2, 2, 50.0)
	v, ts = h.recvHeight(t)
	assert.InDelta(t, 49.0, v, 1e-12)
	assert.Equal(t, uint32(2), ts)

	h.sendAltimeter(t, 3, 3, 52.0)
	v, ts = h.recvHeight(t)
	assert.InDelta(t, 50.0, v, 1e-12)
	assert.Equal(t, uint32(3), ts)

	assert.Equal(t, 3.0, testutil.ToFloat64(h.m.HeightSent))
}

func TestSession_LandingCutoffExactlyOnce(t *testing.T) {
	h := newHarness(t, 0.0)

	// 融合高度序列 10 -> 5 -> 0 -> -1：0 触发且仅触发一次关机
	h.sendAltimeter(t, 1, 1, 10.0)
	v, _ := h.recvHeight(t)
	assert.InDelta(t, 10.0, v, 1e-12)

	h.sendAltimeter(t, 2, 1, 5.0)
	v, _ = h.recvHeight(t)
	assert.InDelta(t, 5.0, v, 1e-12)

	h.sendAltimeter(t, 3, 1, 0.0)
	v, _ = h.recvHeight(t)
	assert.InDelta(t, 0.0, v, 1e-12)

	cutoff := h.recvFrame(t)
	assert.Equal(t, moonwire.TypeEngineCutoff, cutoff.Type)
	assert.Empty(t, cutoff.Payload)
	assert.Equal(t, uint32(3), cutoff.Timestamp)

	// 着陆之后仍持续发 HEIGHT，但不再有第二条关机
	h.sendAltimeter(t, 4, 1, -1.0)
	v, _ = h.recvHeight(t)
	assert.InDelta(t, -1.0, v, 1e-12)
	h.recvNone(t, 200*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.CutoffSent))
	assert.True(t, h.sess.detector.Landed())
}

func TestSession_MalformedFramesDoNotStallLoop(t *testing.T) {
	h := newHarness(t, 0.0)

	// 依次送入：帧头不完整、总长 4103 越界、未知类型
	h.sendRaw(t, []byte{0x01, 0x02, 0x03})
	h.sendRaw(t, make([]byte, moonwire.MaxFrameLen+1))
	h.sendRaw(t, moonwire.Encode(&moonwire.Frame{Type: 0xBEEF, Timestamp: 1}))

	// 坏输入之后的合法帧必须照常处理
	h.sendAltimeter(t, 5, 2, 7.5)
	v, ts := h.recvHeight(t)
	assert.InDelta(t, 7.5, v, 1e-12)
	assert.Equal(t, uint32(5), ts)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.BusFramesDropped.WithLabelValues(metrics.ReasonShort)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.BusFramesDropped.WithLabelValues(metrics.ReasonOversize)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.BusFramesDropped.WithLabelValues(metrics.ReasonUnknownType)))
}

func TestSession_BadAltimeterPayloadDropped(t *testing.T) {
	h := newHarness(t, 0.0)

	// 类型正确但载荷长度非法
	h.sendRaw(t, moonwire.Encode(&moonwire.Frame{
		Type:      moonwire.TypeLaserAltimeter,
		Timestamp: 1,
		Payload:   []byte{1, 2, 3},
	}))
	h.recvNone(t, 200*time.Millisecond)

	h.sendAltimeter(t, 2, 1, 12.0)
	v, _ := h.recvHeight(t)
	assert.InDelta(t, 12.0, v, 1e-12)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.m.BusFramesDropped.WithLabelValues(metrics.ReasonPayload)))
}

func TestSession_SameSensorReplacesBeforeOthersReport(t *testing.T) {
	h := newHarness(t, 0.0)

	h.sendAltimeter(t, 1, 1, 100.0)
	_, _ = h.recvHeight(t)
	h.sendAltimeter(t, 2, 1, 60.0)
	v, _ := h.recvHeight(t)
	// 替换而非累积：融合值就是最新读数
	assert.InDelta(t, 60.0, v, 1e-12)

	h.sendAltimeter(t, 3, 2, 80.0)
	v, _ = h.recvHeight(t)
	assert.InDelta(t, 70.0, v, 1e-12)
}
