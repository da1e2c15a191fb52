package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// 丢弃原因标签值，对应协议边界上的几类坏输入
const (
	ReasonShort       = "short"        // 帧头不完整
	ReasonOversize    = "oversize"     // 总长超过 4102
	ReasonPayload     = "payload"      // 载荷解码失败
	ReasonUnknownType = "unknown_type" // 未注册类型码
)

// AppMetrics 子系统业务指标。被丢弃或失败的输入全部计数可观测，
// 但绝不因此中断后续报文处理。
type AppMetrics struct {
	BusFramesReceived prometheus.Counter
	BusBytesReceived  prometheus.Counter
	BusFramesDropped  *prometheus.CounterVec // labels: reason=short|oversize|payload|unknown_type
	AltimeterReadings *prometheus.CounterVec // labels: sensor
	HeightSent        prometheus.Counter
	CutoffSent        prometheus.Counter
	SendErrors        prometheus.Counter
	FusedHeight       prometheus.Gauge // 最近一次融合高度（米）
	Landed            prometheus.Gauge // 0=airborne 1=landed
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		BusFramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bus_frames_received_total",
			Help: "Total datagrams received from the bus.",
		}),
		BusBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bus_bytes_received_total",
			Help: "Total bytes received from the bus.",
		}),
		BusFramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bus_frames_dropped_total",
			Help: "Frames discarded at the protocol boundary.",
		}, []string{"reason"}),
		AltimeterReadings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hss_altimeter_readings_total",
			Help: "Accepted laser altimeter readings by sensor.",
		}, []string{"sensor"}),
		HeightSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hss_height_sent_total",
			Help: "HEIGHT messages published to the bus router.",
		}),
		CutoffSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hss_engine_cutoff_sent_total",
			Help: "ENGINE_CUTOFF messages published (at most one).",
		}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bus_send_errors_total",
			Help: "Outbound datagram send failures.",
		}),
		FusedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hss_fused_height_metres",
			Help: "Latest fused height estimate in metres.",
		}),
		Landed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hss_landed",
			Help: "1 once the landing event has fired.",
		}),
	}
	reg.MustRegister(
		m.BusFramesReceived, m.BusBytesReceived, m.BusFramesDropped,
		m.AltimeterReadings, m.HeightSent, m.CutoffSent, m.SendErrors,
		m.FusedHeight, m.Landed,
	)
	return m
}
