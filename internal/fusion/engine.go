package fusion

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/lunarlink-fsw/hss-node/internal/protocol/moonwire"
)

// SensorCount 激光高度计路数
const SensorCount = 3

// Engine 高度融合引擎。每个传感器只保留最近一次读数，
// 融合值为当前已上报传感器读数的算术平均（三路传感器假定始终健康，
// 不做中位数或加权容错）。
//
// 三路全部上报之前按已上报子集求平均：总线协议没有"数据不全"的表达，
// 宁可早出估计也不能空窗。
type Engine struct {
	mu     sync.RWMutex
	latest [SensorCount + 1]*moonwire.AltimeterReading // 按 sensorId 下标，0 不用
}

// NewEngine 创建空表引擎
func NewEngine() *Engine {
	return &Engine{}
}

// Update 覆盖该传感器的最近读数并返回当前融合高度。
// 同一传感器的新读数替换旧读数，不做累积。
func (e *Engine) Update(r moonwire.AltimeterReading) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	rr := r
	e.latest[r.SensorID] = &rr
	return e.fusedLocked()
}

// Fused 返回当前融合高度；尚无任何读数时返回 0 与 false
func (e *Engine) Fused() (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.reportedLocked() == 0 {
		return 0, false
	}
	return e.fusedLocked(), true
}

func (e *Engine) fusedLocked() float64 {
	vals := make([]float64, 0, SensorCount)
	for id := 1; id <= SensorCount; id++ {
		if r := e.latest[id]; r != nil {
			vals = append(vals, r.Height)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

func (e *Engine) reportedLocked() int {
	n := 0
	for id := 1; id <= SensorCount; id++ {
		if e.latest[id] != nil {
			n++
		}
	}
	return n
}

// Snapshot 当前表状态，供 /statusz 观测
type Snapshot struct {
	Sensors  map[uint8]float64 `json:"sensors"`
	Fused    float64           `json:"fused"`
	Reported int               `json:"reported"`
}

// Snapshot 返回各传感器最近高度与融合值的一致快照
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Snapshot{Sensors: make(map[uint8]float64, SensorCount)}
	for id := 1; id <= SensorCount; id++ {
		if r := e.latest[id]; r != nil {
			s.Sensors[uint8(id)] = r.Height
			s.Reported++
		}
	}
	if s.Reported > 0 {
		s.Fused = e.fusedLocked()
	}
	return s
}
