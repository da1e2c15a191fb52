package landing

import "sync"

// State 着陆检测状态
type State uint8

const (
	StateAirborne State = iota // 飞行中
	StateLanded                // 已着陆（终态）
)

// String 状态可读名称
func (s State) String() string {
	switch s {
	case StateAirborne:
		return "AIRBORNE"
	case StateLanded:
		return "LANDED"
	}
	return "UNKNOWN"
}

// Detector 两态状态机：AIRBORNE --[融合高度 <= 阈值]--> LANDED。
// LANDED 是终态，进程生命周期内不可逆，ENGINE_CUTOFF 的"恰好一次"
// 由状态结构保证而不是靠调用方自觉。
//
// 阈值在构造时固定，不支持运行期改配。
type Detector struct {
	mu        sync.Mutex
	state     State
	threshold float64 // 米，height <= threshold 视为触地
}

// New 创建处于 AIRBORNE 的检测器
func New(thresholdMetres float64) *Detector {
	return &Detector{state: StateAirborne, threshold: thresholdMetres}
}

// Evaluate 送入一个融合高度样本。
// 首次满足触地判据时迁移到 LANDED 并返回 true；其余一律返回 false，
// 包括之后继续满足判据的样本。
func (d *Detector) Evaluate(height float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateLanded {
		return false
	}
	if height <= d.threshold {
		d.state = StateLanded
		return true
	}
	return false
}

// State 当前状态
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Landed 是否已着陆
func (d *Detector) Landed() bool {
	return d.State() == StateLanded
}

// Threshold 触地阈值（米）
func (d *Detector) Threshold() float64 {
	return d.threshold
}
