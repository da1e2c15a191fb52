package health

import (
	"context"
	"time"
)

// BusChecker 总线会话健康检查：套接字已绑定且收包循环仍在转。
// 收包循环阻塞在套接字读上属于正常状态（总线可能安静），
// 因此只看绑定与循环存活，不看最近收包时间。
type BusChecker struct {
	probe func() (bound bool, looping bool)
}

// NewBusChecker probe 由总线会话提供
func NewBusChecker(probe func() (bool, bool)) *BusChecker {
	return &BusChecker{probe: probe}
}

func (c *BusChecker) Name() string { return "bus" }

func (c *BusChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	bound, looping := c.probe()
	res := CheckResult{Status: StatusHealthy, Latency: time.Since(start)}
	switch {
	case !bound:
		res.Status = StatusUnhealthy
		res.Message = "bus socket not bound"
	case !looping:
		res.Status = StatusUnhealthy
		res.Message = "receive loop not running"
	}
	return res
}
