package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusChecker(t *testing.T) {
	bound, looping := false, false
	c := NewBusChecker(func() (bool, bool) { return bound, looping })

	res := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)

	bound = true
	res = c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "receive loop not running", res.Message)

	looping = true
	res = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
}

type stubChecker struct {
	name   string
	status Status
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: s.status}
}

func TestAggregator_Overall(t *testing.T) {
	agg := NewAggregator(stubChecker{"a", StatusHealthy})
	assert.Equal(t, StatusHealthy, agg.OverallStatus(context.Background()))
	assert.True(t, agg.Ready(context.Background()))

	agg.AddChecker(stubChecker{"b", StatusDegraded})
	assert.Equal(t, StatusDegraded, agg.OverallStatus(context.Background()))
	assert.True(t, agg.Ready(context.Background()))

	agg.AddChecker(stubChecker{"c", StatusUnhealthy})
	assert.Equal(t, StatusUnhealthy, agg.OverallStatus(context.Background()))
	assert.False(t, agg.Ready(context.Background()))

	report := agg.BuildReport(context.Background())
	assert.Len(t, report.Checks, 3)
	assert.Equal(t, StatusUnhealthy, report.Status)
}
