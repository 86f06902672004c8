package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/janneremes/fibersched/sched"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCollectorCountsLifecycleEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "fibersched_test")

	c.TaskEnqueued()
	c.TaskEnqueued()
	c.TaskCompleted()
	c.FiberParked()
	c.FiberResumed()

	require.Equal(t, float64(2), counterValue(t, c.tasksEnqueued))
	require.Equal(t, float64(1), counterValue(t, c.tasksCompleted))
	require.Equal(t, float64(1), counterValue(t, c.fibersParked))
	require.Equal(t, float64(1), counterValue(t, c.fibersResumed))
}

func TestCollectorPollStatsUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "fibersched_test2")
	s := sched.New(sched.Options{FiberPoolSize: 8, WorkerThreadCount: 2})

	go c.PollStats(s, time.Millisecond)
	defer c.Stop()

	require.Eventually(t, func() bool {
		var m dto.Metric
		require.NoError(t, c.fiberPoolSize.Write(&m))
		return m.GetGauge().GetValue() == 8
	}, time.Second, time.Millisecond)
}
