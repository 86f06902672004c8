// Package metrics implements sched.MetricsSink with Prometheus collectors,
// plus a polling gauge set driven off sched.Scheduler.Stats.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/janneremes/fibersched/sched"
)

// Collector counts scheduler lifecycle events and exposes periodic
// occupancy gauges sourced from a Scheduler's Stats snapshot. It implements
// sched.MetricsSink.
type Collector struct {
	tasksEnqueued  prometheus.Counter
	tasksCompleted prometheus.Counter
	fibersParked   prometheus.Counter
	fibersResumed  prometheus.Counter

	fiberPoolSize      prometheus.Gauge
	fibersInUse        prometheus.Gauge
	taskQueueLen       prometheus.Gauge
	taskQueueHighWater prometheus.Gauge
	readyQueueLen      prometheus.Gauge

	stop chan struct{}
}

// NewCollector builds a Collector and registers its metrics against reg.
// Pass prometheus.DefaultRegisterer to use the global registry.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	c := &Collector{
		tasksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_enqueued_total",
			Help: "Total tasks pushed onto the task queue.",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_completed_total",
			Help: "Total tasks that ran to completion.",
		}),
		fibersParked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fibers_parked_total",
			Help: "Total times a fiber suspended on WaitForCounter.",
		}),
		fibersResumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fibers_resumed_total",
			Help: "Total times a parked fiber was handed back to a worker.",
		}),
		fiberPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fiber_pool_size",
			Help: "Configured fiber pool capacity.",
		}),
		fibersInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fibers_in_use",
			Help: "Fibers currently running or parked.",
		}),
		taskQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "task_queue_length",
			Help: "Tasks currently queued but not yet picked up.",
		}),
		taskQueueHighWater: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "task_queue_high_water",
			Help: "Highest task queue length observed this run.",
		}),
		readyQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ready_queue_length",
			Help: "Parked fibers currently ready to resume.",
		}),
		stop: make(chan struct{}),
	}

	reg.MustRegister(
		c.tasksEnqueued, c.tasksCompleted, c.fibersParked, c.fibersResumed,
		c.fiberPoolSize, c.fibersInUse, c.taskQueueLen, c.taskQueueHighWater, c.readyQueueLen,
	)
	return c
}

// TaskEnqueued implements sched.MetricsSink.
func (c *Collector) TaskEnqueued() { c.tasksEnqueued.Inc() }

// TaskCompleted implements sched.MetricsSink.
func (c *Collector) TaskCompleted() { c.tasksCompleted.Inc() }

// FiberParked implements sched.MetricsSink.
func (c *Collector) FiberParked() { c.fibersParked.Inc() }

// FiberResumed implements sched.MetricsSink.
func (c *Collector) FiberResumed() { c.fibersResumed.Inc() }

// PollStats samples s.Stats() every interval until ctx-equivalent Stop is
// called, updating the occupancy gauges. Run it in its own goroutine.
func (c *Collector) PollStats(s *sched.Scheduler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sample(s)
		case <-c.stop:
			return
		}
	}
}

func (c *Collector) sample(s *sched.Scheduler) {
	stats := s.Stats()
	c.fiberPoolSize.Set(float64(stats.FiberPoolSize))
	c.fibersInUse.Set(float64(stats.FibersInUse))
	c.taskQueueLen.Set(float64(stats.TaskQueueLen))
	c.taskQueueHighWater.Set(float64(stats.TaskQueueHighWater))
	c.readyQueueLen.Set(float64(stats.ReadyQueueLen))
}

// Stop ends the PollStats loop.
func (c *Collector) Stop() { close(c.stop) }
