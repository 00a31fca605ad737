// Package metrics provides Prometheus instrumentation for workerpool components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace is set.
const DefaultNamespace = "workerpool"

// Registry holds all metric instances for workerpool components.
type Registry struct {
	// Pool Metrics
	PoolSize      *prometheus.GaugeVec
	PoolAlive     *prometheus.GaugeVec
	PoolActive    *prometheus.GaugeVec
	PoolQueued    *prometheus.GaugeVec
	JobsSubmitted *prometheus.CounterVec
	JobsExecuted  *prometheus.CounterVec
	JobsPanicked  *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	JobQueueWait  *prometheus.HistogramVec

	// Scheduler Metrics
	ScheduleTicks  *prometheus.CounterVec
	ScheduleErrors *prometheus.CounterVec
	ScheduleSkips  *prometheus.CounterVec

	// Feed Metrics
	FeedReceived *prometheus.CounterVec
	FeedRejected *prometheus.CounterVec
	FeedErrors   *prometheus.CounterVec
}

// DefaultRegistry is registered with prometheus.DefaultRegisterer.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}

// NewRegistryWithConfig creates a registry honouring the namespace and
// constant labels of config. A nil config.Registry means the default registerer.
//
// When config.Enabled is false nothing is registered and the result is nil.
// Every component accepts a nil *Registry and then records nothing.
func NewRegistryWithConfig(config Config) *Registry {
	if !config.Enabled {
		return nil
	}
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	factory := promauto.With(reg)
	labels := config.Labels

	counter := func(subsystem, name, help string, labelNames ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, labelNames)
	}
	gauge := func(subsystem, name, help string, labelNames ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, labelNames)
	}
	histogram := func(subsystem, name, help string, labelNames ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, labelNames)
	}

	return &Registry{
		PoolSize:      gauge("pool", "size", "Configured number of workers", "pool_name"),
		PoolAlive:     gauge("pool", "alive_workers", "Number of workers whose loop is still running", "pool_name"),
		PoolActive:    gauge("pool", "active_workers", "Number of workers currently executing a job", "pool_name"),
		PoolQueued:    gauge("pool", "queued_jobs", "Number of jobs waiting in the queue", "pool_name"),
		JobsSubmitted: counter("pool", "jobs_submitted_total", "Total number of jobs accepted by the queue", "pool_name"),
		JobsExecuted:  counter("pool", "jobs_executed_total", "Total number of jobs that returned normally", "pool_name"),
		JobsPanicked:  counter("pool", "jobs_panicked_total", "Total number of jobs that panicked", "pool_name"),
		JobDuration:   histogram("pool", "job_duration_seconds", "Time spent executing jobs", "pool_name"),
		JobQueueWait:  histogram("pool", "job_queue_wait_seconds", "Time jobs spent queued before a worker took them", "pool_name"),

		ScheduleTicks:  counter("scheduler", "ticks_total", "Total number of schedule firings", "scheduler_name", "schedule_id"),
		ScheduleErrors: counter("scheduler", "submit_errors_total", "Total number of failed job submissions", "scheduler_name", "schedule_id"),
		ScheduleSkips:  counter("scheduler", "skipped_total", "Total number of firings skipped because the previous run was still active", "scheduler_name", "schedule_id"),

		FeedReceived: counter("feed", "messages_received_total", "Total number of messages read from the feed", "feed_name"),
		FeedRejected: counter("feed", "messages_rejected_total", "Total number of messages that could not be dispatched", "feed_name", "reason"),
		FeedErrors:   counter("feed", "errors_total", "Total number of transport errors", "feed_name"),
	}
}
