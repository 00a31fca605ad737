package workerpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/workerpool/pkg/metrics"
)

// NewWithMetrics creates a pool with size workers that reports to a private
// Prometheus registry, available through Metrics.
func NewWithMetrics(size int, name string) *WorkerPool {
	p, err := NewWithConfig(Config{
		WorkerCount: size,
		Name:        name,
		Metrics:     metrics.NewRegistry(prometheus.NewRegistry()),
	})
	if err != nil {
		panic(err)
	}
	return p
}

// instruments is a nil-safe view of the metrics registry for one pool.
type instruments struct {
	name string
	reg  *metrics.Registry
}

func newInstruments(name string, reg *metrics.Registry) *instruments {
	if reg == nil {
		return nil
	}
	return &instruments{name: name, reg: reg}
}

func (in *instruments) setSize(n int) {
	if in == nil {
		return
	}
	in.reg.PoolSize.WithLabelValues(in.name).Set(float64(n))
}

func (in *instruments) update(p *WorkerPool) {
	if in == nil {
		return
	}
	in.reg.PoolAlive.WithLabelValues(in.name).Set(float64(p.AliveWorkers()))
	in.reg.PoolActive.WithLabelValues(in.name).Set(float64(p.ActiveWorkers()))
	in.reg.PoolQueued.WithLabelValues(in.name).Set(float64(p.QueueSize()))
}

func (in *instruments) submitted() {
	if in == nil {
		return
	}
	in.reg.JobsSubmitted.WithLabelValues(in.name).Inc()
}

func (in *instruments) started(wait time.Duration) {
	if in == nil {
		return
	}
	in.reg.JobQueueWait.WithLabelValues(in.name).Observe(wait.Seconds())
}

func (in *instruments) finished(d time.Duration, panicked bool) {
	if in == nil {
		return
	}
	in.reg.JobDuration.WithLabelValues(in.name).Observe(d.Seconds())
	if panicked {
		in.reg.JobsPanicked.WithLabelValues(in.name).Inc()
	} else {
		in.reg.JobsExecuted.WithLabelValues(in.name).Inc()
	}
}
