package workerpool

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/workerpool/pkg/common/validation"
	"github.com/vnykmshr/workerpool/pkg/metrics"
	"github.com/vnykmshr/workerpool/pkg/scheduling/queue"
)

// Job is a single-invocation unit of work. Anything it produces must be
// communicated through state it captured, such as a channel or a counter.
type Job = func()

// Executor accepts jobs for asynchronous execution.
type Executor interface {
	Execute(job Job) error
}

// DisconnectPolicy selects what a worker does once its queue has lost every
// submission handle and is empty.
type DisconnectPolicy int

const (
	// DisconnectExit ends the worker loop.
	DisconnectExit DisconnectPolicy = iota

	// DisconnectSpin keeps retrying the receive forever, occupying the worker
	// goroutine in a busy loop.
	DisconnectSpin
)

func (d DisconnectPolicy) String() string {
	switch d {
	case DisconnectExit:
		return "exit"
	case DisconnectSpin:
		return "spin"
	default:
		return fmt.Sprintf("DisconnectPolicy(%d)", int(d))
	}
}

// PanicPolicy selects what happens when a job panics.
type PanicPolicy int

const (
	// PanicTerminateWorker ends the worker that ran the job. The pool does not
	// replace it, so capacity shrinks by one for every panicking job.
	PanicTerminateWorker PanicPolicy = iota

	// PanicRecover keeps the worker running after the job panics.
	PanicRecover

	// PanicPropagate does not recover the panic, which crashes the process.
	PanicPropagate
)

func (p PanicPolicy) String() string {
	switch p {
	case PanicTerminateWorker:
		return "terminate"
	case PanicRecover:
		return "recover"
	case PanicPropagate:
		return "propagate"
	default:
		return fmt.Sprintf("PanicPolicy(%d)", int(p))
	}
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers. Zero is allowed: the pool then
	// accepts jobs but never runs them.
	WorkerCount int

	// Name labels the pool's metrics. Defaults to "default".
	Name string

	// OnDisconnect selects the worker behaviour once the queue is disconnected.
	OnDisconnect DisconnectPolicy

	// OnPanic selects the worker behaviour when a job panics.
	OnPanic PanicPolicy

	// PanicHandler is called with the recovered value and stack trace when a
	// job panics under PanicTerminateWorker or PanicRecover.
	PanicHandler func(workerID int, recovered interface{}, stack []byte)

	// OnWorkerStart is called on the worker goroutine before its first receive.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called on the worker goroutine when its loop ends.
	OnWorkerStop func(workerID int)

	// Metrics receives pool instrumentation when non-nil.
	Metrics *metrics.Registry
}

// task is what travels through the queue.
type task struct {
	job    Job
	queued time.Time
}

// WorkerPool runs submitted jobs on a fixed set of worker goroutines that
// share one unbounded FIFO queue.
type WorkerPool struct {
	config Config

	workers  []*worker
	sender   *queue.Sender[task]
	receiver *queue.Shared[task]
	inst     *instruments

	mu           sync.RWMutex
	isShutdown   bool
	shutdownOnce sync.Once
	done         chan struct{}
	haltOnce     sync.Once
	halted       chan struct{}

	workerWg sync.WaitGroup

	alive     atomic.Int64
	active    atomic.Int64
	spinning  atomic.Int64
	submitted atomic.Int64
	executed  atomic.Int64
	panicked  atomic.Int64
}

// New creates a pool with size workers. It panics if size is negative.
func New(size int) *WorkerPool {
	p, err := NewSafe(size)
	if err != nil {
		panic(err)
	}
	return p
}

// NewSafe creates a pool with size workers, returning an error instead of
// panicking on invalid input.
func NewSafe(size int) (*WorkerPool, error) {
	return NewWithConfig(Config{WorkerCount: size})
}

// NewWithConfig creates a pool with the specified configuration. Every worker
// is started and waiting on the queue when it returns.
func NewWithConfig(config Config) (*WorkerPool, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = "default"
	}

	tx, rx := queue.New[task]()

	p := &WorkerPool{
		config:   config,
		sender:   tx,
		receiver: queue.NewShared(rx),
		inst:     newInstruments(config.Name, config.Metrics),
		done:     make(chan struct{}),
		halted:   make(chan struct{}),
	}

	p.workers = make([]*worker, config.WorkerCount)
	p.alive.Store(int64(config.WorkerCount))
	for i := range p.workers {
		p.workers[i] = &worker{
			id:   i,
			pool: p,
			rx:   p.receiver.Clone(),
		}
		p.workerWg.Add(1)
		go p.workers[i].run()
	}

	p.inst.setSize(config.WorkerCount)
	p.inst.update(p)

	return p, nil
}

func (c Config) validate() error {
	if err := validation.ValidateNonNegative("workerpool", "WorkerCount", c.WorkerCount); err != nil {
		return err
	}
	if err := validation.ValidateOneOf("workerpool", "OnDisconnect", c.OnDisconnect.String(),
		DisconnectExit.String(), DisconnectSpin.String()); err != nil {
		return err
	}
	return validation.ValidateOneOf("workerpool", "OnPanic", c.OnPanic.String(),
		PanicTerminateWorker.String(), PanicRecover.String(), PanicPropagate.String())
}

// Size returns the number of workers the pool was created with.
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// IDs returns the worker identifiers in creation order.
func (p *WorkerPool) IDs() []int {
	ids := make([]int, len(p.workers))
	for i, w := range p.workers {
		ids[i] = w.id
	}
	return ids
}

// String renders the worker identifiers in creation order, for example
// "workers[] = (id: 0)(id: 1)(id: 2)".
func (p *WorkerPool) String() string {
	var b strings.Builder
	b.WriteString("workers[] = ")
	for _, w := range p.workers {
		b.WriteString(w.String())
	}
	return b.String()
}

// Name returns the pool name used for metrics.
func (p *WorkerPool) Name() string {
	return p.config.Name
}

// Metrics returns the registry the pool reports to, or nil.
func (p *WorkerPool) Metrics() *metrics.Registry {
	return p.config.Metrics
}

// QueueSize returns the number of jobs waiting for a worker.
func (p *WorkerPool) QueueSize() int {
	return p.receiver.Len()
}

// AliveWorkers returns the number of workers whose loop has not ended.
func (p *WorkerPool) AliveWorkers() int {
	return int(p.alive.Load())
}

// ActiveWorkers returns the number of workers currently executing a job.
func (p *WorkerPool) ActiveWorkers() int {
	return int(p.active.Load())
}

// SpinningWorkers returns the number of workers busy-looping on a
// disconnected queue under DisconnectSpin.
func (p *WorkerPool) SpinningWorkers() int {
	return int(p.spinning.Load())
}

// TotalSubmitted returns the number of jobs accepted by the queue.
func (p *WorkerPool) TotalSubmitted() int64 {
	return p.submitted.Load()
}

// TotalExecuted returns the number of jobs that returned normally.
func (p *WorkerPool) TotalExecuted() int64 {
	return p.executed.Load()
}

// TotalPanicked returns the number of jobs that panicked.
func (p *WorkerPool) TotalPanicked() int64 {
	return p.panicked.Load()
}
