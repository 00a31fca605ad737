package workerpool

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
	"github.com/vnykmshr/workerpool/pkg/scheduling/queue"
)

// Execute hands job to the queue and returns immediately. It never blocks on
// worker availability or queue depth.
func (p *WorkerPool) Execute(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return fmt.Errorf("cannot submit job: worker pool has been shut down: %w", gferrors.ErrClosed)
	}
	return p.submit(p.sender, job)
}

func (p *WorkerPool) submit(tx *queue.Sender[task], job Job) error {
	if job == nil {
		return gferrors.NewValidationError("workerpool", "job", nil, "cannot be nil").
			WithHint("provide a non-nil func()")
	}

	p.submitted.Add(1)
	if err := tx.Send(task{job: job, queued: time.Now()}); err != nil {
		p.submitted.Add(-1)
		return fmt.Errorf("cannot submit job: %w", err)
	}

	p.inst.submitted()
	p.inst.update(p)
	return nil
}

// Submitter is an additional submission handle to a pool's queue, for
// producers that must outlive or run independently of the pool value.
type Submitter struct {
	pool *WorkerPool
	tx   *queue.Sender[task]
}

// Submitter returns a new submission handle. The caller must Close it; the
// workers only observe a disconnected queue once the pool has been shut down
// and every Submitter has been closed.
func (p *WorkerPool) Submitter() (*Submitter, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return nil, fmt.Errorf("cannot create submitter: worker pool has been shut down: %w", gferrors.ErrClosed)
	}
	return &Submitter{pool: p, tx: p.sender.Clone()}, nil
}

// Execute hands job to the queue. Unlike WorkerPool.Execute it keeps working
// after Shutdown for as long as any worker is still receiving.
func (s *Submitter) Execute(job Job) error {
	return s.pool.submit(s.tx, job)
}

// Clone returns another independent handle to the same queue.
func (s *Submitter) Clone() *Submitter {
	return &Submitter{pool: s.pool, tx: s.tx.Clone()}
}

// Close drops the handle. It is safe to call more than once.
func (s *Submitter) Close() {
	s.tx.Close()
}

// Shutdown drops the pool's own queue handles. Workers finish the jobs already
// queued, then exit once every Submitter is closed as well. The returned
// channel is closed when every worker loop has ended; under DisconnectSpin it
// is never closed.
//
// A pool that is never shut down keeps its workers for the life of the process.
func (p *WorkerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		p.sender.Close()
		p.receiver.Close()

		go func() {
			p.workerWg.Wait()
			p.inst.update(p)
			close(p.done)
		}()
	})

	return p.done
}

// halt stops workers spinning on a disconnected queue.
func (p *WorkerPool) halt() {
	p.haltOnce.Do(func() { close(p.halted) })
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *WorkerPool
	rx   *queue.Shared[task]
}

func (w *worker) String() string {
	return fmt.Sprintf("(id: %d)", w.id)
}

// run is the main loop for a worker.
func (w *worker) run() {
	p := w.pool
	defer p.workerWg.Done()
	defer w.rx.Close()
	defer func() {
		p.alive.Add(-1)
		p.inst.update(p)
		if p.config.OnWorkerStop != nil {
			p.config.OnWorkerStop(w.id)
		}
	}()

	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(w.id)
	}

	for {
		t, err := w.rx.Recv()
		if err != nil {
			if p.config.OnDisconnect == DisconnectSpin {
				w.spin()
			}
			return
		}
		if !w.execute(t) {
			return
		}
	}
}

// spin retries the receive on a disconnected queue until the pool is halted.
// A disconnected queue never yields another job.
func (w *worker) spin() {
	w.pool.spinning.Add(1)
	defer w.pool.spinning.Add(-1)

	for {
		select {
		case <-w.pool.halted:
			return
		default:
		}
		_, _ = w.rx.Recv()
		runtime.Gosched()
	}
}

// execute runs one job on the worker goroutine and reports whether the worker
// should keep receiving.
func (w *worker) execute(t task) (keepRunning bool) {
	p := w.pool
	start := time.Now()
	p.active.Add(1)
	p.inst.started(start.Sub(t.queued))

	if p.config.OnPanic == PanicPropagate {
		t.job()
		p.finished(start, false)
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			p.finished(start, true)
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(w.id, r, debug.Stack())
			}
			keepRunning = p.config.OnPanic == PanicRecover
		}
	}()

	t.job()
	p.finished(start, false)
	return true
}

func (p *WorkerPool) finished(start time.Time, panicked bool) {
	p.active.Add(-1)
	if panicked {
		p.panicked.Add(1)
	} else {
		p.executed.Add(1)
	}
	p.inst.finished(time.Since(start), panicked)
	p.inst.update(p)
}
