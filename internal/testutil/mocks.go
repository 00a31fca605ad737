package testutil

import (
	"sync"
)

// RecordingExecutor is an in-memory executor for producer tests. It counts
// submissions and optionally runs each job inline.
type RecordingExecutor struct {
	mu        sync.Mutex
	submitted int
	runInline bool
	err       error
	ran       chan struct{}
}

// NewRecordingExecutor creates an executor that runs submitted jobs inline and
// signals each completion on Ran.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{
		runInline: true,
		ran:       make(chan struct{}, 1024),
	}
}

// Execute records the job, then runs it unless SetError has been called.
func (e *RecordingExecutor) Execute(job func()) error {
	e.mu.Lock()
	if e.err != nil {
		err := e.err
		e.mu.Unlock()
		return err
	}
	e.submitted++
	inline := e.runInline
	e.mu.Unlock()

	if inline {
		job()
		select {
		case e.ran <- struct{}{}:
		default:
		}
	}
	return nil
}

// Submitted returns the number of accepted jobs.
func (e *RecordingExecutor) Submitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitted
}

// Ran receives one value per job run inline.
func (e *RecordingExecutor) Ran() <-chan struct{} {
	return e.ran
}

// SetRunInline controls whether accepted jobs are executed.
func (e *RecordingExecutor) SetRunInline(inline bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runInline = inline
}

// SetError makes every following Execute fail with err. A nil err restores
// normal behaviour.
func (e *RecordingExecutor) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// CallbackTracker records invocations of a callback under test.
type CallbackTracker struct {
	mu    sync.Mutex
	count int
	value interface{}
}

// NewCallbackTracker creates an empty tracker.
func NewCallbackTracker() *CallbackTracker {
	return &CallbackTracker{}
}

// Mark records one call. The last value passed, if any, is kept.
func (c *CallbackTracker) Mark(value ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if len(value) > 0 {
		c.value = value[0]
	}
}

// Called reports whether Mark has been called.
func (c *CallbackTracker) Called() bool {
	return c.CallCount() > 0
}

// CallCount returns the number of Mark calls.
func (c *CallbackTracker) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Value returns the last recorded value.
func (c *CallbackTracker) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Reset clears the tracker.
func (c *CallbackTracker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.value = nil
}
