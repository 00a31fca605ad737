/*
Package workerpool provides a fixed-size pool of worker goroutines that run
single-shot jobs from one shared, unbounded FIFO queue.

A pool decouples submitting work from running it. Callers hand over plain
func() values and synchronise with them through primitives they own, such as
channels, WaitGroups or atomic counters. The pool returns no results.

Basic usage:

	pool := workerpool.New(4)

	results := make(chan int)
	for i := 0; i < 8; i++ {
		i := i
		if err := pool.Execute(func() { results <- i * i }); err != nil {
			log.Printf("Failed to submit: %v", err)
		}
	}

	sum := 0
	for i := 0; i < 8; i++ {
		sum += <-results
	}

Execution Model:

New(size) starts size workers, each already blocked on the queue. Execute
appends a job and returns at once; it never blocks on queue depth and never
fails because workers are busy. Each job is removed from the queue by exactly
one worker, in submission order, and run synchronously on that worker's
goroutine. Completion order is not guaranteed.

Workers share the receiving end of the queue behind one mutex that is held for
a single dequeue and released before the job runs, so size workers run up to
size jobs in parallel. A job that blocks forever occupies its worker forever.

A pool created with size 0 accepts jobs and never runs them.

Worker identifiers are 0..size-1 in creation order:

	fmt.Println(workerpool.New(3)) // workers[] = (id: 0)(id: 1)(id: 2)

Lifetime:

The worker count is fixed at construction. Without a call to Shutdown the
workers live for the life of the process.

Shutdown drops the pool's own queue handles. Queued jobs still run; once the
queue is empty and every Submitter is closed, the queue is disconnected and
each worker applies Config.OnDisconnect:

	<-pool.Shutdown() // queued jobs have run and every worker has exited

Nothing running or queued is ever cancelled.

Extra Producers:

Submitter returns an independent submission handle, the equivalent of cloning
the queue's sending side:

	sub, err := pool.Submitter()
	if err != nil {
		return err
	}
	go func() {
		defer sub.Close()
		for _, j := range jobs {
			_ = sub.Execute(j)
		}
	}()

Panics:

Config.OnPanic selects what a panicking job does to its worker:

  - PanicTerminateWorker (default): the worker ends and is not replaced, so
    capacity shrinks silently. AliveWorkers reports the remaining count.
  - PanicRecover: the worker keeps running.
  - PanicPropagate: the panic is left uncaught and crashes the process.

PanicHandler, when set, is told about recovered panics.

Disconnect:

Config.OnDisconnect selects what a worker does when the queue is disconnected:

  - DisconnectExit (default): the worker loop ends.
  - DisconnectSpin: the worker retries the receive forever, burning a CPU
    core. This matches pools that treat a disconnected queue as transient.

Metrics:

NewWithMetrics, or Config.Metrics, reports pool size, alive, active and queued
gauges plus submission, execution, panic, duration and queue-wait series. See
package metrics.

Thread Safety:

All pool and Submitter methods are safe for concurrent use.
*/
package workerpool
