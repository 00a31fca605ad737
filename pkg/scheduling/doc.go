/*
Package scheduling groups the job execution primitives.

  - queue: Unbounded FIFO with cloneable sender and receiver handles
  - workerpool: Fixed worker pool executing jobs taken from a queue
  - scheduler: Time-based submission of jobs to any Executor

Worker Pool:

Jobs are plain functions. They return nothing, so callers synchronise with
them through channels or wait groups they own:

	pool := workerpool.New(4)
	defer func() { <-pool.Shutdown() }()

	done := make(chan struct{})
	_ = pool.Execute(func() { close(done) })
	<-done

Task Scheduler:

The scheduler submits jobs to a pool whenever a schedule fires:

	sched := scheduler.New(pool)
	defer func() { <-sched.Stop() }()

	_ = sched.Schedule("report", "0 9 * * MON-FRI", sendReport)
	_ = sched.ScheduleEvery("heartbeat", 30*time.Second, ping)
	sched.Start()

All scheduling components are safe for concurrent use.
*/
package scheduling
