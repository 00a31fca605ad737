/*
Package scheduler submits jobs to a worker pool on cron schedules.

The scheduler owns no workers. Every firing hands the scheduled job to an
Executor, usually a *workerpool.WorkerPool, and returns immediately, so a slow
job delays neither the scheduler nor other schedules:

	pool := workerpool.New(4)
	s := scheduler.New(pool)

	_ = s.Schedule("report", "0 9 * * MON-FRI", sendReport)
	_ = s.ScheduleEvery("heartbeat", 30*time.Second, ping)

	s.Start()
	defer func() { <-s.Stop() }()

Expressions use the standard five cron fields plus descriptors such as
"@hourly" and "@every 5m". Config.WithSeconds adds a leading seconds field.

Each firing submits the same func value again, so a job may run concurrently
with its previous firing. Options.SkipIfStillRunning suppresses a firing while
the job from an earlier one is queued or running.

Submission failures, for example after the pool has been shut down, are
reported to Config.OnSubmitError and never stop the schedule.
*/
package scheduler
