/*
Package workerpool provides a fixed-size pool of workers draining a shared,
unbounded FIFO job queue, together with the pieces that feed it.

Scheduling (pkg/scheduling):
  - queue: Unbounded multi-producer queue with reference-counted handles
  - workerpool: Fixed set of workers executing fire-and-forget jobs
  - scheduler: Cron and interval schedules that submit jobs to a pool

Feeds (pkg/feed):
  - redisfeed: Jobs published to and consumed from a Redis list

Supporting packages:
  - metrics: Prometheus instruments for pools, schedulers and feeds
  - common/errors, common/validation: Sentinel and validation errors

Example usage:

	import "github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"

	pool := workerpool.New(4)
	defer func() { <-pool.Shutdown() }()

	results := make(chan int, 8)
	for i := 0; i < 8; i++ {
		_ = pool.Execute(func() { results <- 1 })
	}

The command cmd/poolrun runs a configured pool with schedules, an optional
Redis feed and a /metrics endpoint.
*/
package workerpool
