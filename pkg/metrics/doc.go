// Package metrics provides Prometheus instrumentation for workerpool components.
//
// # Quick Start
//
// Worker pools, schedulers and feeds accept a *Registry through their Config.
// The shortest path is the metrics-enabled constructor, which uses a private
// Prometheus registry:
//
//	pool := workerpool.NewWithMetrics(5, "task_pool")
//
// To expose metrics, build a Registry on a Prometheus registerer and serve it:
//
//	reg := prometheus.NewRegistry()
//	pool, err := workerpool.NewWithConfig(workerpool.Config{
//		WorkerCount: 5,
//		Name:        "task_pool",
//		Metrics:     metrics.NewRegistry(reg),
//	})
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
// Pool metrics, labelled by pool_name:
//
//   - workerpool_pool_size
//   - workerpool_pool_alive_workers
//   - workerpool_pool_active_workers
//   - workerpool_pool_queued_jobs
//   - workerpool_pool_jobs_submitted_total
//   - workerpool_pool_jobs_executed_total
//   - workerpool_pool_jobs_panicked_total
//   - workerpool_pool_job_duration_seconds
//   - workerpool_pool_job_queue_wait_seconds
//
// Scheduler metrics, labelled by scheduler_name and schedule_id:
//
//   - workerpool_scheduler_ticks_total
//   - workerpool_scheduler_submit_errors_total
//   - workerpool_scheduler_skipped_total
//
// Feed metrics, labelled by feed_name:
//
//   - workerpool_feed_messages_received_total
//   - workerpool_feed_messages_rejected_total (also labelled by reason)
//   - workerpool_feed_errors_total
//
// Config.Namespace replaces the "workerpool" prefix and Config.Labels adds
// constant labels to every series.
package metrics
