/*
Package redisfeed moves jobs between processes through a Redis list.

A Producer appends JSON envelopes naming a handler and carrying a payload. A
Consumer pops envelopes with BLPOP and submits one job per envelope to an
Executor such as a *workerpool.WorkerPool. The job calls the handler that was
registered under the envelope's name:

	consumer, err := redisfeed.NewConsumer(pool, redisfeed.Config{
		Redis: rdb,
		Key:   "jobs",
	})
	if err != nil {
		return err
	}
	_ = consumer.Handle("resize", func(ctx context.Context, payload []byte) {
		// decode payload and do the work
	})
	go func() { _ = consumer.Run(ctx) }()

	producer := redisfeed.NewProducer(rdb, "jobs")
	_ = producer.Publish(ctx, "resize", map[string]int{"width": 640})

Delivery is at most once: an envelope is removed from Redis before its job is
submitted, and a job lost to a crash is not retried. Envelopes that cannot be
decoded, name an unknown handler, or are rejected by the executor are reported
to Config.OnError and dropped.
*/
package redisfeed
