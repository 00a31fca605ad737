/*
Package queue provides the unbounded multi-producer job queue that connects
submitters to workers.

A queue is created as a pair of handles:

	tx, rx := queue.New[Job]()

Sending handles are cloned freely, one per producer, and each clone must be
closed when its producer is done:

	producer := tx.Clone()
	go func() {
		defer producer.Close()
		_ = producer.Send(job)
	}()

Send never blocks: there is no capacity limit and no backpressure. Once every
receiving handle has been closed, Send fails with errors.ErrQueueClosed.

Recv blocks until an item is available and returns items in the order they were
sent. Once every sending handle has been closed and the queue is empty, Recv
fails with errors.ErrDisconnected; the condition is permanent.

Many consumers share one receiving end through Shared, which serializes
receivers with a mutex held for exactly one blocking dequeue:

	shared := queue.NewShared(rx)
	for i := 0; i < n; i++ {
		h := shared.Clone()
		go func() {
			defer h.Close()
			for {
				job, err := h.Recv()
				if err != nil {
					return
				}
				job()
			}
		}()
	}
	shared.Close()
*/
package queue
