package workerpool_test

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

// Example demonstrates collecting job output through a caller-owned channel.
func Example() {
	pool := workerpool.New(4)
	defer func() { <-pool.Shutdown() }()

	const njobs = 8
	results := make(chan int)
	for i := 0; i < njobs; i++ {
		if err := pool.Execute(func() { results <- 1 }); err != nil {
			log.Printf("Failed to submit job: %v", err)
			return
		}
	}

	sum := 0
	for i := 0; i < njobs; i++ {
		sum += <-results
	}
	fmt.Println(sum)

	// Output: 8
}

// Example_barrier demonstrates waiting for a batch of jobs with a WaitGroup,
// while asserting the batch fits the pool so every job runs at once.
func Example_barrier() {
	const nworkers = 42
	const njobs = 23

	pool := workerpool.New(nworkers)
	defer func() { <-pool.Shutdown() }()

	var counter atomic.Int64
	var arrived, release sync.WaitGroup
	arrived.Add(njobs)
	release.Add(1)

	for i := 0; i < njobs; i++ {
		_ = pool.Execute(func() {
			counter.Add(1)
			arrived.Done()
			release.Wait()
		})
	}

	arrived.Wait()
	fmt.Println(counter.Load(), pool.ActiveWorkers())
	release.Done()

	// Output: 23 23
}

// Example_string demonstrates the worker listing.
func Example_string() {
	pool := workerpool.New(3)
	defer func() { <-pool.Shutdown() }()

	fmt.Println(pool)

	// Output: workers[] = (id: 0)(id: 1)(id: 2)
}

// Example_submitter demonstrates an independent producer handle.
func Example_submitter() {
	pool := workerpool.New(2)

	sub, err := pool.Submitter()
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer sub.Close()
		for i := 0; i < 3; i++ {
			_ = sub.Execute(wg.Done)
		}
	}()
	wg.Wait()

	<-pool.Shutdown()
	fmt.Println(pool.TotalExecuted(), pool.AliveWorkers())

	// Output: 3 0
}

// Example_recoverPanics demonstrates keeping workers alive across panics.
func Example_recoverPanics() {
	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 1,
		OnPanic:     workerpool.PanicRecover,
		PanicHandler: func(workerID int, recovered interface{}, _ []byte) {
			fmt.Printf("worker %d recovered: %v\n", workerID, recovered)
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	_ = pool.Execute(func() { panic("bad input") })
	<-pool.Shutdown()

	fmt.Println(pool.TotalPanicked())

	// Output:
	// worker 0 recovered: bad input
	// 1
}
