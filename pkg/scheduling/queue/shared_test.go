package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/workerpool/internal/testutil"
	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
)

func TestSharedExactlyOnce(t *testing.T) {
	tx, rx := New[int]()
	shared := NewShared(rx)

	const consumers = 8
	const items = 5000

	var mu sync.Mutex
	counts := make(map[int]int, items)

	var wg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		h := shared.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer h.Close()
			for {
				v, err := h.Recv()
				if err != nil {
					return
				}
				mu.Lock()
				counts[v]++
				mu.Unlock()
			}
		}()
	}
	shared.Close()

	for i := 0; i < items; i++ {
		testutil.AssertNoError(t, tx.Send(i))
	}
	tx.Close()
	wg.Wait()

	testutil.AssertEqual(t, len(counts), items)
	for v, n := range counts {
		if n != 1 {
			t.Fatalf("item %d received %d times", v, n)
		}
	}
}

func TestSharedSerializesReceivers(t *testing.T) {
	tx, rx := New[int]()
	shared := NewShared(rx)

	var inside, maxInside int32
	h1, h2 := shared.Clone(), shared.Clone()
	shared.Close()

	// Receivers touch the counters only while holding the shared mutex.
	recv := func(h *Shared[int], done *sync.WaitGroup) {
		defer done.Done()
		defer h.Close()
		for {
			h.mu.Lock()
			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxInside) {
				atomic.StoreInt32(&maxInside, n)
			}
			_, err := h.rx.Recv()
			atomic.AddInt32(&inside, -1)
			h.mu.Unlock()
			if err != nil {
				return
			}
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go recv(h1, &wg)
	go recv(h2, &wg)

	for i := 0; i < 1000; i++ {
		testutil.AssertNoError(t, tx.Send(i))
	}
	tx.Close()
	wg.Wait()

	testutil.AssertEqual(t, atomic.LoadInt32(&maxInside), int32(1))
}

func TestSharedCloseDoesNotWaitForBlockedReceiver(t *testing.T) {
	tx, rx := New[int]()
	shared := NewShared(rx)
	blocked := shared.Clone()

	errc := make(chan error, 1)
	go func() {
		_, err := blocked.Recv()
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		shared.Close()
		close(closed)
	}()
	testutil.WaitClosed(t, closed, time.Second)

	testutil.AssertNoError(t, tx.Send(1))
	testutil.AssertNoError(t, <-errc)

	tx.Close()
	_, err := blocked.Recv()
	if !errors.Is(err, gferrors.ErrDisconnected) {
		t.Fatalf("got %v, want ErrDisconnected", err)
	}
	blocked.Close()
	testutil.AssertEqual(t, blocked.Len(), 0)
}
