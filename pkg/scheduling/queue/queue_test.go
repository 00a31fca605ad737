package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/workerpool/internal/testutil"
	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
)

func TestSendRecvFIFO(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()
	defer rx.Close()

	for i := 0; i < 100; i++ {
		testutil.AssertNoError(t, tx.Send(i))
	}
	testutil.AssertEqual(t, rx.Len(), 100)

	for i := 0; i < 100; i++ {
		v, err := rx.Recv()
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v, i)
	}
	testutil.AssertEqual(t, tx.Len(), 0)
}

func TestRecvBlocksUntilSend(t *testing.T) {
	tx, rx := New[string]()
	defer tx.Close()
	defer rx.Close()

	got := make(chan string)
	go func() {
		v, err := rx.Recv()
		if err != nil {
			t.Errorf("Recv: %v", err)
		}
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("Recv returned before anything was sent")
	case <-time.After(20 * time.Millisecond):
	}

	testutil.AssertNoError(t, tx.Send("job"))

	select {
	case v := <-got:
		testutil.AssertEqual(t, v, "job")
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake after Send")
	}
}

func TestDisconnectAfterDrain(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	clone := tx.Clone()
	testutil.AssertNoError(t, tx.Send(1))
	testutil.AssertNoError(t, clone.Send(2))
	tx.Close()
	clone.Close()

	v, err := rx.Recv()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 1)

	v, err = rx.Recv()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 2)

	for i := 0; i < 3; i++ {
		_, err = rx.Recv()
		if !errors.Is(err, gferrors.ErrDisconnected) {
			t.Fatalf("Recv after drain = %v, want ErrDisconnected", err)
		}
	}
}

func TestCloseLastSenderWakesReceiver(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	errc := make(chan error)
	go func() {
		_, err := rx.Recv()
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tx.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, gferrors.ErrDisconnected) {
			t.Fatalf("got %v, want ErrDisconnected", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver not woken by last sender closing")
	}
}

func TestCloneKeepsQueueConnected(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	clone := tx.Clone()
	tx.Close()

	testutil.AssertNoError(t, clone.Send(7))
	v, err := rx.Recv()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 7)

	clone.Close()
	_, err = rx.Recv()
	if !errors.Is(err, gferrors.ErrDisconnected) {
		t.Fatalf("got %v, want ErrDisconnected", err)
	}
}

func TestClosedSenderHandle(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	tx.Close()
	tx.Close()

	if err := tx.Send(1); !errors.Is(err, gferrors.ErrClosed) {
		t.Fatalf("Send on closed handle = %v, want ErrClosed", err)
	}

	clone := tx.Clone()
	if err := clone.Send(1); !errors.Is(err, gferrors.ErrClosed) {
		t.Fatalf("Send on clone of closed handle = %v, want ErrClosed", err)
	}
	clone.Close()

	_, err := rx.Recv()
	if !errors.Is(err, gferrors.ErrDisconnected) {
		t.Fatalf("got %v, want ErrDisconnected", err)
	}
}

func TestSendAfterReceiversDropped(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	testutil.AssertNoError(t, tx.Send(1))

	second := rx.Clone()
	rx.Close()
	testutil.AssertNoError(t, tx.Send(2))
	testutil.AssertEqual(t, tx.Len(), 2)

	second.Close()
	testutil.AssertEqual(t, tx.Len(), 0)

	if err := tx.Send(3); !errors.Is(err, gferrors.ErrQueueClosed) {
		t.Fatalf("Send = %v, want ErrQueueClosed", err)
	}
	if _, err := second.Recv(); !errors.Is(err, gferrors.ErrClosed) {
		t.Fatalf("Recv on closed handle = %v, want ErrClosed", err)
	}
}

func TestUnboundedSend(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()
	defer rx.Close()

	const n = 100000
	for i := 0; i < n; i++ {
		testutil.AssertNoError(t, tx.Send(i))
	}
	testutil.AssertEqual(t, rx.Len(), n)
}

func TestConcurrentProducers(t *testing.T) {
	tx, rx := New[int]()
	defer rx.Close()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		h := tx.Clone()
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			defer h.Close()
			for i := 0; i < perProducer; i++ {
				if err := h.Send(base*perProducer + i); err != nil {
					t.Errorf("Send: %v", err)
					return
				}
			}
		}(p)
	}
	tx.Close()

	seen := make(map[int]bool, producers*perProducer)
	lastByProducer := make(map[int]int)
	for {
		v, err := rx.Recv()
		if errors.Is(err, gferrors.ErrDisconnected) {
			break
		}
		testutil.AssertNoError(t, err)

		if seen[v] {
			t.Fatalf("value %d received twice", v)
		}
		seen[v] = true

		// Items from one producer keep their send order.
		p := v / perProducer
		if last, ok := lastByProducer[p]; ok && v <= last {
			t.Fatalf("producer %d out of order: %d after %d", p, v, last)
		}
		lastByProducer[p] = v
	}
	wg.Wait()

	testutil.AssertEqual(t, len(seen), producers*perProducer)
}
