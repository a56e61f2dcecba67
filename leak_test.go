package spsc

import (
	"errors"
	"sync"
	"testing"

	"github.com/valyala/fastrand"
)

// releaseTracker gives every value an identity and counts how often each
// one is released, so leaks (count 0) and double releases (count > 1) are
// both visible.
type releaseTracker struct {
	mu       sync.Mutex
	made     int
	released map[int]int
}

func newReleaseTracker() *releaseTracker {
	return &releaseTracker{released: make(map[int]int)}
}

func (tr *releaseTracker) newValue() int {
	tr.mu.Lock()
	id := tr.made
	tr.made++
	tr.mu.Unlock()
	return id
}

func (tr *releaseTracker) release(id int) {
	tr.mu.Lock()
	tr.released[id]++
	tr.mu.Unlock()
}

func (tr *releaseTracker) verify(t *testing.T, trial int) {
	t.Helper()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for id := 0; id < tr.made; id++ {
		if n := tr.released[id]; n != 1 {
			t.Fatalf("trial %d: value %d released %d times (expected 1)", trial, id, n)
		}
	}
}

// Mirrors the classic drop-tracking trial: the producer sends until the
// consumer goes away, the consumer receives a random number of values and
// closes. Every value must end up released exactly once, whether it was
// received, rejected back to the sender, or left buffered at teardown.
func TestSPSCEveryValueReleasedOnce(t *testing.T) {
	const (
		capacity = 64
		trials   = 100
	)

	for trial := 0; trial < trials; trial++ {
		tr := newReleaseTracker()
		px, cx := NewWithRelease[int](capacity, tr.release)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				err := px.Send(tr.newValue())
				if err == nil {
					continue
				}
				var se *SendError[int]
				if !errors.As(err, &se) {
					t.Errorf("trial %d: expected *SendError[int], got %v", trial, err)
					return
				}
				// rejected value came back to us, dispose of it explicitly
				tr.release(se.Value)
				return
			}
		}()

		// random drop timing relative to the producer
		receives := int(fastrand.Uint32n(2 * capacity))
		for i := 0; i < receives; i++ {
			v, err := cx.Recv()
			if err != nil {
				t.Fatalf("trial %d: recv %d failed: %v", trial, i, err)
			}
			tr.release(v)
		}
		cx.Close()

		<-done
		px.Close()

		tr.verify(t, trial)
	}
}

// Close is idempotent on both handles, and teardown releases the values
// still buffered exactly once no matter how often Close is repeated.
func TestSPSCDoubleClose(t *testing.T) {
	tr := newReleaseTracker()
	px, cx := NewWithRelease[int](8, tr.release)

	for i := 0; i < 3; i++ {
		if err := px.Send(tr.newValue()); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	px.Close()
	px.Close()
	cx.Close()
	cx.Close()

	tr.verify(t, 0)
}
