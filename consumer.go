package spsc

import "runtime"

// Consumer is the receiving half of the channel. Recv must be called from a
// single consumer goroutine; Close makes the handle permanently unusable.
type Consumer[T any] struct {
	ring *ring[T]
}

// Recv returns the oldest buffered value. Values arrive in exactly the
// order Send was called. Recv spins while the buffer is empty and the
// producer handle is still open; once the producer is gone and the buffer
// is drained it fails with ErrClosed, now and forever.
func (c *Consumer[T]) Recv() (T, error) {
	r := c.ring
	var zero T
	var spins uint32
	for {
		pos := r.read.Load()
		if pos < r.write.Load() {
			s := &r.slots[pos&r.mask]
			v := *s
			*s = zero
			// free the slot: the cursor store comes after the value is out
			r.read.Store(pos + 1)
			return v, nil
		}

		// The producer publishes the cursor before dropping its liveness
		// flag, so seeing producerLive==0 here means the re-loaded write
		// cursor already covers everything that was ever sent.
		if r.producerLive.Load() == 0 && pos == r.write.Load() {
			return zero, ErrClosed
		}

		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Close signals permanent consumer departure: every later Send fails with
// *SendError[T]. Idempotent. The second handle to close tears the shared
// state down, releasing any values still buffered.
func (c *Consumer[T]) Close() {
	r := c.ring
	if r.closeSide(&r.consumerLive) {
		r.drain()
	}
}

// Len returns a snapshot of the number of buffered values.
func (c *Consumer[T]) Len() uint64 {
	return c.ring.len()
}

// Capacity returns the fixed channel capacity.
func (c *Consumer[T]) Capacity() uint64 {
	return c.ring.capacity
}
