package spsc

import "runtime"

// Producer is the sending half of the channel. Send must be called from a
// single producer goroutine; Close may be called at most usefully once and
// makes the handle permanently unusable.
type Producer[T any] struct {
	ring *ring[T]
}

// Send hands v to the consumer. It spins while the buffer is full, bounded
// only by the consumer eventually draining a slot; there is no timeout.
// Once the consumer handle is closed, Send fails with *SendError[T]
// carrying v back to the caller, and the ring state is left untouched.
func (p *Producer[T]) Send(v T) error {
	r := p.ring
	var spins uint32
	for {
		if r.consumerLive.Load() == 0 {
			return &SendError[T]{Value: v}
		}

		w := r.write.Load()
		if w-r.read.Load() < r.capacity {
			r.slots[w&r.mask] = v
			// publish the slot: the cursor store comes after the value write
			r.write.Store(w + 1)
			return nil
		}

		// buffer full, wait for the consumer to free a slot
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Close signals permanent producer departure: the consumer will observe
// ErrClosed once the buffer is drained. Idempotent. The second handle to
// close tears the shared state down.
func (p *Producer[T]) Close() {
	r := p.ring
	if r.closeSide(&r.producerLive) {
		r.drain()
	}
}

// Len returns a snapshot of the number of buffered values.
func (p *Producer[T]) Len() uint64 {
	return p.ring.len()
}

// Capacity returns the fixed channel capacity.
func (p *Producer[T]) Capacity() uint64 {
	return p.ring.capacity
}
