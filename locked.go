package spsc

import (
	"runtime"
	"sync/atomic"
)

// Spinlock-guarded flavor of the same channel contract. One exclusive-access
// flag covers the cursor reads, the capacity check and the cursor update as
// a single critical section on each side, trading throughput for a mutual-
// exclusion correctness argument instead of per-field ordering. The flag is
// acquired by busy retry and never parks the thread; it is released on every
// path, including the full/empty retry path, so the peer can always make
// progress.

type spinLock struct {
	held atomic.Uint32
}

func (l *spinLock) lock() {
	var spins uint32
	for !l.held.CompareAndSwap(0, 1) {
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

func (l *spinLock) unlock() {
	l.held.Store(0)
}

// lockedRing is the shared state of the locked flavor. Every field below
// the lock is guarded by it; none needs to be atomic on its own.
type lockedRing[T any] struct {
	lock spinLock

	mask     uint64
	capacity uint64
	slots    []T
	release  func(T)

	write uint64
	read  uint64

	producerLive bool
	consumerLive bool
	handles      int
}

// LockedProducer is the sending half of the spinlock-guarded channel.
type LockedProducer[T any] struct {
	ring *lockedRing[T]
}

// LockedConsumer is the receiving half of the spinlock-guarded channel.
type LockedConsumer[T any] struct {
	ring *lockedRing[T]
}

// NewLocked creates a spinlock-guarded SPSC channel with the same external
// contract as New. Capacity must be a power of two (1<<k).
func NewLocked[T any](capacity uint64) (*LockedProducer[T], *LockedConsumer[T]) {
	return NewLockedWithRelease[T](capacity, nil)
}

// NewLockedWithRelease is NewLocked with the release hook of NewWithRelease.
func NewLockedWithRelease[T any](capacity uint64, release func(T)) (*LockedProducer[T], *LockedConsumer[T]) {
	if capacity == 0 || (capacity&(capacity-1)) != 0 {
		panic("capacity must be power of 2 and > 0")
	}

	r := &lockedRing[T]{
		mask:         capacity - 1,
		capacity:     capacity,
		slots:        make([]T, capacity),
		release:      release,
		producerLive: true,
		consumerLive: true,
		handles:      2,
	}

	return &LockedProducer[T]{ring: r}, &LockedConsumer[T]{ring: r}
}

// drain is called under the lock by the close that brought handles to 0.
func (r *lockedRing[T]) drain() {
	var zero T
	for ; r.read < r.write; r.read++ {
		s := &r.slots[r.read&r.mask]
		if r.release != nil {
			r.release(*s)
		}
		*s = zero
	}
}

// Send hands v to the consumer, spinning while the buffer is full. Once the
// consumer handle is closed it fails with *SendError[T] carrying v back.
func (p *LockedProducer[T]) Send(v T) error {
	r := p.ring
	var spins uint32
	for {
		r.lock.lock()

		if !r.consumerLive {
			r.lock.unlock()
			return &SendError[T]{Value: v}
		}

		if r.write-r.read < r.capacity {
			r.slots[r.write&r.mask] = v
			r.write++
			r.lock.unlock()
			return nil
		}

		// buffer full: drop the lock before retrying so the consumer can drain
		r.lock.unlock()
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Close signals permanent producer departure. Idempotent.
func (p *LockedProducer[T]) Close() {
	r := p.ring
	r.lock.lock()
	if r.producerLive {
		r.producerLive = false
		r.handles--
		if r.handles == 0 {
			r.drain()
		}
	}
	r.lock.unlock()
}

// Capacity returns the fixed channel capacity.
func (p *LockedProducer[T]) Capacity() uint64 {
	return p.ring.capacity
}

// Recv returns the oldest buffered value in send order, spinning while the
// buffer is empty and the producer handle is still open. Once the producer
// is gone and the buffer is drained it fails with ErrClosed, permanently.
func (c *LockedConsumer[T]) Recv() (T, error) {
	r := c.ring
	var zero T
	var spins uint32
	for {
		r.lock.lock()

		if r.read < r.write {
			s := &r.slots[r.read&r.mask]
			v := *s
			*s = zero
			r.read++
			r.lock.unlock()
			return v, nil
		}

		if !r.producerLive {
			r.lock.unlock()
			return zero, ErrClosed
		}

		// buffer empty: drop the lock before retrying so the producer can fill
		r.lock.unlock()
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Close signals permanent consumer departure. Idempotent.
func (c *LockedConsumer[T]) Close() {
	r := c.ring
	r.lock.lock()
	if r.consumerLive {
		r.consumerLive = false
		r.handles--
		if r.handles == 0 {
			r.drain()
		}
	}
	r.lock.unlock()
}

// Capacity returns the fixed channel capacity.
func (c *LockedConsumer[T]) Capacity() uint64 {
	return c.ring.capacity
}
