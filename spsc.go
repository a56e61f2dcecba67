// Package spsc provides a bounded single-producer/single-consumer channel:
// a fixed-capacity ring buffer shared between exactly one Producer handle
// and one Consumer handle. Backpressure and starvation are expressed as
// spin-retry loops, never as blocking on a scheduler primitive.
//
// Synchronization model: 'write' and 'read' are monotonically increasing
// logical indices (physical slot = index & mask, so they never wrap). The
// producer is the only writer of 'write', the consumer the only writer of
// 'read'; each side loads the other's cursor to decide whether it may
// proceed, so a plain atomic store publishes a cursor update and no
// compare-and-swap is needed anywhere on the hot path. Go's sync/atomic
// loads and stores are sequentially consistent, which subsumes the
// acquire/release pairing the slot hand-off requires: the slot write
// happens before the cursor store that makes the slot visible to the
// consumer, and the slot read (and zeroing) happens before the cursor
// store that frees the slot for reuse by the producer.
package spsc

import "sync/atomic"

// DefaultCapacity is a reasonable ring size for latency-sensitive hand-off.
const DefaultCapacity = 512

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

type ring[T any] struct {
	// Optional padding to avoid false sharing between frequently accessed fields
	_            [64]byte
	mask         uint64
	capacity     uint64
	slots        []T
	release      func(T)
	_            [64]byte
	write        atomic.Uint64 // logical "tail", updated only by the producer
	_            [64]byte
	read         atomic.Uint64 // logical "head", updated only by the consumer
	_            [64]byte
	producerLive atomic.Uint32 // 1 while the producer handle is open
	consumerLive atomic.Uint32 // 1 while the consumer handle is open
	handles      atomic.Int32  // open handle count; the close that hits 0 tears down
}

// New creates a bounded SPSC channel and returns its two handles.
// Capacity must be a power of two (1<<k).
//
// Send may only be called from a single producer goroutine and Recv from a
// single consumer goroutine; the handles themselves may live on different
// goroutines than the one that created them.
func New[T any](capacity uint64) (*Producer[T], *Consumer[T]) {
	return NewWithRelease[T](capacity, nil)
}

// NewWithRelease is New with a release hook: once both handles are closed,
// every value that was sent but never received is passed to release exactly
// once as part of the final teardown. Values returned by Recv are owned by
// the receiver and never passed to release. A nil release simply lets the
// zeroed slots drop their references for the GC.
func NewWithRelease[T any](capacity uint64, release func(T)) (*Producer[T], *Consumer[T]) {
	if capacity == 0 || (capacity&(capacity-1)) != 0 {
		panic("capacity must be power of 2 and > 0")
	}

	r := &ring[T]{
		mask:     capacity - 1,
		capacity: capacity,
		slots:    make([]T, capacity),
		release:  release,
	}
	r.producerLive.Store(1)
	r.consumerLive.Store(1)
	r.handles.Store(2)

	return &Producer[T]{ring: r}, &Consumer[T]{ring: r}
}

// drain releases every slot still occupied once both handles are closed.
// It runs on the goroutine that closed the last handle; at that point no
// peer can touch the cursors anymore, so there is no concurrent access.
func (r *ring[T]) drain() {
	var zero T
	end := r.write.Load()
	for pos := r.read.Load(); pos < end; pos++ {
		s := &r.slots[pos&r.mask]
		if r.release != nil {
			r.release(*s)
		}
		*s = zero
	}
	r.read.Store(end)
}

// closeSide transitions one liveness flag 1->0 and reports whether this
// close was the last one (and therefore must tear the shared state down).
func (r *ring[T]) closeSide(live *atomic.Uint32) bool {
	if !live.CompareAndSwap(1, 0) {
		return false
	}
	return r.handles.Add(-1) == 0
}

func (r *ring[T]) len() uint64 {
	return r.write.Load() - r.read.Load()
}
