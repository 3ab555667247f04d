package state

import (
	"sync/atomic"

	"github.com/fumin/qdmc/spin"
)

// ringCapacity is the fixed SPSC ring capacity. Capacity must be a power
// of two so index wrap is a mask, not a modulo.
const ringCapacity = 1024

// record is one additive update: add delta to the amplitude of key.
type record struct {
	key   spin.Key
	delta complex128
}

// ring is a fixed-capacity single-producer/single-consumer queue built on
// atomic head/tail counters — no mutex anywhere in the core. Exactly one
// goroutine may call push, exactly one (a different one) may call pop.
type ring struct {
	buf  [ringCapacity]record
	head atomic.Uint64 // advanced only by the consumer
	tail atomic.Uint64 // advanced only by the producer
}

// tryPush attempts to enqueue rec without blocking. It returns false if
// the ring is full; the caller (Accumulator.push) retries.
func (r *ring) tryPush(rec record) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= ringCapacity {
		return false
	}
	r.buf[tail%ringCapacity] = rec
	r.tail.Store(tail + 1)
	return true
}

// tryPop attempts to dequeue one record. It returns false if the ring is
// empty.
func (r *ring) tryPop() (record, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return record{}, false
	}
	rec := r.buf[head%ringCapacity]
	r.head.Store(head + 1)
	return rec, true
}

// empty reports whether the ring currently holds no records. Only safe
// to treat as authoritative from the consumer side. The consumer's
// post-done drain loop does not call it: it pops until tryPop reports
// an empty ring.
func (r *ring) empty() bool {
	return r.head.Load() == r.tail.Load()
}
