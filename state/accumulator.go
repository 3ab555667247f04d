package state

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fumin/qdmc/spin"
)

// Accumulator owns exactly one shard for the duration of a build. Its
// consumer goroutine folds the stream of updates pushed through push
// into the shard with no synchronisation beyond the ring: only the
// consumer ever touches the shard's map while a build is in progress.
type Accumulator struct {
	shardIdx int
	m        map[spin.Key]complex128
	hardCap  int
	softCap  int
	warn     io.Writer

	q       ring
	done    atomic.Bool
	hardHit atomic.Bool
	wg      sync.WaitGroup
}

func newAccumulator(shardIdx int, m map[spin.Key]complex128, hardCap, softCap int) *Accumulator {
	return &Accumulator{
		shardIdx: shardIdx,
		m:        m,
		hardCap:  hardCap,
		softCap:  softCap,
		warn:     os.Stderr,
	}
}

// start spawns the consumer goroutine. Contract: the producer must not
// call push concurrently with a call to start.
func (a *Accumulator) start() {
	a.done.Store(false)
	a.wg.Add(1)
	go a.run()
}

// stop signals termination and joins the consumer, which first finishes
// draining the ring. The producer must have ceased all push calls before
// stop is called, so that the post-loop drain observes every enqueued
// record.
func (a *Accumulator) stop() {
	a.done.Store(true)
	a.wg.Wait()
}

// push enqueues an update, spinning until the ring has room. It is safe
// to call only from the single producer goroutine.
func (a *Accumulator) push(rec record) {
	for !a.q.tryPush(rec) {
		runtime.Gosched()
	}
}

func (a *Accumulator) run() {
	defer a.wg.Done()
	var rec record
	var ok bool
	for !a.done.Load() {
		if rec, ok = a.q.tryPop(); ok {
			a.process(rec)
		} else {
			runtime.Gosched()
		}
	}
	for rec, ok = a.q.tryPop(); ok; rec, ok = a.q.tryPop() {
		a.process(rec)
	}
}

func (a *Accumulator) process(rec record) {
	k := rec.key
	if cur, present := a.m[k]; present {
		a.m[k] = cur + rec.delta
		return
	}
	a.m[k] = rec.delta
	if len(a.m) > a.hardCap {
		fmt.Fprintf(a.warn, "qdmc: WARNING: shard %d exceeded hard cap (%d > %d): truncating to %d\n",
			a.shardIdx, len(a.m), a.hardCap, a.softCap)
		a.hardHit.Store(true)
		// Always deterministic regardless of the State's configured Mode:
		// this is a cheap, failure-free safety valve against unbounded
		// mid-build growth, not the run's truncation policy. The final
		// shrink after Builder.Stop applies the configured Mode.
		shrinkMapDeterministic(a.m, a.softCap)
	}
}
