package state

import "github.com/fumin/qdmc/spin"

// Builder is the fan-out façade: a single Add sink that routes every
// update to the Accumulator owning its shard. Routing relies solely on
// the key's high bits (State.ShardIndex); a Builder never inspects or
// mutates a shard directly.
type Builder struct {
	state *State
	accs  []*Accumulator
}

// NewBuilder allocates one Accumulator per shard of s. The returned
// Builder must be Started before Add is called and Stopped when the
// caller (a single producer, by construction of the power-iteration
// driver) is done feeding it.
func NewBuilder(s *State) *Builder {
	perShardHard := ceilDiv(s.cfg.HardCap, s.cfg.Shards)
	perShardSoft := ceilDiv(s.cfg.SoftCap, s.cfg.Shards)
	if perShardSoft < 1 {
		perShardSoft = 1
	}

	b := &Builder{state: s, accs: make([]*Accumulator, len(s.shards))}
	for i := range s.shards {
		b.accs[i] = newAccumulator(i, s.shards[i].m, perShardHard, perShardSoft)
	}
	return b
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Start spawns every Accumulator's consumer goroutine.
func (b *Builder) Start() {
	for _, a := range b.accs {
		a.start()
	}
}

// Stop signals termination to every Accumulator and joins its consumer.
// After Stop returns, every Add call made before it is fully reflected in
// the underlying State — joining the consumer threads establishes the
// happens-before edge the caller relies on to read the result safely.
func (b *Builder) Stop() {
	for _, a := range b.accs {
		a.stop()
	}
}

// Add enqueues amplitude as a delta to be folded into key's amplitude.
// Safe to call only from the single producer goroutine between Start and
// Stop.
func (b *Builder) Add(amplitude complex128, key spin.Key) {
	idx := b.state.ShardIndex(key)
	b.accs[idx].push(record{key: key, delta: amplitude})
}

// HardCapHit reports whether any shard's emergency hard-cap truncation
// fired during this build. Valid only after Stop has returned.
func (b *Builder) HardCapHit() bool {
	for _, a := range b.accs {
		if a.hardHit.Load() {
			return true
		}
	}
	return false
}
