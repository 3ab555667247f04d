package state

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/spin"
)

// entry pairs a key with its squared-magnitude weight, the unit both
// truncation policies operate on.
type entry struct {
	key    spin.Key
	shard  int
	weight float64
}

// shrinkMapDeterministic removes the len(m)-target lowest |amplitude|²
// entries from m so that len(m) == target, or leaves m untouched if it is
// already at or below target. Used by an Accumulator's mid-build
// emergency shrink of its own shard; the global deterministic Truncator
// (State.shrinkDeterministic) has its own loop over all shards.
func shrinkMapDeterministic(m map[spin.Key]complex128, target int) {
	if len(m) <= target {
		return
	}
	type kv struct {
		key    spin.Key
		weight float64
	}
	all := make([]kv, 0, len(m))
	for k, v := range m {
		all = append(all, kv{key: k, weight: sqAbs(v)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].weight < all[j].weight })
	remove := len(all) - target
	for i := 0; i < remove; i++ {
		delete(m, all[i].key)
	}
}

// Shrink reduces s to at most its configured soft cap, using s's
// configured Mode. It must be called strictly outside a build (after
// Builder.Stop returns) — truncation touches more than one shard's map at
// once in the deterministic case and rebuilds the whole state in the
// stochastic case, both of which would violate shard-exclusive ownership
// during a build.
func (s *State) Shrink() error {
	if s.Len() <= s.cfg.SoftCap {
		return nil
	}
	switch s.cfg.Mode {
	case Deterministic:
		return s.shrinkDeterministic()
	case Stochastic:
		return s.shrinkStochastic()
	default:
		panic(errs.New(errs.Internal, "state: unknown truncation mode %d", s.cfg.Mode))
	}
}

func (s *State) shrinkDeterministic() error {
	all := make([]entry, 0, s.Len())
	for i := range s.shards {
		for k, v := range s.shards[i].m {
			all = append(all, entry{key: k, shard: i, weight: sqAbs(v)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].weight < all[j].weight })
	remove := len(all) - s.cfg.SoftCap
	for i := 0; i < remove; i++ {
		delete(s.shards[all[i].shard].m, all[i].key)
	}
	return nil
}

func (s *State) shrinkStochastic() error {
	all := make([]entry, 0, s.Len())
	weights := make([]float64, 0, s.Len())
	amps := make([]complex128, 0, s.Len())
	for i := range s.shards {
		for k, v := range s.shards[i].m {
			all = append(all, entry{key: k, shard: i, weight: sqAbs(v)})
			weights = append(weights, sqAbs(v))
			amps = append(amps, v)
		}
	}
	if floats.Sum(weights) == 0 {
		return errs.New(errs.Numeric, "state: cannot resample: all truncation weights are zero")
	}

	table, err := newAliasTable(weights)
	if err != nil {
		return err
	}

	sampled := make(map[spin.Key]complex128, s.cfg.SoftCap)
	for i := 0; i < s.cfg.SoftCap; i++ {
		idx := table.sample()
		sampled[all[idx].key] += amps[idx]
	}

	for i := range s.shards {
		s.shards[i].m = make(map[spin.Key]complex128, s.cfg.HardCap/s.cfg.Shards+1)
	}
	for k, v := range sampled {
		sh := &s.shards[s.ShardIndex(k)]
		sh.m[k] = v
	}
	return nil
}

// aliasNone marks an entry that never redirects to an alias: the
// "remaining large" and float-error "remaining small" cases of Walker's
// construction.
const aliasNone = -1

// aliasTable implements Walker's alias method for O(1) weighted sampling
// with replacement.
type aliasTable struct {
	prob  []float64
	alias []int
}

func newAliasTable(weights []float64) (*aliasTable, error) {
	n := len(weights)
	w := make([]float64, n)
	copy(w, weights)

	sum := floats.Sum(w)
	if sum == 0 {
		return nil, errs.New(errs.Numeric, "state: cannot normalise: all weights are zero")
	}
	scale := float64(n) / sum
	floats.Scale(scale, w)

	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, wi := range w {
		if wi < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	prob := make([]float64, n)
	alias := make([]int, n)

	si, li := 0, 0
	for si < len(small) && li < len(large) {
		lo, hi := small[si], large[li]
		prob[lo] = w[lo]
		alias[lo] = hi
		w[hi] = w[hi] + w[lo] - 1
		if w[hi] < 1 {
			small[si] = hi
			li++
		} else {
			si++
		}
	}
	for ; li < len(large); li++ {
		prob[large[li]] = 1
		alias[large[li]] = aliasNone
	}
	for ; si < len(small); si++ {
		prob[small[si]] = 1
		alias[small[si]] = aliasNone
	}

	return &aliasTable{prob: prob, alias: alias}, nil
}

func (t *aliasTable) sample() int {
	n := len(t.prob)
	i := rand.IntN(n)
	u := rand.Float64()
	if u < t.prob[i] || t.alias[i] == aliasNone {
		return i
	}
	return t.alias[i]
}
