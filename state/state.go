// Package state implements the sharded amplitude table together with its
// lock-free accumulation pipeline (Accumulator/Builder) and truncation
// policies. A State owns N independent shards; every key belongs to
// exactly one, chosen by the high bits of its first byte, so the pieces
// that must route a key to a shard never need to consult a hash table.
package state

import (
	"math"
	"math/bits"

	"gonum.org/v1/gonum/floats"

	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/spin"
)

// Mode selects the truncation policy a State shrinks with.
type Mode int

const (
	// Deterministic drops the entries with the smallest |amplitude|².
	Deterministic Mode = iota
	// Stochastic resamples with replacement, weighted by |amplitude|²,
	// using Walker's alias method.
	Stochastic
)

// Config holds the parameters a State is built with: shard count,
// truncation caps, and policy.
type Config struct {
	// Shards is N, the number of independent maps. Must be a power of two.
	Shards int
	// SoftCap is the target size after a shrink. Must be >= 2.
	SoftCap int
	// HardCap is the emergency threshold enforced mid-build. Must be >= SoftCap.
	HardCap int
	Mode    Mode
}

// maxShards mirrors original_source's limit of a single byte's worth of
// shard indices (a std::byte index mask).
const maxShards = 256

// Validate checks the parameter invariants a Config must satisfy,
// returning a ConfigError describing the first violation found.
func (c Config) Validate() error {
	if c.Shards <= 0 || c.Shards&(c.Shards-1) != 0 {
		return errs.New(errs.Config, "shard count %d is not a power of two", c.Shards)
	}
	if c.Shards > maxShards {
		return errs.New(errs.Config, "shard count %d exceeds the maximum of %d", c.Shards, maxShards)
	}
	if c.SoftCap < 2 {
		return errs.New(errs.Config, "soft cap %d must be at least 2", c.SoftCap)
	}
	if c.HardCap < c.SoftCap {
		return errs.New(errs.Config, "hard cap %d must be at least the soft cap %d", c.HardCap, c.SoftCap)
	}
	if c.Mode != Deterministic && c.Mode != Stochastic {
		return errs.New(errs.Config, "unknown truncation mode %d", c.Mode)
	}
	return nil
}

// shard is one of the N independent amplitude maps.
type shard struct {
	mu struct{} // documents that shard is never locked: ownership, not mutexes, guards it
	m  map[spin.Key]complex128
}

// State is the sharded amplitude table: N maps partitioning the set of
// basis configurations currently carried by the power-iteration.
type State struct {
	cfg       Config
	shardBits uint
	shards    []shard
}

// New allocates an empty State with the given configuration.
func New(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &State{
		cfg:       cfg,
		shardBits: uint(bits.TrailingZeros(uint(cfg.Shards))),
		shards:    make([]shard, cfg.Shards),
	}
	for i := range s.shards {
		s.shards[i].m = make(map[spin.Key]complex128, cfg.HardCap/cfg.Shards+1)
	}
	return s, nil
}

// Config returns the configuration State was built with.
func (s *State) Config() Config { return s.cfg }

// ShardIndex returns shard(k): the top log2(Shards) bits of k's first byte.
func (s *State) ShardIndex(k spin.Key) int {
	b := k.Bytes()
	return int(b[0] >> (8 - s.shardBits))
}

// Get looks up the amplitude of k, if present.
func (s *State) Get(k spin.Key) (complex128, bool) {
	sh := &s.shards[s.ShardIndex(k)]
	v, ok := sh.m[k]
	return v, ok
}

// Set writes the amplitude of k, overwriting any existing value. Only
// the driver, between builds, may call this.
func (s *State) Set(k spin.Key, v complex128) {
	sh := &s.shards[s.ShardIndex(k)]
	sh.m[k] = v
}

// Delete removes k if present.
func (s *State) Delete(k spin.Key) {
	sh := &s.shards[s.ShardIndex(k)]
	delete(sh.m, k)
}

// Len returns the total number of entries across all shards.
func (s *State) Len() int {
	n := 0
	for i := range s.shards {
		n += len(s.shards[i].m)
	}
	return n
}

// NumShards returns N.
func (s *State) NumShards() int { return len(s.shards) }

// ShardLen returns the number of entries in shard i.
func (s *State) ShardLen(i int) int { return len(s.shards[i].m) }

// ForEach calls fn once per (key, amplitude) pair. Iteration order is
// unspecified.
func (s *State) ForEach(fn func(spin.Key, complex128)) {
	for i := range s.shards {
		for k, v := range s.shards[i].m {
			fn(k, v)
		}
	}
}

// Normalise divides every amplitude by sqrt(Σ|amplitude|²), restoring the
// unit-ℓ² norm expected between power-iteration steps. It is a no-op on
// an empty state.
func (s *State) Normalise() error {
	if s.Len() == 0 {
		return nil
	}
	weights := make([]float64, 0, s.Len())
	s.ForEach(func(_ spin.Key, v complex128) {
		weights = append(weights, sqAbs(v))
	})
	sum := floats.Sum(weights)
	if sum == 0 {
		return errs.New(errs.Numeric, "cannot normalise: total weight is zero")
	}
	scale := complex(1/math.Sqrt(sum), 0)
	for i := range s.shards {
		for k, v := range s.shards[i].m {
			s.shards[i].m[k] = v * scale
		}
	}
	return nil
}

// Clone allocates a new, empty State sharing cfg with s. It is used by
// the driver and the energy estimator to build a fresh φ with the same
// shape as ψ.
func (s *State) Clone() (*State, error) {
	return New(s.cfg)
}

func sqAbs(v complex128) float64 {
	re, im := real(v), imag(v)
	return re*re + im*im
}
