package state

import (
	"math"
	"testing"

	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/spin"
)

func keyFor(i int) spin.Key {
	bits := make([]byte, 8)
	for j := 0; j < 8; j++ {
		bits[j] = byte((i >> j) & 1)
	}
	return spin.New(bits)
}

func TestDeterministicShrinkKeepsLargest(t *testing.T) {
	t.Parallel()
	s := mustNew(t, Config{Shards: 1, SoftCap: 10, HardCap: 12, Mode: Deterministic})
	for i := 0; i < 20; i++ {
		// amplitude decreases with i: i=0 is largest.
		s.Set(keyFor(i), complex(float64(20-i), 0))
	}

	if err := s.Shrink(); err != nil {
		t.Fatalf("Shrink: %v", err)
	}
	if s.Len() != 10 {
		t.Fatalf("got %d entries, want 10", s.Len())
	}
	for i := 0; i < 10; i++ {
		if _, ok := s.Get(keyFor(i)); !ok {
			t.Fatalf("expected key %d (amplitude %d) to survive", i, 20-i)
		}
	}
	for i := 10; i < 20; i++ {
		if _, ok := s.Get(keyFor(i)); ok {
			t.Fatalf("expected key %d (amplitude %d) to be dropped", i, 20-i)
		}
	}
}

func TestShrinkAtExactlySoftCapIsNoop(t *testing.T) {
	t.Parallel()
	s := mustNew(t, Config{Shards: 1, SoftCap: 10, HardCap: 20, Mode: Deterministic})
	for i := 0; i < 10; i++ {
		s.Set(keyFor(i), complex(float64(i+1), 0))
	}
	if err := s.Shrink(); err != nil {
		t.Fatalf("Shrink: %v", err)
	}
	if s.Len() != 10 {
		t.Fatalf("got %d entries, want 10 (no-op)", s.Len())
	}
}

func TestAliasSamplingUniform(t *testing.T) {
	t.Parallel()
	weights := []float64{1, 1, 1, 1}
	table, err := newAliasTable(weights)
	if err != nil {
		t.Fatalf("newAliasTable: %v", err)
	}

	const draws = 1_000_000
	counts := make([]int, len(weights))
	for i := 0; i < draws; i++ {
		counts[table.sample()]++
	}
	for i, c := range counts {
		p := float64(c) / draws
		if math.Abs(p-0.25) > 0.01 {
			t.Fatalf("index %d: empirical probability %v, want ~0.25", i, p)
		}
	}
}

func TestAliasSamplingDegenerate(t *testing.T) {
	t.Parallel()
	weights := []float64{1, 0, 0, 0}
	table, err := newAliasTable(weights)
	if err != nil {
		t.Fatalf("newAliasTable: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if got := table.sample(); got != 0 {
			t.Fatalf("draw %d: got index %d, want 0", i, got)
		}
	}
}

func TestAliasSamplingAllZeroWeightsIsNumericError(t *testing.T) {
	t.Parallel()
	_, err := newAliasTable([]float64{0, 0, 0})
	if err == nil {
		t.Fatalf("expected a NumericError for all-zero weights")
	}
	if !errs.Is(err, errs.Numeric) {
		t.Fatalf("got %v, want a NumericError", err)
	}
}

func TestStochasticShrinkShrinksToSoftCap(t *testing.T) {
	t.Parallel()
	s := mustNew(t, Config{Shards: 4, SoftCap: 10, HardCap: 40, Mode: Stochastic})
	for i := 0; i < 30; i++ {
		s.Set(keyFor(i), complex(float64(i+1), 0))
	}
	if err := s.Shrink(); err != nil {
		t.Fatalf("Shrink: %v", err)
	}
	if s.Len() > 10 {
		t.Fatalf("got %d entries, want <= 10", s.Len())
	}
}
