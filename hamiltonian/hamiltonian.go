// Package hamiltonian implements the Heisenberg-style operator H: given
// a basis configuration and an incoming coefficient, it emits H's
// contributions into a state.Builder. The driver (package diffusion) is
// polymorphic over any Operator, not just Heisenberg.
package hamiltonian

import (
	"github.com/fumin/qdmc/spin"
	"github.com/fumin/qdmc/state"
)

// Operator applies itself to a single basis configuration, scaling its
// contribution by coeff and routing every term through b. Implementations
// must be pure with respect to their inputs apart from b's side effects.
type Operator interface {
	Apply(key spin.Key, coeff complex128, b *state.Builder)
}

// Term is one (coupling, adjacency list) entry of a Heisenberg
// specification: a shared coupling strength applied to every edge.
type Term struct {
	Coupling complex128
	Edges    [][2]int
}

// Heisenberg is a sum-of-edge-couplings Heisenberg Hamiltonian: the sole
// shape this module's Hamiltonians take.
type Heisenberg struct {
	Terms []Term
}

// New builds a Heisenberg operator from its term list. The term list is
// not copied; callers should treat it as immutable after passing it in.
func New(terms []Term) *Heisenberg {
	return &Heisenberg{Terms: terms}
}

// Apply emits the contributions of H|σ⟩, scaled by coeff, into b. For
// each term (J, edges) and each edge (i, j):
//
//	aligned := σ[i] == σ[j]
//	sign    := 2·aligned - 1  (∈ {-1, +1})
//	emit (sign · coeff · J, σ)
//	if !aligned: emit (2 · coeff · J, σ with i and j flipped)
func (h *Heisenberg) Apply(key spin.Key, coeff complex128, b *state.Builder) {
	for _, term := range h.Terms {
		for _, edge := range term.Edges {
			i, j := edge[0], edge[1]
			aligned := key.At(i) == key.At(j)
			var sign float64 = -1
			if aligned {
				sign = 1
			}
			b.Add(complex(sign, 0)*coeff*term.Coupling, key)
			if !aligned {
				b.Add(2*coeff*term.Coupling, key.Flipped(i, j))
			}
		}
	}
}
