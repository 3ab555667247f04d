package diffusion

import (
	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/hamiltonian"
	"github.com/fumin/qdmc/spin"
	"github.com/fumin/qdmc/state"
)

// Energy computes ⟨ψ|H|ψ⟩: build a temporary φ = H|ψ⟩ using the same
// Accumulator pattern as Step (without the Λ term), then sum
// conj(c)·φ[σ] over every (σ, c) in ψ.
func Energy(h hamiltonian.Operator, psi *state.State) (complex128, error) {
	phi, err := psi.Clone()
	if err != nil {
		panic(errs.Wrap(errs.Internal, err, "diffusion: Energy: cloning state shape"))
	}

	b := state.NewBuilder(phi)
	b.Start()
	psi.ForEach(func(k spin.Key, c complex128) {
		h.Apply(k, c, b)
	})
	b.Stop()

	var sum complex128
	psi.ForEach(func(k spin.Key, c complex128) {
		if v, ok := phi.Get(k); ok {
			sum += complexConj(c) * v
		}
	})
	return sum, nil
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
