// Package diffusion implements the power-iteration driver: one application
// of the diffusion operator (Λ − H) to a state, including truncation and
// renormalisation, iterated n times.
package diffusion

import (
	"time"

	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/hamiltonian"
	"github.com/fumin/qdmc/spin"
	"github.com/fumin/qdmc/state"
)

// Progress is called once before each iteration of Run, the way
// original_source's diffusion_loop reports an ETA based on the running
// maximum iteration time seen so far. haveETA is false for the first
// call, when no iteration has completed yet.
type Progress func(i, n int, eta time.Duration, haveETA bool)

// Step performs one Trotter/diffusion application: φ += −H|ψ⟩ + Λ|ψ⟩,
// truncated to the soft cap and renormalised.
func Step(lambda float64, h hamiltonian.Operator, psi *state.State) (*state.State, error) {
	phi, _, err := step(lambda, h, psi)
	return phi, err
}

// StepDiagnostics is Step plus whether the build's emergency hard-cap
// truncation fired, the way a diagnostics.Store tracks it per iteration.
func StepDiagnostics(lambda float64, h hamiltonian.Operator, psi *state.State) (*state.State, bool, error) {
	return step(lambda, h, psi)
}

func step(lambda float64, h hamiltonian.Operator, psi *state.State) (*state.State, bool, error) {
	phi, err := psi.Clone()
	if err != nil {
		panic(errs.Wrap(errs.Internal, err, "diffusion: Step: cloning state shape"))
	}

	b := state.NewBuilder(phi)
	b.Start()
	psi.ForEach(func(k spin.Key, c complex128) {
		h.Apply(k, -c, b)
		b.Add(c*complex(lambda, 0), k)
	})
	b.Stop()
	hardCapHit := b.HardCapHit()

	if err := phi.Shrink(); err != nil {
		if errs.Is(err, errs.Internal) {
			panic(errs.Wrap(errs.Internal, err, "diffusion: Step: shrink"))
		}
		return nil, hardCapHit, err
	}
	if err := phi.Normalise(); err != nil {
		return nil, hardCapHit, err
	}
	return phi, hardCapHit, nil
}

// Run applies (Λ − H) to psi0 n times, n ≥ 1. progress, if non-nil, is
// called once before each iteration with an ETA estimated from the
// running maximum iteration duration seen so far.
func Run(lambda float64, h hamiltonian.Operator, psi0 *state.State, n int, progress Progress) (*state.State, error) {
	if n <= 0 {
		return nil, errs.New(errs.Config, "diffusion: Run: iteration count %d must be positive", n)
	}

	psi := psi0
	var maxDur time.Duration
	for i := 0; i < n; i++ {
		if progress != nil {
			if i == 0 {
				progress(i+1, n, 0, false)
			} else {
				progress(i+1, n, time.Duration(n-i)*maxDur, true)
			}
		}
		start := time.Now()
		next, err := Step(lambda, h, psi)
		if err != nil {
			return nil, err
		}
		psi = next
		if d := time.Since(start); d > maxDur {
			maxDur = d
		}
	}
	return psi, nil
}
