// Command qdmc approximates the ground state of a Heisenberg spin-½
// Hamiltonian by power iteration.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/bits"
	"os"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/fumin/qdmc/diagnostics"
	"github.com/fumin/qdmc/diffusion"
	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/hamiltonian"
	"github.com/fumin/qdmc/ioformat"
	"github.com/fumin/qdmc/state"
)

var (
	outPath     = flag.String("o", "", "output file (default: standard output)")
	hamPath     = flag.String("H", "", "Hamiltonian specification file (required)")
	lambda      = flag.Float64("L", 1.0, "diffusion shift Λ")
	iterations  = flag.Int("n", 1, "number of power-iteration steps")
	softCap     = flag.Int("max", 1000, "soft cap: target state size after truncation")
	hardCap     = flag.Int("hard-max", 0, "hard cap: emergency truncation threshold (default 2*max)")
	random      = flag.Bool("random", false, "use stochastic (alias-method) truncation instead of deterministic")
	statsDBPath = flag.String("stats-db", "", "optional SQLite path to log per-iteration diagnostics")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if *hamPath == "" {
		return errs.New(errs.Config, "qdmc: -H <hamiltonian file> is required")
	}
	if *iterations <= 0 {
		return errs.New(errs.Config, "qdmc: -n must be positive, got %d", *iterations)
	}

	inArg := flag.Arg(0)
	if inArg == "" {
		return errs.New(errs.Config, "qdmc: missing positional input file (use \"-\" for standard input)")
	}

	if err := checkAliasing(inArg, *outPath); err != nil {
		return err
	}

	in, closeIn, err := openInput(inArg)
	if err != nil {
		return err
	}
	defer closeIn()

	hamFile, err := os.Open(*hamPath)
	if err != nil {
		return errs.Wrap(errs.IO, err, "qdmc: opening Hamiltonian file %s", *hamPath)
	}
	defer hamFile.Close()
	h, err := ioformat.ReadHamiltonian(hamFile)
	if err != nil {
		return err
	}

	hard := *hardCap
	if hard == 0 {
		hard = 2 * *softCap
	}
	mode := state.Deterministic
	if *random {
		mode = state.Stochastic
	}
	cfg := state.Config{Shards: defaultShards(), SoftCap: *softCap, HardCap: hard, Mode: mode}

	psi0, err := ioformat.ReadState(in, cfg)
	if err != nil {
		return err
	}

	var store *diagnostics.Store
	if *statsDBPath != "" {
		store, err = diagnostics.Open(*statsDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	out, closeOut, err := openOutput(*outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	e0, err := diffusion.Energy(h, psi0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# Result of evaluating (Λ - H)^n|ψ₀⟩ for\n# Λ = %v\n# n = %d\n# E₀ = %v\n", *lambda, *iterations, e0)

	psi, err := run(h, psi0, store)
	if err != nil {
		return err
	}

	ef, err := diffusion.Energy(h, psi)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# => E = %v\n", ef)

	return ioformat.WriteState(out, psi)
}

// run drives the power iteration directly (rather than diffusion.Run)
// so each step's diagnostics — size, hard-cap overrun, wall time — can
// be logged and its progress reported to the terminal.
func run(h *hamiltonian.Heisenberg, psi0 *state.State, store *diagnostics.Store) (*state.State, error) {
	report := newProgress(os.Stderr)
	defer report.done()

	psi := psi0
	var maxDur time.Duration
	ctx := context.Background()
	for i := 0; i < *iterations; i++ {
		if i == 0 {
			report.update(i+1, *iterations, 0, false)
		} else {
			report.update(i+1, *iterations, time.Duration(*iterations-i)*maxDur, true)
		}

		start := time.Now()
		next, hardCapHit, err := diffusion.StepDiagnostics(*lambda, h, psi)
		dur := time.Since(start)
		if err != nil {
			return nil, err
		}
		psi = next
		if dur > maxDur {
			maxDur = dur
		}

		if store != nil {
			e, err := diffusion.Energy(h, psi)
			if err != nil {
				return nil, err
			}
			rec := diagnostics.Record{Iteration: i + 1, Size: psi.Len(), Energy: e, HardCapHit: hardCapHit, Duration: dur}
			if err := store.Log(ctx, rec); err != nil {
				return nil, err
			}
		}
	}
	return psi, nil
}

// progress reports iteration status to w: an overwriting line if w is an
// interactive terminal, one line per iteration otherwise. It mirrors the
// branch original_source's make_status_updater makes with isatty(3).
type progress struct {
	w           io.Writer
	interactive bool
}

func newProgress(w io.Writer) *progress {
	interactive := false
	if f, ok := w.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &progress{w: w, interactive: interactive}
}

func (p *progress) update(i, n int, eta time.Duration, haveETA bool) {
	etaStr := ""
	if haveETA {
		etaStr = fmt.Sprintf(" (eta %s)", eta.Round(time.Millisecond))
	}
	if p.interactive {
		fmt.Fprintf(p.w, "\riteration %d/%d%s\033[K", i, n, etaStr)
	} else {
		fmt.Fprintf(p.w, "iteration %d/%d%s\n", i, n, etaStr)
	}
}

func (p *progress) done() {
	if p.interactive {
		fmt.Fprintln(p.w)
	}
}

func defaultShards() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	shards := 1 << bits.Len(uint(n-1))
	if shards > 256 {
		shards = 256
	}
	return shards
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.IO, err, "qdmc: opening input %s", path)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.IO, err, "qdmc: creating output %s", path)
	}
	return f, func() { f.Close() }, nil
}

// checkAliasing refuses to run when outPath resolves to the same file as
// inPath, the way original_source/src/main.cpp does with
// std::filesystem::equivalent.
func checkAliasing(inPath, outPath string) error {
	if inPath == "-" || outPath == "" {
		return nil
	}
	inInfo, err := os.Stat(inPath)
	if err != nil {
		// Let the real open attempt below report a clearer IoError.
		return nil
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return nil // output does not exist yet: cannot alias.
	}
	if os.SameFile(inInfo, outInfo) {
		return errs.New(errs.Config, "qdmc: output path %q resolves to the same file as input path %q", outPath, inPath)
	}
	return nil
}
