package ioformat

import (
	"strings"
	"testing"

	"github.com/fumin/qdmc/spin"
	"github.com/fumin/qdmc/state"
)

func TestReadStateBasic(t *testing.T) {
	t.Parallel()
	input := "# a comment\n\n01\t1.5\t-2\n10\t0\t1\n"
	s, err := ReadState(strings.NewReader(input), state.Config{Shards: 1, SoftCap: 10, HardCap: 20, Mode: state.Deterministic})
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("got %d entries, want 2", s.Len())
	}
	v, ok := s.Get(spin.New([]byte{0, 1}))
	if !ok || v != complex(1.5, -2) {
		t.Fatalf("got %v, ok=%v, want 1.5-2i", v, ok)
	}
}

func TestReadStateRejectsDuplicateKey(t *testing.T) {
	t.Parallel()
	input := "01\t1\t0\n01\t2\t0\n"
	_, err := ReadState(strings.NewReader(input), state.Config{Shards: 1, SoftCap: 10, HardCap: 20, Mode: state.Deterministic})
	if err == nil {
		t.Fatalf("expected a ParseError for duplicate key")
	}
}

func TestReadStateRejectsMalformedLine(t *testing.T) {
	t.Parallel()
	cases := []string{
		"012\tnot-a-number\t0\n",
		"0102\t1\n",           // missing field
		"0102\t1\t0\textra\n", // too many fields
	}
	for _, in := range cases {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := ReadState(strings.NewReader(in), state.Config{Shards: 1, SoftCap: 10, HardCap: 20, Mode: state.Deterministic})
			if err == nil {
				t.Fatalf("expected an error parsing %q", in)
			}
		})
	}
}

func TestWriteStateThenReadStateRoundTrips(t *testing.T) {
	t.Parallel()
	s, err := state.New(state.Config{Shards: 2, SoftCap: 10, HardCap: 20, Mode: state.Deterministic})
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	s.Set(spin.New([]byte{1, 0, 1}), complex(0.5, 0.25))
	s.Set(spin.New([]byte{0, 0, 0}), complex(-1, 3))

	var buf strings.Builder
	if err := WriteState(&buf, s); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	got, err := ReadState(strings.NewReader(buf.String()), s.Config())
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.Len() != s.Len() {
		t.Fatalf("got %d entries, want %d", got.Len(), s.Len())
	}
	s.ForEach(func(k spin.Key, v complex128) {
		gv, ok := got.Get(k)
		if !ok || gv != v {
			t.Fatalf("key %s: got %v, ok=%v, want %v", k.String(), gv, ok, v)
		}
	})
}

func TestReadHamiltonianBasic(t *testing.T) {
	t.Parallel()
	input := "# comment\n\n1.0 [(0,1), (1,2)]\n-0.5 []\n"
	h, err := ReadHamiltonian(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadHamiltonian: %v", err)
	}
	if len(h.Terms) != 2 {
		t.Fatalf("got %d terms, want 2", len(h.Terms))
	}
	if h.Terms[0].Coupling != complex(1.0, 0) {
		t.Fatalf("got coupling %v, want 1.0", h.Terms[0].Coupling)
	}
	if len(h.Terms[0].Edges) != 2 || h.Terms[0].Edges[0] != [2]int{0, 1} || h.Terms[0].Edges[1] != [2]int{1, 2} {
		t.Fatalf("got edges %v, want [(0 1) (1 2)]", h.Terms[0].Edges)
	}
	if h.Terms[1].Coupling != complex(-0.5, 0) {
		t.Fatalf("got coupling %v, want -0.5", h.Terms[1].Coupling)
	}
	if len(h.Terms[1].Edges) != 0 {
		t.Fatalf("got %d edges, want 0 for an empty adjacency list", len(h.Terms[1].Edges))
	}
}

func TestReadHamiltonianWhitespaceInsensitive(t *testing.T) {
	t.Parallel()
	input := "   2.5    [  ( 0 , 1 )  ,(2,3)]   \n"
	h, err := ReadHamiltonian(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadHamiltonian: %v", err)
	}
	if len(h.Terms) != 1 || len(h.Terms[0].Edges) != 2 {
		t.Fatalf("got %+v", h.Terms)
	}
}

func TestReadHamiltonianRejectsMissingBracket(t *testing.T) {
	t.Parallel()
	cases := []string{
		"1.0 (0,1)\n",
		"1.0 [(0,1)\n",
		"1.0 [(0,1),]\n",
	}
	for _, in := range cases {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			if _, err := ReadHamiltonian(strings.NewReader(in)); err == nil {
				t.Fatalf("expected an error parsing %q", in)
			}
		})
	}
}

func TestReadHamiltonianEmptyInputIsZeroTerms(t *testing.T) {
	t.Parallel()
	h, err := ReadHamiltonian(strings.NewReader("# nothing but comments\n\n"))
	if err != nil {
		t.Fatalf("ReadHamiltonian: %v", err)
	}
	if len(h.Terms) != 0 {
		t.Fatalf("got %d terms, want 0", len(h.Terms))
	}
}
