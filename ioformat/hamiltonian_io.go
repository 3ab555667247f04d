package ioformat

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/hamiltonian"
)

// ReadHamiltonian parses the Hamiltonian-specification grammar: one term
// per line, "<coupling> [ (i1,j1), (i2,j2), ... ]", whitespace-insensitive;
// blank lines and lines starting with '#' are skipped. <coupling> is a
// real number; the imaginary part of every Term.Coupling is zero.
func ReadHamiltonian(r io.Reader) (*hamiltonian.Heisenberg, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var terms []hamiltonian.Term
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		term, err := parseHamiltonianLine(line)
		if err != nil {
			return nil, errs.Wrap(errs.Parse, err, "ioformat: ReadHamiltonian: line %d", lineNo)
		}
		terms = append(terms, term)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.IO, err, "ioformat: ReadHamiltonian: scanning input")
	}
	return hamiltonian.New(terms), nil
}

func parseHamiltonianLine(line string) (hamiltonian.Term, error) {
	rest := strings.TrimLeft(line, " \t")
	coupling, rest, err := parseFloatPrefix(rest)
	if err != nil {
		return hamiltonian.Term{}, errors.Wrap(err, "parsing coupling")
	}
	edges, rest, err := parseAdjacencyList(strings.TrimLeft(rest, " \t"))
	if err != nil {
		return hamiltonian.Term{}, err
	}
	if rest := strings.TrimSpace(rest); rest != "" {
		return hamiltonian.Term{}, errors.Errorf("unexpected trailing characters %q", rest)
	}
	return hamiltonian.Term{Coupling: complex(coupling, 0), Edges: edges}, nil
}

// parseFloatPrefix consumes the leading run of characters that may
// appear in a float64 literal (sign, digits, '.', 'e', 'E') and parses
// it, mirroring original_source's parse_double: it scans forward to find
// where the number ends rather than requiring a separator. A run that
// does not parse as a whole is an error; no shorter prefix is tried.
func parseFloatPrefix(s string) (float64, string, error) {
	i := 0
	for i < len(s) && strings.ContainsRune("+-0123456789.eE", rune(s[i])) {
		i++
	}
	if i == 0 {
		return 0, s, errors.New("expected a number")
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, s, errors.Wrapf(err, "invalid number %q", s[:i])
	}
	return v, s[i:], nil
}

func parseAdjacencyList(s string) ([][2]int, string, error) {
	s, err := expectChar(s, '[')
	if err != nil {
		return nil, s, err
	}
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return nil, s, errors.New("missing the closing ']'")
	}
	if s[0] == ']' {
		return nil, s[1:], nil
	}

	var edges [][2]int
	var edge [2]int
	edge, s, err = parseEdge(s)
	if err != nil {
		return nil, s, err
	}
	edges = append(edges, edge)

	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return nil, s, errors.New("missing the closing ']'")
		}
		switch s[0] {
		case ']':
			return edges, s[1:], nil
		case ',':
			edge, s, err = parseEdge(strings.TrimLeft(s[1:], " \t"))
			if err != nil {
				return nil, s, err
			}
			edges = append(edges, edge)
		default:
			return nil, s, errors.Errorf("expected ',' or ']', but got %q", s[0])
		}
	}
}

func parseEdge(s string) ([2]int, string, error) {
	var edge [2]int
	s, err := expectChar(s, '(')
	if err != nil {
		return edge, s, err
	}
	s = strings.TrimLeft(s, " \t")
	i, s, err := parseIntPrefix(s)
	if err != nil {
		return edge, s, err
	}
	s, err = expectChar(strings.TrimLeft(s, " \t"), ',')
	if err != nil {
		return edge, s, err
	}
	s = strings.TrimLeft(s, " \t")
	j, s, err := parseIntPrefix(s)
	if err != nil {
		return edge, s, err
	}
	s, err = expectChar(strings.TrimLeft(s, " \t"), ')')
	if err != nil {
		return edge, s, err
	}
	edge[0], edge[1] = i, j
	return edge, s, nil
}

func parseIntPrefix(s string) (int, string, error) {
	i := 0
	for i < len(s) && strings.ContainsRune("+-0123456789", rune(s[i])) {
		i++
	}
	if i == 0 {
		return 0, s, errors.New("expected an integer")
	}
	v, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, errors.Wrapf(err, "invalid integer %q", s[:i])
	}
	return v, s[i:], nil
}

func expectChar(s string, want byte) (string, error) {
	if s == "" || s[0] != want {
		got := "end of input"
		if s != "" {
			got = strconv.QuoteRune(rune(s[0]))
		}
		return s, errors.Errorf("expected %q, but got %s", want, got)
	}
	return s[1:], nil
}
