// Package ioformat implements the text interfaces: reading and writing a
// sparse state, and reading a Heisenberg Hamiltonian specification. These
// sit outside the core and interact with it only through state.State's
// public API.
package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/qdmc/errs"
	"github.com/fumin/qdmc/spin"
	"github.com/fumin/qdmc/state"
)

// ReadState parses the state-input grammar: lines of
// "<bitstring>\t<real>\t<imag>", blank lines and lines starting with '#'
// ignored, a duplicate bitstring rejected as ParseError.
func ReadState(r io.Reader, cfg state.Config) (*state.State, error) {
	s, err := state.New(cfg)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, amp, err := parseStateLine(line)
		if err != nil {
			return nil, errs.Wrap(errs.Parse, err, "ioformat: ReadState: line %d", lineNo)
		}
		if _, ok := s.Get(key); ok {
			return nil, errs.New(errs.Parse, "ioformat: ReadState: line %d: duplicate basis key %q", lineNo, key.String())
		}
		s.Set(key, amp)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.IO, err, "ioformat: ReadState: scanning input")
	}
	return s, nil
}

func parseStateLine(line string) (spin.Key, complex128, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return spin.Key{}, 0, errors.Errorf("expected 3 tab-separated fields, got %d", len(fields))
	}
	key, err := spin.Parse(fields[0])
	if err != nil {
		return spin.Key{}, 0, err
	}
	re, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return spin.Key{}, 0, errors.Wrapf(err, "bad real part %q", fields[1])
	}
	im, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return spin.Key{}, 0, errors.Wrapf(err, "bad imaginary part %q", fields[2])
	}
	return key, complex(re, im), nil
}

// WriteState writes s in the grammar ReadState accepts, minus comments:
// one "<bitstring>\t<real>\t<imag>" line per entry, order unspecified.
func WriteState(w io.Writer, s *state.State) error {
	bw := bufio.NewWriter(w)
	var writeErr error
	s.ForEach(func(k spin.Key, v complex128) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(bw, "%s\t%g\t%g\n", k.String(), real(v), imag(v))
	})
	if writeErr != nil {
		return errs.Wrap(errs.IO, writeErr, "ioformat: WriteState: writing entry")
	}
	if err := bw.Flush(); err != nil {
		return errs.Wrap(errs.IO, err, "ioformat: WriteState: flushing output")
	}
	return nil
}
