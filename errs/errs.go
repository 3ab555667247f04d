// Package errs defines the error taxonomy shared by the rest of this
// module: configuration mistakes, malformed input, I/O failure, numerical
// dead ends, and violated invariants.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error so callers can branch on it without parsing
// messages.
type Kind int

const (
	// Config is an invalid run parameter: a bad cap, a non-power-of-two
	// shard count, a zero iteration count, a missing flag, or an output
	// path that aliases the input path.
	Config Kind = iota
	// Parse is a malformed state or Hamiltonian line.
	Parse
	// IO is a file open/read/write failure.
	IO
	// Numeric is a numerical dead end: every truncation weight is zero in
	// stochastic mode, so the alias table has nothing to sample, or the
	// state's total weight is zero, so Normalise has no norm to divide by.
	Numeric
	// Internal marks a violated invariant; these are bugs, not expected
	// conditions, and callers should treat them as fatal.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Parse:
		return "ParseError"
	case IO:
		return "IoError"
	case Numeric:
		return "NumericError"
	case Internal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is a Kind-tagged error carrying a pkg/errors-wrapped cause so that
// "%+v" prints a stack trace at the point of origin.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

// Format implements fmt.Formatter so that "%+v" forwards to the wrapped
// cause's own Format, surfacing the pkg/errors backtrace attached at
// New/Wrap instead of falling back to Error's plain "%v" string.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.Err != nil {
		fmt.Fprintf(s, "%s: %s: %+v", e.Kind, e.Msg, e.Err)
		return
	}
	fmt.Fprintf(s, "%s", e.Error())
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with a backtrace attached via pkg/errors.
func New(kind Kind, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Msg: msg, Err: errors.New(msg)}
}

// Wrap attaches kind and a backtrace to an existing error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Msg: msg, Err: errors.Wrap(err, msg)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
