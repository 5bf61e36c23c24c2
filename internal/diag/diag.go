// Package diag defines the compiler's error taxonomy: one typed error per
// pipeline stage (lex, parse, import, semantic, codegen, assembler, I/O),
// each carrying enough to render as "path:line:col: message".
package diag

import (
	"fmt"

	modtoken "modernc.org/token"
)

// Position is a source location. It wraps modernc.org/token.Position so
// every stage of the pipeline — lexer, parser, semantic analyzer — shares
// one position type end to end.
type Position = modtoken.Position

// Kind classifies a diagnostic by the pipeline stage that raised it.
type Kind int

const (
	Lex Kind = iota
	Parse
	Import
	Semantic
	Codegen
	Assembler
	IO
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	case Import:
		return "import"
	case Semantic:
		return "semantic"
	case Codegen:
		return "codegen"
	case Assembler:
		return "assembler"
	case IO:
		return "io"
	default:
		return "error"
	}
}

// Error is a single diagnostic. Position.Filename may be empty for
// diagnostics that only carry a path (Import, IO).
type Error struct {
	Kind     Kind
	Pos      Position
	Path     string // used by Import/IO when there's no line:col
	Message  string
	Wrapped  error
	ExitCode int // propagated process exit code; 0 means "use the caller's default"
}

func (e *Error) Error() string {
	switch e.Kind {
	case Import, IO:
		if e.Path != "" {
			return fmt.Sprintf("%s: %s", e.Path, e.Message)
		}
		return e.Message
	default:
		if e.Pos.Line > 0 {
			return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Errorf builds a positioned diagnostic of the given kind.
func Errorf(kind Kind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// PathErrorf builds a path-only diagnostic (Import/IO), with no line:col.
func PathErrorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying error for %+v-style --debug output while
// keeping the concise one-liner as Error().
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// WithExitCode records the process exit code a failed subprocess (the
// assembler, the host runtime) returned, so the CLI can propagate it
// instead of collapsing every failure to exit code 1.
func (e *Error) WithExitCode(code int) *Error {
	e.ExitCode = code
	return e
}

// ErrList aggregates positioned errors, mirroring the shape of
// modernc.org/scanner's ErrList/ErrWithPosition — munc's hand-written
// recursive-descent parser isn't goyacc-generated so it can't depend on
// that package's table-driven error plumbing directly, but the same
// "list of positioned errors, report the first" convention is kept.
type ErrList []*Error

func (l ErrList) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	return l[0].Error()
}

// First returns the first error, or nil if the list is empty.
func (l ErrList) First() *Error {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}
