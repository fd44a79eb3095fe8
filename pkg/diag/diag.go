// Package diag is the diagnostic sink the checker and lowering passes
// report errors to. Neither one decides how a diagnostic is rendered;
// they only call Reporter methods.
package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/decafc/decafc/pkg/source"
)

// Kind enumerates every diagnostic the checker and lowering passes can
// signal.
type Kind int

const (
	DeclarationConflict Kind = iota
	IdentifierNotDeclared
	OverrideMismatch
	InaccessibleField
	FieldNotFoundInBase
	ThisOutsideClassScope
	IncompatibleOperands
	SubscriptNotInteger
	BracketsOnNonArray
	NewArraySizeNotInteger
	ArgMismatch
	NumArgsMismatch
	TestNotBoolean
	BreakOutsideLoop
	ReturnMismatch
	PrintArgMismatch
	NoMainFound
	SyntaxError
)

// KindNames maps each Kind to the flag-friendly name pkg/config's
// -W<name>/-Wno-<name> toggles key on.
var KindNames = map[Kind]string{
	DeclarationConflict:    "decl-conflict",
	IdentifierNotDeclared:  "undeclared",
	OverrideMismatch:       "override-mismatch",
	InaccessibleField:      "inaccessible-field",
	FieldNotFoundInBase:    "field-not-found",
	ThisOutsideClassScope:  "this-outside-class",
	IncompatibleOperands:   "incompatible-operands",
	SubscriptNotInteger:    "bad-subscript",
	BracketsOnNonArray:     "brackets-on-non-array",
	NewArraySizeNotInteger: "bad-array-size",
	ArgMismatch:            "arg-mismatch",
	NumArgsMismatch:        "arity-mismatch",
	TestNotBoolean:         "non-bool-test",
	BreakOutsideLoop:       "break-outside-loop",
	ReturnMismatch:         "return-mismatch",
	PrintArgMismatch:       "print-arg-mismatch",
	NoMainFound:            "no-main",
	SyntaxError:            "syntax-error",
}

// LookingFor qualifies an IdentifierNotDeclared diagnostic.
type LookingFor int

const (
	LookingForClass LookingFor = iota
	LookingForFunction
	LookingForVariable
	LookingForType
)

func (l LookingFor) String() string {
	switch l {
	case LookingForClass:
		return "class"
	case LookingForFunction:
		return "function"
	case LookingForVariable:
		return "variable"
	case LookingForType:
		return "type"
	default:
		return "identifier"
	}
}

// Reporter is the sink the checker and lowering passes call into. It is
// write-only and append-only: once a diagnostic is reported it cannot
// be retracted.
type Reporter interface {
	Report(kind Kind, pos source.Pos, format string, args ...interface{})
	HasErrors() bool
	Count() int
}

// StreamReporter is the default Reporter: it prints to a stream the way
// the util.Error/util.Warn do, with the same "line + caret"
// rendering, colored only when the stream is a real terminal.
type StreamReporter struct {
	out      *os.File
	registry *source.Registry
	color    bool
	errors   int
}

func NewStreamReporter(out *os.File, registry *source.Registry) *StreamReporter {
	return &StreamReporter{
		out:      out,
		registry: registry,
		color:    isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
	}
}

func (r *StreamReporter) HasErrors() bool { return r.errors > 0 }
func (r *StreamReporter) Count() int      { return r.errors }

func (r *StreamReporter) Report(kind Kind, pos source.Pos, format string, args ...interface{}) {
	r.errors++
	filename, line, col := r.locate(pos)
	prefix := fmt.Sprintf("%s:%d:%d: ", filename, line, col)
	if r.color {
		prefix += "\033[31merror:\033[0m "
	} else {
		prefix += "error: "
	}
	fmt.Fprintf(r.out, "%s%s\n", prefix, fmt.Sprintf(format, args...))
	r.printSourceLine(pos)
}

func (r *StreamReporter) locate(pos source.Pos) (name string, line, col int) {
	if r.registry == nil {
		return "unknown", pos.Line, pos.Column
	}
	f, ok := r.registry.File(pos.FileIndex)
	if !ok {
		return "unknown", pos.Line, pos.Column
	}
	return f.Name, pos.Line, pos.Column
}

func (r *StreamReporter) printSourceLine(pos source.Pos) {
	if r.registry == nil || pos.Line == 0 {
		return
	}
	f, ok := r.registry.File(pos.FileIndex)
	if !ok {
		return
	}
	content := f.Content
	lineNum := pos.Line
	lineStart := 0
	for i, c := range content {
		if lineNum <= 1 {
			break
		}
		if c == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	fmt.Fprintf(r.out, "  %s\n", string(content[lineStart:lineEnd]))
	caret := "  " + strings.Repeat(" ", pos.Column-1)
	if r.color {
		caret += "\033[32m^"
	} else {
		caret += "^"
	}
	if pos.Len > 1 {
		caret += strings.Repeat("~", pos.Len-1)
	}
	if r.color {
		caret += "\033[0m"
	}
	fmt.Fprintln(r.out, caret)
}

// Fatalf reports an internal-invariant violation and aborts the process.
// Unlike Report, there is no continuation: this treats these as
// unrecoverable, mirroring the util.Error, which also exits.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "decafc: internal error: %s\n", fmt.Sprintf(format, args...))
	os.Exit(2)
}

// FilteringReporter wraps another Reporter and drops any diagnostic
// whose Kind its Enabled predicate reports false for, before the inner
// Reporter ever sees it.
// Suppressed diagnostics count toward nothing: they neither print nor
// affect HasErrors/Count, so pkg/emit's zero-errors gate only sees the
// categories the caller left enabled.
type FilteringReporter struct {
	inner   Reporter
	Enabled func(Kind) bool
}

func NewFilteringReporter(inner Reporter, enabled func(Kind) bool) *FilteringReporter {
	return &FilteringReporter{inner: inner, Enabled: enabled}
}

func (r *FilteringReporter) Report(kind Kind, pos source.Pos, format string, args ...interface{}) {
	if r.Enabled != nil && !r.Enabled(kind) {
		return
	}
	r.inner.Report(kind, pos, format, args...)
}

func (r *FilteringReporter) HasErrors() bool { return r.inner.HasErrors() }
func (r *FilteringReporter) Count() int      { return r.inner.Count() }

// NullReporter discards diagnostics; useful for tests that only care
// about the emitted TAC and assert independently on error kinds.
type NullReporter struct {
	kinds []Kind
	n     int
}

func NewNullReporter() *NullReporter { return &NullReporter{} }

func (r *NullReporter) Report(kind Kind, _ source.Pos, _ string, _ ...interface{}) {
	r.kinds = append(r.kinds, kind)
	r.n++
}
func (r *NullReporter) HasErrors() bool { return r.n > 0 }
func (r *NullReporter) Count() int      { return r.n }
func (r *NullReporter) Kinds() []Kind   { return r.kinds }
