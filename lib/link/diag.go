package link

import (
	"fmt"
	"io"
	"os"
)

// Severity classifies a diagnostic. Warnings never stop the link; a fatal
// diagnostic aborts it and must surface as a non-zero process exit.
type Severity uint8

const (
	SevWarning Severity = iota
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "warning"
	case SevFatal:
		return "fatal"
	}
	return "unknown"
}

// DiagSink receives diagnostics from the link passes.
type DiagSink interface {
	Report(sev Severity, msg string)
}

type writerSink struct {
	w io.Writer
}

func (s *writerSink) Report(sev Severity, msg string) {
	fmt.Fprintf(s.w, "sld: %s: %s\n", sev, msg)
}

func NewStderrSink() DiagSink {
	return &writerSink{w: os.Stderr}
}

// NewWriterSink returns a sink printing to w, one line per diagnostic.
func NewWriterSink(w io.Writer) DiagSink {
	return &writerSink{w: w}
}

func (s *Session) warnf(format string, args ...any) {
	s.Diags.Report(SevWarning, fmt.Sprintf(format, args...))
}

// MalformedInputError reports an input buffer that is not a linkable object
// of the supported class. Field names the offending header field. The caller
// decides whether one bad input aborts the link or is skipped.
type MalformedInputError struct {
	Origin string
	Field  string
	Detail string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: malformed input: bad %s: %s", e.Origin, e.Field, e.Detail)
}

// MultipleDefinitionError reports two objects both strongly defining the
// same global symbol.
type MultipleDefinitionError struct {
	Symbol  string
	Object1 string
	Object2 string
}

func (e *MultipleDefinitionError) Error() string {
	return fmt.Sprintf("multiple definition of %q: defined in %s and %s",
		e.Symbol, e.Object1, e.Object2)
}

// UndefinedReferenceError reports a strong reference no object defines.
type UndefinedReferenceError struct {
	Symbol string
	Origin string
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("%s: undefined reference to %q", e.Origin, e.Symbol)
}

// UnsupportedRelocationError reports a relocation type the fixup engine has
// no handler for. It is a warning by default and an error under
// Options.StrictRelocs; either way the target bytes are left untouched.
type UnsupportedRelocationError struct {
	Type   uint32
	Atom   string
	Origin string
	Offset uint64
	Symbol string
}

func (e *UnsupportedRelocationError) Error() string {
	return fmt.Sprintf("%s: unsupported relocation type %d in %s+%#x against %q",
		e.Origin, e.Type, e.Atom, e.Offset, e.Symbol)
}
