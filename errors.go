package helium

import (
	"fmt"
	"os"
)

// Diagnostic is the single error type every Helium pass reports through.
// Unlike the teacher's two-tier ParsingError/backtrackingError split
// (needed because its PEG parser backtracks and must distinguish a
// recoverable trial from a real failure), Helium's recursive-descent
// parser never backtracks, so one tier is enough.
type Diagnostic struct {
	Pos     Location
	Message string
	// Source is the full preprocessed buffer, kept so Error() can
	// recover the offending line without re-reading any file.
	Source []byte
	// Warning marks a non-fatal diagnostic (the MAX_FRAME-exceeded
	// condition, and functions dropped as unreachable). Fatal diagnostics abort the pass
	// that raised them; warnings are printed and compilation continues.
	Warning bool
}

// Error renders "file:line:col: message", the recovered source line, and
// a caret under the offending column.
func (d *Diagnostic) Error() string {
	line := sourceLineAt(d.Source, d.Pos.Offset)
	caret := ""
	if col := d.Pos.Column - 1; col > 0 {
		caret = fmt.Sprintf("%*s^", col, "")
	} else {
		caret = "^"
	}
	return fmt.Sprintf("%s: %s\n%s\n%s", d.Pos, d.Message, line, caret)
}

// NewDiagnostic builds a fatal Diagnostic at pos.
func NewDiagnostic(pos Location, source []byte, format string, args ...any) *Diagnostic {
	return &Diagnostic{Pos: pos, Source: source, Message: fmt.Sprintf(format, args...)}
}

// Warnf prints a non-fatal diagnostic to stderr and returns immediately;
// used for the MAX_FRAME-exceeded condition, which spec keeps as a
// warning rather than an abort, and by Compile to list functions that
// reachability analysis dropped from the output.
func Warnf(pos Location, source []byte, format string, args ...any) {
	d := &Diagnostic{Pos: pos, Source: source, Message: fmt.Sprintf(format, args...), Warning: true}
	fmt.Fprintln(os.Stderr, d.Error())
}
