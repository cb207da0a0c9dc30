package helium

import "fmt"

// Location identifies a single point in the preprocessed source buffer:
// the file it came from (the innermost enclosing #file marker, not the
// flattened buffer path), the 1-based line and column, and the byte
// offset into the preprocessed buffer used to recover the surrounding
// source line for diagnostics.
type Location struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// sourceLineAt scans backward and forward from offset to the nearest
// newlines and returns the line of buf that offset falls within, without
// the trailing newline. This mirrors how the diagnostics component
// recovers a source line from a byte offset rather than re-lexing.
func sourceLineAt(buf []byte, offset int) string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(buf) {
		offset = len(buf)
	}
	start := offset
	for start > 0 && buf[start-1] != '\n' {
		start--
	}
	end := offset
	for end < len(buf) && buf[end] != '\n' {
		end++
	}
	return string(buf[start:end])
}
