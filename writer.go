package helium

import "strings"

// asmWriter is adapted from the teacher's outputWriter (gen.go): the
// same indent/writei/writel line-buffering idiom, but split into two
// buffers instead of one. Every string literal codegen encounters is
// buffered into rodata as a ".LCn: db ...,0" entry instead of being
// emitted inline, and rodata is only appended to text once, at Bytes,
// after every function has been emitted. This is what implements
// spec.md §9's REDESIGN FLAG: a single "section .rodata" switch at the
// end instead of one per string literal interleaved through .text.
type asmWriter struct {
	text        strings.Builder
	rodata      strings.Builder
	indentLevel int
}

// newAsmWriter starts one indent level in, so instructions sit one level
// below the column-0 labels and directives.
func newAsmWriter() *asmWriter {
	return &asmWriter{indentLevel: 1}
}

func (w *asmWriter) indent()   { w.indentLevel++ }
func (w *asmWriter) unindent() { w.indentLevel-- }

func (w *asmWriter) writeIndent() {
	for i := 0; i < w.indentLevel; i++ {
		w.text.WriteString("    ")
	}
}

// label emits a column-0 label line, e.g. "main:" or ".L3:".
func (w *asmWriter) label(name string) {
	w.text.WriteString(name)
	w.text.WriteString(":\n")
}

// insn emits one indented instruction line, e.g. "mov rax, rdi".
func (w *asmWriter) insn(s string) {
	w.writeIndent()
	w.text.WriteString(s)
	w.text.WriteString("\n")
}

// raw emits a line with no indentation, e.g. a "global" or "section"
// directive.
func (w *asmWriter) raw(s string) {
	w.text.WriteString(s)
	w.text.WriteString("\n")
}

// rodataString buffers a NUL-terminated string literal under label and
// returns nothing; the caller already obtained label from a
// LabelAllocator before calling this.
func (w *asmWriter) rodataString(label, value string) {
	w.rodata.WriteString(label)
	w.rodata.WriteString(": db ")
	w.rodata.WriteString(quoteNasmString(value))
	w.rodata.WriteString(", 0\n")
}

// Bytes returns the complete assembly source: everything written to
// text, followed by the rodata section (only emitted at all if at
// least one string literal was buffered).
func (w *asmWriter) Bytes() []byte {
	var out strings.Builder
	out.WriteString(w.text.String())
	if w.rodata.Len() > 0 {
		out.WriteString("section .rodata\n")
		out.WriteString(w.rodata.String())
	}
	return []byte(out.String())
}

// quoteNasmString renders value as a NASM backtick-quoted byte string.
// Unlike NASM's single/double-quoted strings, a backtick string is the
// one form NASM itself runs C-style escape processing over (\n, \t,
// \\, ...), which is exactly what lets scanString's raw, unescaped
// "\n" two-byte sequence in a Helium string literal assemble to a
// single 0x0A byte rather than the two literal characters backslash
// and 'n' (spec.md §4.2/§4.5). A literal backtick in the source text
// is escaped so it doesn't terminate the string early.
func quoteNasmString(value string) string {
	var b strings.Builder
	b.WriteByte('`')
	for i := 0; i < len(value); i++ {
		if value[i] == '`' {
			b.WriteString("\\`")
			continue
		}
		b.WriteByte(value[i])
	}
	b.WriteByte('`')
	return b.String()
}
