package helium

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compileSource runs the full pipeline (minus preprocessing, which these
// tests don't exercise directly) up to assembly text, matching what
// Compile wires together in compiler.go.
func compileSource(t *testing.T, src string) string {
	t.Helper()
	buf := []byte(src)
	lex := NewLexer(buf, "t.hel")
	p, err := NewParser(lex)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)

	FoldProgram(prog)
	MarkReachable(prog)

	gen := NewCodegen(p.Structs(), buf, DefaultMaxFrame)
	out, err := gen.Emit(prog)
	require.NoError(t, err)
	return string(out)
}

func countOccurrences(s, substr string) int {
	return strings.Count(s, substr)
}

// Scenario 1.
func TestCodegen_ReturnIntegerLiteral(t *testing.T) {
	out := compileSource(t, `fn main() -> int { return 42; }`)
	assert.Equal(t, 1, countOccurrences(out, "global _start"))
	assert.Equal(t, 1, countOccurrences(out, "mov rax, 42"))
	assert.Contains(t, out, "_start:")
	assert.Regexp(t, regexp.MustCompile(`pop rbp\s*\n\s*ret`), out)
	assert.NotContains(t, out, ".rodata")
}

// Scenario 2: folding removes the arithmetic entirely.
func TestCodegen_ConstantFoldingRemovesArithmetic(t *testing.T) {
	out := compileSource(t, `fn main() -> int { return 2+3*4; }`)
	assert.Equal(t, 1, countOccurrences(out, "14"))
	assert.NotContains(t, out, "add ")
	assert.NotContains(t, out, "imul ")
}

// Scenario 3: struct layout, member assignment width, member read width.
func TestCodegen_StructMemberWidths(t *testing.T) {
	lex := NewLexer([]byte(`struct P { x: int, y: char } fn main() -> int { P p; p.x = 7; p.y = 'A'; return p.x; }`), "t.hel")
	p, err := NewParser(lex)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)

	def, ok := p.Structs().Lookup("P")
	require.True(t, ok)
	assert.Equal(t, 9, def.Size)
	ymember, ok := def.Member("y")
	require.True(t, ok)
	assert.Equal(t, 8, ymember.Offset)

	FoldProgram(prog)
	MarkReachable(prog)
	gen := NewCodegen(p.Structs(), nil, DefaultMaxFrame)
	out, err := gen.Emit(prog)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "mov byte [rax], bl") // p.y = 'A' — byte store
	assert.Contains(t, text, "mov rax, [rax]")      // return p.x — qword load
}

// Scenario 4: dead-code elimination drops unreachable functions entirely.
func TestCodegen_UnreachableFunctionDropped(t *testing.T) {
	out := compileSource(t, `
		fn f(x: int) -> int { return x+1; }
		fn g(x: int) -> int { return x; }
		fn main() -> int { return f(41); }
	`)
	assert.Contains(t, out, "f:")
	assert.NotContains(t, out, "g:")
}

// Scenario 5: array index scaling and element width.
func TestCodegen_ArrayIndexScaling(t *testing.T) {
	out := compileSource(t, `fn main() -> int { int a[3]; a[0] = 10; a[1] = 20; a[2] = 30; return a[1]; }`)
	assert.Contains(t, out, "imul rbx, 8")
}

// Scenario 6: for-range structural shape and single buffered string label.
func TestCodegen_ForRangeAndStringLiteralBuffering(t *testing.T) {
	out := compileSource(t, `fn main() -> int { for i in 0..3 { syscall(1, 1, "x", 1); } return 0; }`)

	assert.Contains(t, out, "mov rax, 0")  // init: i = 0
	assert.Contains(t, out, "cmp rax, 0")  // condition check
	assert.Contains(t, out, "inc rbx")     // post-increment

	assert.Len(t, regexp.MustCompile(`\.LC\d+:`).FindAllString(out, -1), 1)
	assert.Contains(t, out, "db `x`, 0")
}

// A string literal containing an escape sequence must assemble as a
// NASM backtick string, not a double-quoted one: NASM only expands
// \n/\t/etc. inside backticks (spec.md §4.5), so a double-quoted
// rendering would emit the literal two bytes '\' and 'n' instead of a
// single newline byte.
func TestCodegen_StringLiteralEscapeUsesBacktickQuoting(t *testing.T) {
	out := compileSource(t, "fn main() -> int { syscall(1, 1, \"line1\\nline2\", 12); return 0; }")
	assert.Contains(t, out, `db `+"`line1\\nline2`"+`, 0`)
	assert.NotContains(t, out, `db "line1\nline2", 0`)
}

func TestCodegen_UndefinedVariableErrors(t *testing.T) {
	lex := NewLexer([]byte(`fn main() -> int { return missing; }`), "t.hel")
	p, err := NewParser(lex)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)
	FoldProgram(prog)
	MarkReachable(prog)

	gen := NewCodegen(p.Structs(), nil, DefaultMaxFrame)
	_, err = gen.Emit(prog)
	assert.Error(t, err)
}

func TestCodegen_LabelsAreUniqueWithinOutput(t *testing.T) {
	out := compileSource(t, `
		fn main() -> int {
			int i;
			i = 0;
			while (i < 10) {
				if (i == 5) {
					i = i + 1;
				} else {
					i = i + 2;
				}
				i = i + 1;
			}
			return i;
		}
	`)
	re := regexp.MustCompile(`(?m)^\.(L|LC)\d+:`)
	matches := re.FindAllString(out, -1)
	seen := map[string]bool{}
	for _, m := range matches {
		assert.False(t, seen[m], "label %q appears more than once", m)
		seen[m] = true
	}
	assert.NotEmpty(t, matches)
}

func TestCodegen_SyscallRegisterOrder(t *testing.T) {
	out := compileSource(t, `fn main() -> int { return syscall(60, 0); }`)
	assert.Contains(t, out, "pop rdi")
	assert.Contains(t, out, "pop rax")
	assert.Contains(t, out, "syscall")
}

func TestCodegen_FunctionCallArgumentOrder(t *testing.T) {
	out := compileSource(t, `
		fn add(a: int, b: int) -> int { return a + b; }
		fn main() -> int { return add(1, 2); }
	`)
	assert.Contains(t, out, "pop rsi")
	assert.Contains(t, out, "pop rdi")
	assert.Contains(t, out, "call add")
}

func TestCodegen_DivisionUsesCqoIdiv(t *testing.T) {
	out := compileSource(t, `fn main() -> int { int x; x = 7; int y; y = 2; return x/y; }`)
	assert.Contains(t, out, "cqo")
	assert.Contains(t, out, "idiv rbx")
}
