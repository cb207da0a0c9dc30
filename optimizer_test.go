package helium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLit(v int64) *IntLit { return &IntLit{Value: v} }

// Constant folding replaces any integer-literal expression built from
// + - * / | & with a single integer node equal to its mathematical
// value, per spec.md §8.
func TestFoldBinOp(t *testing.T) {
	tests := []struct {
		name string
		op   BinOpKind
		l, r int64
		want int64
		ok   bool
	}{
		{"add", BinAdd, 2, 3, 5, true},
		{"sub", BinSub, 10, 4, 6, true},
		{"mul", BinMul, 6, 7, 42, true},
		{"div", BinDiv, 20, 4, 5, true},
		{"div by zero", BinDiv, 1, 0, 0, false},
		{"or", BinOr, 0b1010, 0b0101, 0b1111, true},
		{"and", BinAnd, 0b1111, 0b1010, 0b1010, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := foldBinOp(tt.op, tt.l, tt.r)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFoldProgram_NestedArithmetic(t *testing.T) {
	// 2 + 3 * 4 -> 14
	expr := &BinOp{
		Op:   BinAdd,
		Left: intLit(2),
		Right: &BinOp{
			Op:    BinMul,
			Left:  intLit(3),
			Right: intLit(4),
		},
	}
	prog := &Program{
		Functions: []*Function{{
			Name: "main",
			Body: &Block{Stmts: []Node{&ReturnStmt{Value: expr}}},
		}},
	}

	FoldProgram(prog)

	ret := prog.Functions[0].Body.Stmts[0].(*ReturnStmt)
	lit, ok := ret.Value.(*IntLit)
	require.True(t, ok, "expected folded value to be a single IntLit, got %T", ret.Value)
	assert.Equal(t, int64(14), lit.Value)
}

func TestFoldProgram_DoesNotFoldDivisionByZero(t *testing.T) {
	expr := &BinOp{Op: BinDiv, Left: intLit(1), Right: intLit(0)}
	prog := &Program{
		Functions: []*Function{{
			Name: "main",
			Body: &Block{Stmts: []Node{&ReturnStmt{Value: expr}}},
		}},
	}

	FoldProgram(prog)

	ret := prog.Functions[0].Body.Stmts[0].(*ReturnStmt)
	_, isLit := ret.Value.(*IntLit)
	assert.False(t, isLit, "division by zero must not be folded away")
}

func TestFoldProgram_LeavesNonConstantAlone(t *testing.T) {
	expr := &BinOp{Op: BinAdd, Left: &VarRef{Name: "x"}, Right: intLit(1)}
	prog := &Program{
		Functions: []*Function{{
			Name: "main",
			Body: &Block{Stmts: []Node{&ReturnStmt{Value: expr}}},
		}},
	}

	FoldProgram(prog)

	ret := prog.Functions[0].Body.Stmts[0].(*ReturnStmt)
	bin, ok := ret.Value.(*BinOp)
	require.True(t, ok)
	assert.Equal(t, int64(1), bin.Right.(*IntLit).Value)
}

// Reachability: main is always reachable; anything transitively called
// from a reachable function is reachable; anything else is not,
// per spec.md §8.
func TestMarkReachable(t *testing.T) {
	prog := &Program{
		Functions: []*Function{
			{Name: "main", Body: &Block{Stmts: []Node{
				&ExprStmt{Expr: &FuncCall{Name: "helper"}},
			}}},
			{Name: "helper", Body: &Block{Stmts: []Node{
				&ExprStmt{Expr: &FuncCall{Name: "deep"}},
			}}},
			{Name: "deep", Body: &Block{}},
			{Name: "dead", Body: &Block{}},
		},
	}

	stats := MarkReachable(prog)

	assert.Equal(t, 4, stats.TotalFunctions)
	assert.ElementsMatch(t, []string{"main", "helper", "deep"}, stats.ReachableNames)
	assert.ElementsMatch(t, []string{"dead"}, stats.UnreachableNames)

	for _, fn := range prog.Functions {
		want := fn.Name != "dead"
		assert.Equal(t, want, fn.Reachable, "function %q", fn.Name)
	}
}

func TestMarkReachable_NoCallsOnlyMain(t *testing.T) {
	prog := &Program{
		Functions: []*Function{
			{Name: "main", Body: &Block{}},
			{Name: "unused", Body: &Block{}},
		},
	}
	stats := MarkReachable(prog)
	assert.Equal(t, []string{"main"}, stats.ReachableNames)
	assert.Equal(t, []string{"unused"}, stats.UnreachableNames)
}
