package helium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymTab_AllocateAndLookup(t *testing.T) {
	st := NewSymTab(DefaultMaxFrame)
	pos := Location{File: "t.hel", Line: 1, Column: 1}

	a := st.Allocate("a", "int", 8, 0, pos, nil)
	b := st.Allocate("b", "char", 1, 0, pos, nil)

	assert.Equal(t, -8, a.Offset)
	assert.Equal(t, -9, b.Offset)

	got, ok := st.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = st.Lookup("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, st.Names())
}

func TestSymTab_OffsetsStayNegative(t *testing.T) {
	st := NewSymTab(DefaultMaxFrame)
	pos := Location{File: "t.hel", Line: 1, Column: 1}
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		sym := st.Allocate(n, "int", 8, 0, pos, nil)
		assert.Less(t, sym.Offset, 0)
	}
}

func TestLabelAllocator_Unique(t *testing.T) {
	la := NewLabelAllocator()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		for _, label := range []string{la.Control(), la.Const()} {
			assert.False(t, seen[label], "label %q reused", label)
			seen[label] = true
		}
	}
}

func TestLabelAllocator_Prefixes(t *testing.T) {
	la := NewLabelAllocator()
	assert.Equal(t, ".L1", la.Control())
	assert.Equal(t, ".LC2", la.Const())
	assert.Equal(t, ".L3", la.Control())
}
