package helium

import "fmt"

// LabelAllocator hands out globally unique NASM labels. Grounded on the
// teacher's package-level monotonic counter in vm_instructions.go
// (globalUniqueID, NewILabel), turned into a struct field here so
// multiple compiles in the same process (as in tests) don't share
// state.
type LabelAllocator struct {
	counter int
}

// NewLabelAllocator returns an allocator starting at 0.
func NewLabelAllocator() *LabelAllocator {
	return &LabelAllocator{}
}

// Control returns a fresh ".L<n>" control-flow label, for if/while/for
// branch targets.
func (a *LabelAllocator) Control() string {
	a.counter++
	return fmt.Sprintf(".L%d", a.counter)
}

// Const returns a fresh ".LC<n>" label for a .rodata entry, such as a
// buffered string literal.
func (a *LabelAllocator) Const() string {
	a.counter++
	return fmt.Sprintf(".LC%d", a.counter)
}
