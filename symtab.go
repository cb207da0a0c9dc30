package helium

// DefaultMaxFrame is the fixed per-function stack reservation codegen's
// prologue makes, in bytes. A frame offset at or beyond this boundary is
// a non-fatal warning rather than a compile error, per spec.md §4.5.
const DefaultMaxFrame = 4096

// Symbol is one entry in a function's symbol table: a name bound to an
// rbp-relative frame offset. Length is nonzero for array symbols
// (element count; byte size is ElemSize*Length and is not itself
// stored, since the element type is recovered from TypeName).
type Symbol struct {
	Name     string
	Offset   int // rbp-relative, always negative
	TypeName string
	Length   int64
}

// SymTab is a single function's symbol table: parameters and local
// variables in declaration order, each bound to a frame slot. Reset per
// function, grounded on the teacher's per-call scoping in
// vm_instructions.go (a fresh frame per activation) generalized from a
// bytecode VM's runtime stack to a compile-time offset assignment.
type SymTab struct {
	maxFrame int
	used     int
	byName   map[string]Symbol
	order    []string
}

// NewSymTab returns an empty table that warns on every allocation that
// brings the frame to maxFrame bytes or beyond.
func NewSymTab(maxFrame int) *SymTab {
	return &SymTab{maxFrame: maxFrame, byName: map[string]Symbol{}}
}

// Lookup finds a previously allocated symbol by name.
func (s *SymTab) Lookup(name string) (Symbol, bool) {
	sym, ok := s.byName[name]
	return sym, ok
}

// Names returns allocated symbol names in declaration order.
func (s *SymTab) Names() []string { return s.order }

// Allocate reserves size bytes on the frame for name (a scalar, or the
// full backing store of an array of length elements) and records its
// rbp-relative offset. The open interval (-maxFrame, 0) is the
// guaranteed-safe region; reaching or passing -maxFrame doesn't fail
// the compile, since the actual stack page backing the frame may well
// be larger than MAX_FRAME reserves for in the common case.
func (s *SymTab) Allocate(name, typeName string, size int, length int64, pos Location, source []byte) Symbol {
	s.used += size
	offset := -s.used
	if offset <= -s.maxFrame {
		Warnf(pos, source, "frame offset %d for %q reaches or exceeds MAX_FRAME (%d bytes)", offset, name, s.maxFrame)
	}
	sym := Symbol{Name: name, Offset: offset, TypeName: typeName, Length: length}
	s.byName[name] = sym
	s.order = append(s.order, name)
	return sym
}
