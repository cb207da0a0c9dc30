package helium

import "fmt"

// StructMember is one field of a struct, with its byte offset from the
// struct's base address.
type StructMember struct {
	Name     string
	Offset   int
	TypeName string
}

// StructDef is a process-wide struct layout: an ordered member list with
// byte offsets and the struct's total size. Layout is dense (no
// alignment padding), so offsets form a strictly increasing sequence
// starting at 0 and Size is the sum of member widths.
type StructDef struct {
	Name    string
	Members []StructMember
	Size    int
}

// Member looks up a member by name, returning it (name, offset and type).
func (s *StructDef) Member(name string) (StructMember, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return StructMember{}, false
}

// StructRegistry is the append-only, process-wide table mapping struct
// name to its layout. Populated by the parser as "struct Name { ... }"
// declarations are parsed, consulted by the parser (to validate
// declaration types) and by codegen (member access, sizeof).
type StructRegistry struct {
	byName map[string]*StructDef
	order  []string
}

// NewStructRegistry returns an empty registry.
func NewStructRegistry() *StructRegistry {
	return &StructRegistry{byName: map[string]*StructDef{}}
}

// Define registers a new struct. name must not already be registered.
func (r *StructRegistry) Define(def *StructDef) error {
	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("struct %q already defined", def.Name)
	}
	r.byName[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Lookup returns the struct definition named name, if registered.
func (r *StructRegistry) Lookup(name string) (*StructDef, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// SizeOf returns the byte width of a type name: 8 for "int"/"ptr", 1 for
// "char", or a registered struct's total size. Returns an error for an
// unknown type name.
func (r *StructRegistry) SizeOf(typeName string) (int, error) {
	switch typeName {
	case "int", "ptr":
		return 8, nil
	case "char":
		return 1, nil
	}
	if def, ok := r.Lookup(typeName); ok {
		return def.Size, nil
	}
	return 0, fmt.Errorf("unknown type %q", typeName)
}
