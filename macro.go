package helium

// MacroTable maps a macro name to the single token that replaces it.
// Defined by "#define NAME <token>" and consulted whenever the lexer
// reads an identifier. This mirrors the teacher's BaseParser.actionFns
// map: a name-keyed table of substitutions owned by the component that
// consults it, populated once and never removed from.
type MacroTable struct {
	macros map[string]Token
}

// NewMacroTable returns an empty macro table.
func NewMacroTable() *MacroTable {
	return &MacroTable{macros: map[string]Token{}}
}

// Define stores tok as the expansion of name, overwriting any prior
// definition (the spec does not require redefinition to be an error).
func (m *MacroTable) Define(name string, tok Token) {
	m.macros[name] = tok
}

// Lookup returns the macro's stored token and true if name is defined.
func (m *MacroTable) Lookup(name string) (Token, bool) {
	tok, ok := m.macros[name]
	return tok, ok
}
