package helium

import "fmt"

// CompilerConfig is a dotted-path typed settings map, adapted from the
// teacher's Config/cfgVal (config.go): each entry remembers its own
// type and a type-mismatched get panics, catching a typo'd path or a
// wrong accessor at the call site rather than silently returning a zero
// value. A Set always replaces the whole entry, type included, so it
// never panics. Helium's own settings are all either an integer or a
// toggle, so — unlike the teacher's Config, which also carries a
// string-valued cfgValType for grammar options such as import paths —
// cfgValType here only distinguishes Int from Bool; nothing in the
// pipeline needs a string-valued setting.
type CompilerConfig map[string]*cfgVal

// NewCompilerConfig returns a config primed with Helium's three settings:
// codegen's frame budget, the preprocessor's include-cycle guard, and
// whether diagnostics colorize their caret. Only codegen.max_frame is
// read (by Compile); Preprocess uses maxIncludeDepth directly and
// diagnostics are always rendered without color.
func NewCompilerConfig() *CompilerConfig {
	m := make(CompilerConfig)
	m.SetInt("codegen.max_frame", DefaultMaxFrame)
	m.SetInt("preprocessor.max_depth", maxIncludeDepth)
	m.SetBool("diagnostics.color", false)
	return &m
}

type cfgValType int

const (
	cfgValTypeUndefined cfgValType = iota
	cfgValTypeBool
	cfgValTypeInt
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValTypeUndefined: "undefined",
		cfgValTypeBool:      "bool",
		cfgValTypeInt:       "int",
	}[vt]
}

type cfgVal struct {
	typ    cfgValType
	asBool bool
	asInt  int
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValTypeUndefined {
		panic(fmt.Sprintf("can't assign %q to type %q", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve %q from a %q setting", vt, v.typ))
	}
}

func (c *CompilerConfig) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValTypeBool)
	(*c)[path].asBool = v
}

func (c *CompilerConfig) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValTypeInt)
	(*c)[path].asInt = v
}

func (c *CompilerConfig) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValTypeBool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting %q does not exist", path))
}

func (c *CompilerConfig) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValTypeInt)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting %q does not exist", path))
}
