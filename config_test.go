package helium

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompilerConfig_Defaults(t *testing.T) {
	cfg := NewCompilerConfig()
	assert.Equal(t, DefaultMaxFrame, cfg.GetInt("codegen.max_frame"))
	assert.Equal(t, maxIncludeDepth, cfg.GetInt("preprocessor.max_depth"))
	assert.False(t, cfg.GetBool("diagnostics.color"))
}

func TestCompilerConfig_SetOverridesDefault(t *testing.T) {
	cfg := NewCompilerConfig()
	cfg.SetInt("codegen.max_frame", 8192)
	assert.Equal(t, 8192, cfg.GetInt("codegen.max_frame"))
}

func TestCompilerConfig_TypeMismatchPanics(t *testing.T) {
	cfg := NewCompilerConfig()
	assert.Panics(t, func() { cfg.GetBool("codegen.max_frame") })
	assert.Panics(t, func() { cfg.GetInt("diagnostics.color") })
}

func TestCompilerConfig_MissingKeyPanics(t *testing.T) {
	cfg := NewCompilerConfig()
	assert.Panics(t, func() { cfg.GetInt("does.not.exist") })
}

func TestCompilerConfig_SetBoolOverridesDefault(t *testing.T) {
	cfg := NewCompilerConfig()
	cfg.SetBool("diagnostics.color", true)
	assert.True(t, cfg.GetBool("diagnostics.color"))
}
