package helium

import (
	"fmt"
	"os"
)

// Compile runs the full pipeline over the source file at inputPath and
// writes NASM text to outputPath: preprocess, lex/parse, fold constants,
// mark reachable functions, then generate code. Grounded on the
// teacher's top-level Compile in grammar_compiler.go, which strings
// together the same shape of stages (load, parse, optimize passes,
// emit) behind one entry point the CLI calls.
//
// The output file is opened only after every earlier stage has
// succeeded, and its handle is always closed before Compile returns
// (success or failure) — the one resource this pipeline owns outside
// of memory.
func Compile(inputPath, outputPath string, cfg *CompilerConfig) error {
	source, err := Preprocess(inputPath, DefaultFileReader)
	if err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}
	buf := []byte(source)

	lex := NewLexer(buf, inputPath)
	parser, err := NewParser(lex)
	if err != nil {
		return err
	}
	prog, err := parser.Parse()
	if err != nil {
		return err
	}

	FoldProgram(prog)
	stats := MarkReachable(prog)
	if len(stats.UnreachableNames) > 0 {
		Warnf(Location{File: inputPath}, buf, "unreachable function(s) dropped from output: %v", stats.UnreachableNames)
	}

	gen := NewCodegen(parser.Structs(), buf, cfg.GetInt("codegen.max_frame"))
	out, err := gen.Emit(prog)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %q: %w", outputPath, err)
	}
	defer f.Close()

	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("writing %q: %w", outputPath, err)
	}
	return nil
}
