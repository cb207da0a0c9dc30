package main

import (
	"fmt"
	"log"
	"os"

	helium "github.com/Quadsam/Helium"
)

const version = "helium 0.1.0"

// main implements spec.md §6's CLI surface with a hand-rolled argument
// scan rather than the "flag" package the teacher's cmd/langlang/main.go
// uses: the spec requires an unrecognized flag to be taken as the input
// path rather than rejected, which flag.Parse has no mode for.
func main() {
	outputPath := "out.s"
	var inputPath string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-V":
			fmt.Println(version)
			os.Exit(0)
		case "-o":
			i++
			if i >= len(args) {
				log.Fatal("-o requires an output path")
			}
			outputPath = args[i]
		default:
			inputPath = args[i]
		}
	}

	if inputPath == "" {
		log.Fatal("no input file given")
	}

	cfg := helium.NewCompilerConfig()
	if err := helium.Compile(inputPath, outputPath, cfg); err != nil {
		log.Fatalf("%s", err.Error())
	}
}
