// Command ilc compiles a single source file straight to textual LLVM IR:
// lex, parse, analyze, generate, write. There is no separate compilation
// and no linking step — the driver's only job is to run the four stages
// in order and report the first error any of them hits.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/repr"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ilc-lang/ilc/analyzer"
	"github.com/ilc-lang/ilc/codegen"
	"github.com/ilc-lang/ilc/parser"
)

var errorMarker = color.New(color.FgRed, color.Bold).SprintFunc()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var dumpAST bool

	log := logrus.New()
	log.SetOutput(os.Stderr)

	cmd := &cobra.Command{
		Use:           "ilc <input_file> <output_file>",
		Short:         "Compile a source file to LLVM IR",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return compile(args[0], args[1], dumpAST, log)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each pipeline stage as it runs")
	cmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "pretty-print the parsed tree before codegen")

	return cmd
}

func compile(inputPath, outputPath string, dumpAST bool, log *logrus.Logger) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s cannot read %s: %v\n", errorMarker("error:"), inputPath, err)
		return err
	}
	log.Debugf("read %d bytes from %s", len(src), inputPath)

	prog, err := parser.Parse(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorMarker("error:"), err)
		return err
	}
	log.Debugf("parsed %d struct(s), %d function(s), %d top-level statement(s)",
		len(prog.Structs), len(prog.Functions), len(prog.Body))

	if dumpAST {
		repr.Println(prog)
	}

	if err := analyzer.Analyze(prog); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorMarker("error:"), err)
		return err
	}
	log.Debug("semantic analysis passed")

	ir, err := codegen.Generate(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorMarker("error:"), err)
		return err
	}
	log.Debugf("emitted %d bytes of LLVM IR", len(ir))

	if err := os.WriteFile(outputPath, []byte(ir), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s cannot write %s: %v\n", errorMarker("error:"), outputPath, err)
		return err
	}

	fmt.Printf("compiled %s -> %s\n", inputPath, outputPath)
	return nil
}
