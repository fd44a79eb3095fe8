// Command decafc drives the compiler front-to-middle-end pipeline: parse
// flags into a config.Config, read and lex every input file, parse and
// check the merged program, lower it to TAC, and hand the result to
// pkg/emit.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"

	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/cli"
	"github.com/decafc/decafc/pkg/config"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/emit"
	"github.com/decafc/decafc/pkg/lexer"
	"github.com/decafc/decafc/pkg/parser"
	"github.com/decafc/decafc/pkg/sema"
	"github.com/decafc/decafc/pkg/source"
	"github.com/decafc/decafc/pkg/tac"
)

func main() {
	cfg := config.New()

	app := cli.NewApp("decafc")
	app.Synopsis = "decafc [options] file..."
	app.Description = "Compiles a small class-based language down to TAC, QBE IL, or target assembly."
	app.Authors = []string{"decafc contributors"}
	app.Since = 2026

	fs := app.FlagSet

	var (
		outputPath   string
		emitFormat   string
		target       string
		registersStr string
		dumpAST      bool
		dumpTAC      bool
		verbose      bool
		wAll         bool
		wNoAll       bool
	)

	fs.String(&outputPath, "output", "o", "", "Write emitted output to this path instead of stdout", "path")
	fs.String(&emitFormat, "emit", "e", "asm", "Output format: tac, qbe, or asm", "format")
	fs.String(&target, "target", "t", "", "goos/goarch pair to assemble for, e.g. linux/amd64 (default: host)", "goos/goarch")
	fs.String(&registersStr, "registers", "r", fmt.Sprintf("%d", config.DefaultRegisters), "Register colors for allocation, including color 0 reserved for memory-resident values", "count")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the parsed, checked syntax tree, then continue compiling")
	fs.Bool(&dumpTAC, "dump-tac", "", false, "Print the lowered TAC stream before allocation, then continue compiling")
	fs.Bool(&verbose, "verbose", "v", false, "Print a per-run banner with sizing information")
	fs.Bool(&wAll, "Wall", "", false, "Enable every diagnostic category")
	fs.Bool(&wNoAll, "Wno-all", "", false, "Disable every diagnostic category")

	warningEntries := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		registers, err := strconv.Atoi(registersStr)
		if err != nil || registers <= 0 {
			registers = config.DefaultRegisters
		}
		cfg.Registers = registers
		cfg.QbeTarget = target
		cfg.DumpAST = dumpAST
		cfg.DumpTAC = dumpTAC
		cfg.Verbose = verbose

		if wAll {
			cfg.ApplyFlag("-Wall")
		}
		if wNoAll {
			cfg.ApplyFlag("-Wno-all")
		}
		cfg.ApplyFlagGroups(warningEntries)

		if len(inputFiles) == 0 {
			return fmt.Errorf("decafc: no input files")
		}

		runID := uuid.New()
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "decafc run %s started %s\n", runID, strftime.Format("%Y-%m-%d %H:%M:%S", time.Now()))
		}

		registry := source.NewRegistry()
		streamReporter := diag.NewStreamReporter(os.Stderr, registry)
		reporter := diag.NewFilteringReporter(streamReporter, cfg.IsEnabled)

		var decls []*ast.Node
		var totalBytes int64
		for _, path := range inputFiles {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("decafc: %w", err)
			}
			totalBytes += int64(len(data))
			fileIndex := registry.Add(path, []rune(string(data)))
			lx := lexer.New([]rune(string(data)), fileIndex, reporter)
			p := parser.New(lx, reporter)
			fileProgram := p.Parse()
			decls = append(decls, fileProgram.Data.(ast.ProgramData).Decls...)
		}

		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "decafc: parsed %s across %d file(s)\n", humanize.Bytes(uint64(totalBytes)), len(inputFiles))
		}

		program := ast.NewProgram(decls)
		ast.Link(program)

		checker := sema.NewChecker(reporter)
		checker.Check(program)

		if cfg.DumpAST {
			godump.Dump(program)
		}

		if reporter.HasErrors() {
			return fmt.Errorf("decafc: %d error(s)", reporter.Count())
		}

		builder := tac.NewBuilder()
		lowering := tac.NewLowering(builder)
		instrs := lowering.BuildProgram(program)

		if cfg.DumpTAC {
			fmt.Fprint(os.Stderr, emit.PrettyPrint(instrs))
		}

		driver := emit.NewDriver(reporter)
		driver.NumColors = cfg.Registers
		if cfg.QbeTarget != "" {
			if goos, goarch, ok := strings.Cut(cfg.QbeTarget, "/"); ok {
				driver.GOOS, driver.GOARCH = goos, goarch
			} else {
				return fmt.Errorf("decafc: -target must be goos/goarch, got %q", cfg.QbeTarget)
			}
		}

		format, err := parseFormat(emitFormat)
		if err != nil {
			return err
		}

		output, err := driver.Run(instrs, format)
		if err != nil {
			return err
		}

		if outputPath == "" || outputPath == "-" {
			fmt.Fprint(os.Stdout, output)
			return nil
		}
		return os.WriteFile(outputPath, []byte(output), 0o644)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFormat(name string) (emit.Format, error) {
	switch strings.ToLower(name) {
	case "tac":
		return emit.FormatTAC, nil
	case "qbe":
		return emit.FormatQBE, nil
	case "asm":
		return emit.FormatAsm, nil
	default:
		return 0, fmt.Errorf("decafc: unknown -emit format %q (want tac, qbe, or asm)", name)
	}
}
