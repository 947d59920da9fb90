// Harness Generator
//
// This tool reads a libxl style type schema and writes a C program that
// randomly initializes a value of every declared type, serializes it to
// JSON, and round trips every enumeration through its string conversions.
//
// Usage:
//
//	gentest [flags] <schema-file> <output-file>
//
// The schema is YAML (.yaml, .yml) or JSON (.json). The output file is
// overwritten if it exists.
//
// Flags:
//
//	-s, --seed N       seed the random source (default: current time)
//	-c, --config FILE  YAML file overriding the harness options
//	    --silent       suppress all output except errors
//	    --debug        enable debug logging (also GENTEST_DEBUG=1)
//
// Example config:
//
//	includes: ["<stdio.h>", "<stdlib.h>", "\"libxl.h\""]
//	indent: "\t"
//	handcoded:
//	  - {type: libxl_cpumap, template: bitmap}
//	  - {type: libxl_string_list, template: string_list}
//
// Exit status is 1 for usage errors and 2 when the schema cannot be
// turned into a harness.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tempusfrangit/go-gentest"
	"github.com/tempusfrangit/go-gentest/idl"
)

const (
	exitUsage   = 1
	exitFailure = 2
)

var errUsage = errors.New("usage: gentest [flags] <schema-file> <output-file>")

type app struct {
	silent     bool
	debug      bool
	seed       uint64
	configPath string

	stderr io.Writer
	logger *slog.Logger
}

func newApp(stderr io.Writer) *app {
	return &app{
		// Set debug from environment variable if present
		debug:  os.Getenv("GENTEST_DEBUG") != "",
		stderr: stderr,
	}
}

func (a *app) setupLogger() {
	level := slog.LevelInfo
	switch {
	case a.debug:
		level = slog.LevelDebug
	case a.silent:
		level = slog.LevelError
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

// logf logs a message unless in silent mode
func (a *app) logf(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

// debugf logs a message only in debug mode
func (a *app) debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gentest [flags] <schema-file> <output-file>",
		Short: "Generate a random-initialization C test harness from a type schema",
		Long: "gentest - Harness Generator\n\n" +
			"Reads a libxl style type schema and writes a C program that randomly\n" +
			"initializes every declared type, serializes it to JSON, and round trips\n" +
			"every enumeration through its string conversions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				cmd.SetOut(a.stderr)
				_ = cmd.Usage()
				return errUsage
			}
			a.setupLogger()
			return a.run(args[0], args[1], cmd.Flags().Changed("seed"))
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(a.stderr)

	cmd.Flags().Uint64VarP(&a.seed, "seed", "s", 0, "seed for the random source")
	cmd.Flags().StringVarP(&a.configPath, "config", "c", "", "YAML file overriding the harness options")
	cmd.Flags().BoolVar(&a.silent, "silent", false, "suppress all output except errors")
	cmd.Flags().BoolVar(&a.debug, "debug", a.debug, "enable debug logging")
	return cmd
}

func (a *app) run(schemaPath, outputPath string, seedSet bool) error {
	opts := gentest.DefaultOptions()
	if a.configPath != "" {
		var err error
		opts, err = loadOptions(a.configPath)
		if err != nil {
			return err
		}
		a.debugf("loaded options from %s", a.configPath)
	}

	schema, err := idl.Load(schemaPath)
	if err != nil {
		return err
	}
	a.debugf("loaded %d builtins and %d types from %s", len(schema.Builtins), len(schema.Types), schemaPath)

	assemblerOpts := []gentest.Option{
		gentest.WithOptions(opts),
		gentest.WithLogger(gentest.NewSlogAdapter(a.logger)),
	}
	if seedSet {
		assemblerOpts = append(assemblerOpts, gentest.WithSeed(a.seed))
	}
	assembler, err := gentest.NewAssembler(schema, assemblerOpts...)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := assembler.Generate(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	a.logf("wrote %s (seed %d)", outputPath, assembler.Seed())
	return nil
}

// run executes the command line and returns the process exit status.
func run(args []string, stderr io.Writer) int {
	a := newApp(stderr)
	cmd := a.command()
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return exitUsage
	}

	fmt.Fprintf(stderr, "gentest: %v\n", err)

	// Flag parsing errors come from cobra before RunE runs.
	if a.logger == nil {
		return exitUsage
	}
	return exitFailure
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
