package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kpumuk/twbridge/internal/dump"
	"github.com/kpumuk/twbridge/internal/engine"
)

// app holds the resolved configuration shared by subcommands.
type app struct {
	st *globalState

	engine     string
	wasmModule string
	formatName string
	noColor    bool
	verbose    bool
	namedOnly  bool
	maxDepth   int

	format   dump.Format
	colorize bool
}

func newRootCmd(st *globalState) *cobra.Command {
	a := &app{st: st}

	root := &cobra.Command{
		Use:   "thrifttree",
		Short: "Inspect tree-sitter syntax trees of Thrift IDL files",
		Long: `Inspect tree-sitter syntax trees of Thrift IDL files.

Settings fall back to THRIFTTREE_ENGINE, THRIFTTREE_WASM_MODULE, THRIFTTREE_FORMAT, and
THRIFTTREE_NO_COLOR when the matching flag is not given.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.resolve(cmd.Flags()) },
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.engine, "engine", "native", "parser engine: native or wasm")
	flags.StringVar(&a.wasmModule, "wasm-module", "", "runtime module for the wasm engine; its checksum is read from FILE.sha256")
	flags.StringVarP(&a.formatName, "format", "f", string(dump.FormatSexp), "output format: sexp, json, or yaml")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log engine activity to stderr")
	flags.BoolVar(&a.namedOnly, "named-only", false, "omit anonymous tokens")
	flags.IntVar(&a.maxDepth, "max-depth", 0, "stop printing below this depth (0 = unlimited)")

	root.AddCommand(newParseCmd(a))
	root.AddCommand(newDiffCmd(a))
	return root
}

// resolve applies environment fallbacks and validates the combined settings.
func (a *app) resolve(flags *pflag.FlagSet) error {
	env, err := loadEnv(a.st.lookupEnv)
	if err != nil {
		return err
	}
	if !flags.Changed("engine") && env.Engine != "" {
		a.engine = env.Engine
	}
	if !flags.Changed("wasm-module") && env.WASMModule != "" {
		a.wasmModule = env.WASMModule
	}
	if !flags.Changed("format") && env.Format != "" {
		a.formatName = env.Format
	}
	if !flags.Changed("no-color") {
		a.noColor = a.noColor || env.NoColor
	}

	if a.format, err = dump.ParseFormat(a.formatName); err != nil {
		return usageError{err}
	}
	if a.maxDepth < 0 {
		return usageError{fmt.Errorf("--max-depth must not be negative, got %d", a.maxDepth)}
	}
	a.colorize = !a.noColor && a.st.stdoutTTY && a.format == dump.FormatSexp

	if a.verbose {
		a.st.logger.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func (a *app) newFactory(ctx context.Context) (engine.Factory, error) {
	f, err := engine.New(ctx, engine.Config{
		Engine:     a.engine,
		WASMModule: a.wasmModule,
		Fs:         a.st.fs,
		Logger:     a.st.logger,
	})
	switch {
	case err == nil:
		a.st.logger.WithField("engine", f.Name()).Debug("engine ready")
		return f, nil
	case errors.Is(err, engine.ErrUnknownEngine), errors.Is(err, engine.ErrModuleRequired):
		return nil, usageError{err}
	default:
		return nil, err
	}
}

// readInput reads path, or standard input when path is "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		src, err := io.ReadAll(a.st.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return src, nil
	}
	src, err := afero.ReadFile(a.st.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return src, nil
}

func (a *app) dumpOptions() dump.Options {
	return dump.Options{NamedOnly: a.namedOnly, MaxDepth: a.maxDepth}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
