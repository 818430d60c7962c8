package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	exitOK       = 0
	exitSyntax   = 1
	exitUsage    = 2
	exitInternal = 3
)

var errSyntax = errors.New("syntax errors found")

// usageError marks errors caused by invalid arguments or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// envConfig is read from the environment; flags override it.
type envConfig struct {
	Engine     string `envconfig:"THRIFTTREE_ENGINE"`
	WASMModule string `envconfig:"THRIFTTREE_WASM_MODULE"`
	Format     string `envconfig:"THRIFTTREE_FORMAT"`
	NoColor    bool   `envconfig:"THRIFTTREE_NO_COLOR"`
}

// globalState carries the process environment into commands.
type globalState struct {
	fs        afero.Fs
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	// stdoutTTY reports whether stdout is a terminal that accepts color.
	stdoutTTY bool
	logger    *logrus.Logger
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	st := &globalState{
		fs:        afero.NewOsFs(),
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		lookupEnv: os.LookupEnv,
		stdoutTTY: isTerminal(stdout),
	}
	return execute(ctx, st, args)
}

func execute(ctx context.Context, st *globalState, args []string) int {
	st.logger = newLogger(st.stderr)

	root := newRootCmd(st)
	root.SetArgs(args)
	root.SetIn(st.stdin)
	root.SetOut(st.stdout)
	root.SetErr(st.stderr)

	err := root.ExecuteContext(ctx)
	var usage usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errSyntax):
		return exitSyntax
	case errors.As(err, &usage):
		writef(st.stderr, "thrifttree: %v\n\n%s", err, root.UsageString())
		return exitUsage
	default:
		writef(st.stderr, "thrifttree: %v\n", err)
		return exitInternal
	}
}

func loadEnv(lookup func(string) (string, bool)) (envConfig, error) {
	var cfg envConfig
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return envConfig{}, usageError{fmt.Errorf("environment: %w", err)}
	}
	return cfg, nil
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
