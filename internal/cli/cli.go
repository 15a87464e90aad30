package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	qcli "github.com/codalotl/linediff/internal/q/cli"
)

// Version is the linediff version. It is a var (not a const) so build tooling can override it (for example via `-ldflags "-X .../internal/cli.Version=1.2.3"`).
var Version = "0.3.0"

// differencesMessage is Run's error text when a command exits nonzero without writing to stderr, as `diff --exit-code` does when the inputs differ.
const differencesMessage = "files differ"

// RunOptions override the process environment. Zero fields use the defaults (os.Stdin, os.Stdout, os.Stderr, the working directory, os.LookupEnv). Overriding
// is useful for testing.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Dir is the working directory: relative paths, the project config search, and the --in-place/--output sandbox are resolved against it.
	Dir string

	// LookupEnv replaces os.LookupEnv for configuration and terminal detection.
	LookupEnv func(key string) (string, bool)
}

// Run runs the CLI with args (typically you'd use os.Args).
//
// It returns a recommended exit code and an error, if any:
//   - 0 -> err == nil
//   - 1 -> err != nil, but the structure of args is sound. Also used by `diff --exit-code` when the inputs differ.
//   - 2 -> err != nil, args parse error or misuse of flags, etc.
//
// Note that in cases of errors, Run has already displayed an error message to opts.Err || Stderr. Callers may use os.Exit with the exit code.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	env := newEnvironment(opts)

	// internal/q/cli returns only an exit code, so we tee stderr to produce a non-nil error when exitCode != 0.
	var stderrBuf bytes.Buffer
	errTee := io.MultiWriter(env.err, &stderrBuf)

	exitCode := qcli.Run(context.Background(), newRootCommand(env), qcli.Options{
		Args: argv,
		In:   env.in,
		Out:  env.out,
		Err:  errTee,
	})
	if exitCode == 0 {
		return 0, nil
	}

	msg := strings.TrimSpace(stderrBuf.String())
	if msg == "" {
		msg = differencesMessage
	}
	return exitCode, errors.New(msg)
}

// environment is the resolved RunOptions shared by every command.
type environment struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	dir       string
	lookupEnv func(string) (string, bool)
}

func newEnvironment(opts *RunOptions) *environment {
	env := &environment{
		in:        os.Stdin,
		out:       os.Stdout,
		err:       os.Stderr,
		lookupEnv: os.LookupEnv,
	}
	if opts != nil {
		if opts.In != nil {
			env.in = opts.In
		}
		if opts.Out != nil {
			env.out = opts.Out
		}
		if opts.Err != nil {
			env.err = opts.Err
		}
		if opts.LookupEnv != nil {
			env.lookupEnv = opts.LookupEnv
		}
		env.dir = opts.Dir
	}
	if abs, err := filepath.Abs(env.dir); err == nil {
		env.dir = abs // "" resolves to the working directory
	}
	return env
}

func (e *environment) getenv(key string) string {
	v, _ := e.lookupEnv(key)
	return v
}
