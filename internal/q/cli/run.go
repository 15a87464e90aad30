package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Options struct {
	// Args is the argv excluding the program name (typically os.Args[1:]).
	Args []string

	// In/Out/Err override standard I/O. If nil, defaults are used.
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Context is passed to a command handler.
//
// Positional args are in Args. Flag values are typically read via variables bound at command construction time (e.g. fs.Bool(...)).
type Context struct {
	context.Context

	Command *Command
	Args    []string

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Changed reports whether the flag called name, local or inherited, was given on the command line.
func (c *Context) Changed(name string) bool {
	def, ok := c.Command.activeFlags().byLong[name]
	return ok && def.changed
}

// Run executes a command tree as a CLI program and returns a process exit code:
//   - 0 on success, including -h/--help
//   - 2 for usage errors: unknown flags or commands, bad flag values, Args failures. The message is followed by the selected command's help.
//   - 1 for a handler error, unless it is an ExitCoder, which picks its own code
//
// Flags may appear anywhere after the command that defines them. "--" ends flag parsing; a lone "-" is a positional arg.
func Run(ctx context.Context, root *Command, opts Options) int {
	if root == nil {
		panic("cli: Run called with nil root")
	}
	if root.Name == "" {
		panic("cli: Run called with root.Name empty")
	}

	in, out, errOut := opts.In, opts.Out, opts.Err
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	p := &argvParser{selected: root, argv: opts.Args}
	if err := p.parse(); err != nil {
		printUsageError(p.selected, err, errOut)
		return 2
	}
	selected := p.selected
	if p.help {
		writeHelp(out, selected)
		return 0
	}

	if selected.Run == nil {
		if len(p.positional) == 0 {
			printUsageError(selected, usageErrorf("missing required subcommand"), errOut)
		} else {
			printUsageError(selected, usageErrorf("unknown subcommand: %s", p.positional[0]), errOut)
		}
		return 2
	}

	if selected.Args != nil {
		if err := selected.Args(p.positional); err != nil {
			return exitCodeFor(selected, err, errOut, 2)
		}
	}

	err := selected.Run(&Context{
		Context: ctx,
		Command: selected,
		Args:    p.positional,
		In:      in,
		Out:     out,
		Err:     errOut,
	})
	if err != nil {
		return exitCodeFor(selected, err, errOut, 1)
	}
	return 0
}

// argvParser selects a command and sets flags from argv. Command tokens are matched until the first positional arg or "--"; flags are resolved against
// the command selected so far, so a subcommand's local flags are unknown before the subcommand token.
type argvParser struct {
	argv []string
	idx  int

	selected   *Command
	selecting  bool
	positional []string
	help       bool
}

func (p *argvParser) parse() error {
	p.selecting = true
	for ; p.idx < len(p.argv); p.idx++ {
		token := p.argv[p.idx]
		switch {
		case token == "--":
			p.positional = append(p.positional, p.argv[p.idx+1:]...)
			return nil
		case token == "-h" || token == "--help":
			p.help = true
			return nil
		case strings.HasPrefix(token, "--"):
			if err := p.longFlag(token); err != nil {
				return err
			}
		case strings.HasPrefix(token, "-") && token != "-":
			if err := p.shortFlags(token); err != nil {
				return err
			}
		default:
			if p.selecting {
				if child := p.selected.childByToken(token); child != nil {
					p.selected = child
					continue
				}
				p.selecting = false
			}
			p.positional = append(p.positional, token)
		}
	}
	return nil
}

// next returns the token after the current one, if any.
func (p *argvParser) next() (string, bool) {
	if p.idx+1 >= len(p.argv) {
		return "", false
	}
	return p.argv[p.idx+1], true
}

// takeValue consumes the next token as the value of def. A bool flag only consumes a token that parses as a bool.
func (p *argvParser) takeValue(def *flagDef, token string) (string, error) {
	next, ok := p.next()
	if def.kind == flagBool {
		if ok && isBoolLiteral(next) {
			p.idx++
			return next, nil
		}
		return "true", nil
	}
	switch {
	case !ok:
		return "", usageErrorf("flag needs a value: %s", token)
	case next == "--":
		return "", usageErrorf("flag needs a value before --: %s", token)
	}
	p.idx++
	return next, nil
}

// longFlag handles --name and --name=value.
func (p *argvParser) longFlag(token string) error {
	name, value, hasValue := strings.Cut(token[2:], "=")
	def := p.selected.activeFlags().byLong[name]
	if def == nil || name == "" {
		return usageErrorf("unknown flag: %s", token)
	}
	if !hasValue {
		var err error
		if value, err = p.takeValue(def, token); err != nil {
			return err
		}
	}
	return setFlag(def, value)
}

// shortFlags handles -x, -x=value, -xvalue, and grouped bools like -li. In a group, the first non-bool flag takes the rest of the token (or the next token)
// as its value.
func (p *argvParser) shortFlags(token string) error {
	active := p.selected.activeFlags()
	body := token[1:]
	for body != "" {
		r, size := utf8.DecodeRuneInString(body)
		body = body[size:]

		def := active.byShort[r]
		if def == nil {
			if len(token) == 2 {
				return usageErrorf("unknown flag: %s", token)
			}
			return usageErrorf("unknown flag: -%c in %s", r, token)
		}

		if value, ok := strings.CutPrefix(body, "="); ok {
			return setFlag(def, value)
		}
		if def.kind == flagBool {
			if body != "" {
				if err := setFlag(def, "true"); err != nil {
					return err
				}
				continue
			}
			value, err := p.takeValue(def, token)
			if err != nil {
				return err
			}
			return setFlag(def, value)
		}

		if body != "" {
			return setFlag(def, body)
		}
		value, err := p.takeValue(def, token)
		if err != nil {
			return err
		}
		return setFlag(def, value)
	}
	return nil
}

func setFlag(def *flagDef, raw string) error {
	if err := def.set(raw); err != nil {
		return usageErrorf("invalid value for %s: %v", def.display(), err)
	}
	return nil
}

func isBoolLiteral(s string) bool {
	_, err := strconv.ParseBool(s)
	return err == nil
}

// exitCodeFor maps a handler or Args error to an exit code, printing it to errOut. Exit code 2 also prints cmd's help. A plain error (not an ExitCoder)
// exits with plainCode, which is 2 for Args validators and 1 for handlers.
func exitCodeFor(cmd *Command, err error, errOut io.Writer, plainCode int) int {
	code := plainCode
	var ec ExitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	switch code {
	case 0:
	case 2:
		printUsageError(cmd, err, errOut)
	default:
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(errOut, msg)
		}
	}
	return code
}

func printUsageError(cmd *Command, err error, errOut io.Writer) {
	var ue UsageError
	msg := err.Error()
	if errors.As(err, &ue) && ue.Message != "" {
		msg = ue.Message
	}
	if msg != "" {
		fmt.Fprintln(errOut, msg)
		fmt.Fprintln(errOut)
	}
	writeHelp(errOut, cmd)
}
