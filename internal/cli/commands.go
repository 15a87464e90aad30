package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/codalotl/linediff/internal/applypatch"
	"github.com/codalotl/linediff/internal/config"
	"github.com/codalotl/linediff/internal/diff"
	qcli "github.com/codalotl/linediff/internal/q/cli"
	"github.com/codalotl/linediff/internal/scriptstore"
	"github.com/codalotl/linediff/internal/simplelogger"
)

var errBothStdin = qcli.Usagef(`at most one of <old> and <new> may be "-"`)

type configState struct {
	once sync.Once
	env  *environment
	cfg  config.Config
	err  error
}

func (s *configState) get() (config.Config, error) {
	s.once.Do(func() {
		s.cfg, s.err = config.Load(&config.Options{
			SearchStart: s.env.dir,
			LookupEnv:   s.env.lookupEnv,
		})
	})
	return s.cfg, s.err
}

// withFlag overrides key in cfg from the command-line flag named flag, if it was given.
func withFlag(c *qcli.Context, cfg *config.Config, key, flag string, set func()) {
	if !c.Changed(flag) {
		return
	}
	set()
	cfg.Sources[key] = config.Source{Type: "flag", Identifier: "--" + flag}
}

func newRootCommand(env *environment) *qcli.Command {
	cfgState := &configState{env: env}

	runWithConfig := func(event string, next func(c *qcli.Context, cfg config.Config) error) qcli.RunFunc {
		return func(c *qcli.Context) error {
			cfg, err := cfgState.get()
			if err != nil {
				return qcli.ExitError{Code: 1, Err: err}
			}
			// Copy Sources so flag overrides don't leak into the cached config.
			sources := make(map[string]config.Source, len(cfg.Sources))
			for k, v := range cfg.Sources {
				sources[k] = v
			}
			cfg.Sources = sources

			if simplelogger.Enabled() {
				simplelogger.Log("%s %s", event, strings.Join(c.Args, " "))
			}
			err = next(c, cfg)
			if err != nil && err.Error() != "" {
				simplelogger.Log("%s failed: %v", event, err)
			}
			return err
		}
	}

	root := &qcli.Command{
		Name:  "linediff",
		Short: "Minimal line diffs and strict edit-script application.",
		Example: strings.Join([]string{
			"linediff diff old.txt new.txt",
			"linediff diff --format script old.txt new.txt > change.script",
			"linediff apply old.txt change.script -o new.txt",
		}, "\n"),
	}

	root.AddCommand(
		newDiffCommand(env, runWithConfig),
		newApplyCommand(env, runWithConfig),
		newStatCommand(env, runWithConfig),
		newStoreCommand(env, runWithConfig),
		newConfigCommand(runWithConfig),
		newVersionCommand(),
	)
	return root
}

type configRunner func(event string, next func(c *qcli.Context, cfg config.Config) error) qcli.RunFunc

func newDiffCommand(env *environment, runWithConfig configRunner) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "diff",
		Use:   "<old> <new>",
		Short: "Print a minimal line diff of two files.",
		Long: "Compares <old> and <new> line by line. Either may be \"-\" for stdin. The script format output can be replayed with `linediff apply`.\n" +
			"Flags override the context, color, format, width, and maxcost configuration keys.",
		Args: qcli.NamedArgs("<old>", "<new>"),
	}
	f := cmd.Flags()
	format := f.Enum("format", 'f', "unified", config.Formats, "Output format.")
	contextLines := f.Int("context", 'C', 3, "Unchanged lines shown around each change.")
	color := f.Enum("color", 0, "auto", config.ColorModes, "Colorize the output.")
	width := f.Int("width", 'w', 0, "Width of side-by-side output; 0 uses the terminal width.")
	maxCost := f.Int("max-cost", 0, -1, "Edit distance past which the diff replaces the whole file; -1 is no limit.")
	exitCode := f.Bool("exit-code", 0, false, "Exit with status 1 if the inputs differ.")

	cmd.Run = runWithConfig("diff", func(c *qcli.Context, cfg config.Config) error {
		withFlag(c, &cfg, "format", "format", func() { cfg.Format = *format })
		withFlag(c, &cfg, "context", "context", func() { cfg.Context = *contextLines })
		withFlag(c, &cfg, "color", "color", func() { cfg.Color = *color })
		withFlag(c, &cfg, "width", "width", func() { cfg.Width = *width })
		withFlag(c, &cfg, "maxcost", "max-cost", func() { cfg.MaxCost = *maxCost })
		if err := config.Validate(cfg); err != nil {
			return qcli.Usagef("%v", err)
		}

		oldName, newName := c.Args[0], c.Args[1]
		if oldName == "-" && newName == "-" {
			return errBothStdin
		}
		oldText, err := env.readInput(oldName)
		if err != nil {
			return err
		}
		newText, err := env.readInput(newName)
		if err != nil {
			return err
		}

		s, ok := diff.LinesWithBudget(diff.SplitLines(oldText), diff.SplitLines(newText), cfg.MaxCost)
		if !ok {
			simplelogger.Log("diff: edit distance exceeds maxcost %d; replacing %s", cfg.MaxCost, oldName)
			fmt.Fprintf(c.Err, "warning: edit distance exceeds max cost %d; showing a full replacement\n", cfg.MaxCost)
		}

		out, err := renderDiff(env, c.Out, s, cfg, oldName, newName)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(c.Out, out); err != nil {
			return err
		}

		if *exitCode && s.HasChanges() {
			return qcli.ExitError{Code: 1}
		}
		return nil
	})
	return cmd
}

func renderDiff(env *environment, w io.Writer, s diff.Script, cfg config.Config, oldName, newName string) (string, error) {
	useColor := env.colorEnabled(cfg.Color, w)
	switch cfg.Format {
	case "script":
		return applypatch.FormatScript(s, applypatch.FormatOptions{})
	case "side":
		return s.RenderSideBySide(env.outputWidth(cfg.Width, w), useColor, cfg.Context), nil
	case "pretty":
		// Pretty output is all color. Without color it falls back to a plain unified diff.
		if useColor {
			if !s.HasChanges() {
				return "", nil
			}
			return s.RenderPretty(oldName, newName, cfg.Context) + "\n", nil
		}
	}
	return s.RenderUnifiedDiff(useColor, oldName, newName, cfg.Context), nil
}

func newApplyCommand(env *environment, runWithConfig configRunner) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "apply",
		Use:   "<old> <script>",
		Short: "Apply an edit script to a file.",
		Long: "Reads the script written by `linediff diff --format script` and replays it against <old>. The result goes to stdout unless --output or\n" +
			"--in-place is given; those write atomically and only within the working directory. A script that does not match <old> exactly fails and\n" +
			"writes nothing. <script> may be \"-\" for stdin.",
		Args: qcli.NamedArgs("<old>", "<script>"),
	}
	f := cmd.Flags()
	output := f.String("output", 'o', "", "Write the result to this file.")
	inPlace := f.Bool("in-place", 'i', false, "Rewrite <old> with the result.")

	cmd.Run = runWithConfig("apply", func(c *qcli.Context, _ config.Config) error {
		oldName, scriptName := c.Args[0], c.Args[1]
		if *inPlace && *output != "" {
			return qcli.Usagef("--in-place and --output are mutually exclusive")
		}
		if oldName == "-" && scriptName == "-" {
			return qcli.Usagef(`at most one of <old> and <script> may be "-"`)
		}

		scriptText, err := env.readInput(scriptName)
		if err != nil {
			return err
		}

		if *inPlace || *output != "" {
			if oldName == "-" {
				return qcli.Usagef("<old> must be a file with --in-place or --output")
			}
			change, err := applypatch.ApplyToFile(env.dir, oldName, scriptText, *output)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "%s %s\n", change.Kind, change.Path)
			return nil
		}

		file, err := applypatch.ParseScript(scriptText)
		if err != nil {
			return fmt.Errorf("%s: %w", scriptName, err)
		}
		oldText, err := env.readInputOrEmpty(oldName, len(file.Script.OldLines()) == 0)
		if err != nil {
			return err
		}
		newText, err := applypatch.ApplyScript(oldText, file)
		if err != nil {
			return fmt.Errorf("%s: %w", oldName, err)
		}
		_, err = io.WriteString(c.Out, newText)
		return err
	})
	return cmd
}

func newStatCommand(env *environment, runWithConfig configRunner) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "stat",
		Use:   "<old> <new>",
		Short: "Summarize the differences between two files.",
		Long:  "Prints \"N lines: +I -D =E, distance X\", where N counts the lines of the diff and X = I + D.",
		Args:  qcli.NamedArgs("<old>", "<new>"),
	}
	cmd.Run = runWithConfig("stat", func(c *qcli.Context, _ config.Config) error {
		if c.Args[0] == "-" && c.Args[1] == "-" {
			return errBothStdin
		}
		oldText, err := env.readInput(c.Args[0])
		if err != nil {
			return err
		}
		newText, err := env.readInput(c.Args[1])
		if err != nil {
			return err
		}
		s := diff.Text(oldText, newText)
		st := s.Stats()
		_, err = fmt.Fprintf(c.Out, "%d lines: +%d -%d =%d, distance %d\n", len(s), st.Inserted, st.Deleted, st.Equal, st.Distance())
		return err
	})
	return cmd
}

func newStoreCommand(env *environment, runWithConfig configRunner) *qcli.Command {
	storeCmd := &qcli.Command{
		Name:  "store",
		Short: "Save and replay edit scripts by content key.",
		Long:  "Scripts are stored under the storedir configuration key, keyed by the hashes of their old and new text. Keys may be abbreviated to any unique prefix.",
	}
	dirFlag := storeCmd.PersistentFlags().String("dir", 'd', "", "Store root (overrides storedir).")

	openStore := func(c *qcli.Context, cfg config.Config) *scriptstore.Store {
		if c.Changed("dir") {
			cfg.StoreDir = *dirFlag
		}
		return &scriptstore.Store{AbsRoot: cfg.StoreRoot(env.dir)}
	}

	putCmd := &qcli.Command{
		Name:  "put",
		Use:   "<old> <new>",
		Short: "Diff two files and store the script; prints its key.",
		Args:  qcli.NamedArgs("<old>", "<new>"),
	}
	putCmd.Run = runWithConfig("store put", func(c *qcli.Context, cfg config.Config) error {
		if c.Args[0] == "-" && c.Args[1] == "-" {
			return errBothStdin
		}
		oldText, err := env.readInput(c.Args[0])
		if err != nil {
			return err
		}
		newText, err := env.readInput(c.Args[1])
		if err != nil {
			return err
		}
		key, err := openStore(c, cfg).Put(oldText, newText)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.Out, key)
		return err
	})

	applyCmd := &qcli.Command{
		Name:  "apply",
		Use:   "<old> <key>",
		Short: "Apply a stored script to a file; prints the result.",
		Args:  qcli.NamedArgs("<old>", "<key>"),
	}
	applyCmd.Run = runWithConfig("store apply", func(c *qcli.Context, cfg config.Config) error {
		st := openStore(c, cfg)
		key, err := st.Resolve(c.Args[1])
		if err != nil {
			return err
		}
		oldText, err := env.readInput(c.Args[0])
		if err != nil {
			return err
		}
		newText, err := st.Apply(key, oldText)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Args[0], err)
		}
		_, err = io.WriteString(c.Out, newText)
		return err
	})

	showCmd := &qcli.Command{
		Name:  "show",
		Use:   "<key>",
		Short: "Print a stored script.",
		Args:  qcli.NamedArgs("<key>"),
	}
	showCmd.Run = runWithConfig("store show", func(c *qcli.Context, cfg config.Config) error {
		st := openStore(c, cfg)
		key, err := st.Resolve(c.Args[0])
		if err != nil {
			return err
		}
		rec, found, err := st.Get(key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s: %w", key.Short(), scriptstore.ErrNotFound)
		}
		_, err = io.WriteString(c.Out, rec.Script)
		return err
	})

	lsCmd := &qcli.Command{
		Name:    "ls",
		Aliases: []string{"list"},
		Short:   "List stored script keys.",
		Args:    qcli.NoArgs,
	}
	long := lsCmd.Flags().Bool("long", 'l', false, "Also print each script's stats and creation time.")
	lsCmd.Run = runWithConfig("store ls", func(c *qcli.Context, cfg config.Config) error {
		st := openStore(c, cfg)
		keys, err := st.List()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if !*long {
				fmt.Fprintln(c.Out, key)
				continue
			}
			rec, found, err := st.Get(key)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			created := time.Unix(rec.UnixTimestamp, 0).UTC().Format(time.RFC3339)
			fmt.Fprintf(c.Out, "%s +%d -%d =%d %s\n", key, rec.Stats.Inserted, rec.Stats.Deleted, rec.Stats.Equal, created)
		}
		return nil
	})

	storeCmd.AddCommand(putCmd, applyCmd, showCmd, lsCmd)
	return storeCmd
}

func newConfigCommand(runWithConfig configRunner) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "config",
		Short: "Print the effective configuration and where each value came from.",
		Args:  qcli.NoArgs,
	}
	cmd.Run = runWithConfig("config", func(c *qcli.Context, cfg config.Config) error {
		return config.Write(c.Out, cfg)
	})
	return cmd
}

func newVersionCommand() *qcli.Command {
	return &qcli.Command{
		Name:  "version",
		Short: "Print the linediff version.",
		Args:  qcli.NoArgs,
		Run: func(c *qcli.Context) error {
			_, err := fmt.Fprintf(c.Out, "linediff %s (script format %s)\n", Version, applypatch.FormatVersion)
			return err
		},
	}
}
