package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// writeHelp prints cmd's help. Command and flag tables are column-aligned.
func writeHelp(out io.Writer, cmd *Command) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	title := cmd.displayName()
	if cmd.Short != "" {
		title += " - " + cmd.Short
	}
	fmt.Fprintln(w, title)
	if cmd.Long != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(cmd.Long, "\n"))
	}

	section := func(name string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", name)
		for _, line := range lines {
			if line == "" {
				fmt.Fprintln(w)
				continue
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	section("Usage", []string{usageLine(cmd)})

	children := cmd.Commands()
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	var commands []string
	for _, child := range children {
		commands = append(commands, strings.TrimSuffix(child.Name+"\t"+child.Short, "\t"))
	}
	section("Commands", commands)

	var flags []string
	for _, def := range sortedFlags(cmd) {
		flags = append(flags, flagHelpLine(def))
	}
	section("Flags", flags)

	if cmd.Example != "" {
		section("Example", strings.Split(strings.TrimRight(cmd.Example, "\n"), "\n"))
	}
}

// usageLine is the synopsis, e.g. "linediff diff [flags] <old> <new>".
func usageLine(cmd *Command) string {
	segments := []string{cmd.displayName()}
	if len(sortedFlags(cmd)) > 0 {
		segments = append(segments, "[flags]")
	}
	if len(cmd.children) > 0 {
		if cmd.Run == nil {
			segments = append(segments, "<command>")
		} else {
			segments = append(segments, "[command]")
		}
	}
	switch {
	case cmd.Use != "":
		segments = append(segments, cmd.Use)
	case cmd.Run != nil:
		segments = append(segments, "[args]")
	}
	return strings.Join(segments, " ")
}

// flagHelpLine renders one "Flags:" entry without its leading indent. Enum flags list their allowed values; non-zero defaults are appended to the usage.
func flagHelpLine(def *flagDef) string {
	names := "    --" + def.name
	if def.shorthand != 0 {
		names = fmt.Sprintf("-%c, --%s", def.shorthand, def.name)
	}
	switch def.kind {
	case flagBool:
	case flagEnum:
		names += " <" + strings.Join(def.allowed, "|") + ">"
	default:
		names += " <" + def.kind.String() + ">"
	}

	usage := strings.TrimSpace(def.usage)
	if def.kind != flagBool && def.defValue != "" && def.defValue != "0" {
		usage = strings.TrimSpace(usage + " (default " + def.defValue + ")")
	}
	if usage == "" {
		return names
	}
	return names + "\t" + usage
}
