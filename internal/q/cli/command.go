package cli

import "strings"

// RunFunc is a command handler.
type RunFunc func(c *Context) error

// ArgsFunc validates positional args. It should return a UsageError (or any ExitCoder with code 2) for user-facing usage mistakes.
type ArgsFunc func(args []string) error

// Command is one node of a command tree. A command with a nil Run is a namespace: invoking it without a subcommand is a usage error.
type Command struct {
	// Name is the token used to invoke this command (e.g. "put" in "store put").
	Name string

	// Aliases are additional tokens that invoke this command.
	Aliases []string

	// Use is the positional-argument synopsis shown in help, e.g. "<old> <new>". Empty shows "[args]" for runnable commands.
	Use string

	Short   string
	Long    string
	Example string

	Args ArgsFunc // optional
	Run  RunFunc  // optional

	parent          *Command
	children        []*Command
	localFlags      *FlagSet
	persistentFlags *FlagSet
}

// AddCommand attaches children under c. It panics on a nil child, a child with no Name, a child that already has a parent, or a token already used by a sibling.
func (c *Command) AddCommand(children ...*Command) {
	for _, child := range children {
		switch {
		case child == nil:
			panic("cli: AddCommand called with nil child")
		case child.parent != nil:
			panic("cli: AddCommand called with a child already attached to a parent")
		case child.Name == "":
			panic("cli: AddCommand called with a child with empty Name")
		}
		for _, token := range child.tokens() {
			if c.childByToken(token) != nil {
				panic("cli: duplicate command token under " + c.displayName() + ": " + token)
			}
		}
		c.children = append(c.children, child)
		child.parent = c
	}
}

// Commands returns the direct children of c in the order they were added.
func (c *Command) Commands() []*Command {
	return append([]*Command(nil), c.children...)
}

// Flags returns c's local flags.
func (c *Command) Flags() *FlagSet {
	if c.localFlags == nil {
		c.localFlags = newFlagSet()
	}
	return c.localFlags
}

// PersistentFlags returns flags inherited by c and its descendants.
func (c *Command) PersistentFlags() *FlagSet {
	if c.persistentFlags == nil {
		c.persistentFlags = newFlagSet()
	}
	return c.persistentFlags
}

func (c *Command) tokens() []string {
	return append([]string{c.Name}, c.Aliases...)
}

func (c *Command) childByToken(token string) *Command {
	for _, child := range c.children {
		for _, t := range child.tokens() {
			if t == token {
				return child
			}
		}
	}
	return nil
}

// pathFromRoot returns the commands from the root down to c, inclusive.
func (c *Command) pathFromRoot() []*Command {
	depth := 0
	for cur := c; cur != nil; cur = cur.parent {
		depth++
	}
	path := make([]*Command, depth)
	for cur := c; cur != nil; cur = cur.parent {
		depth--
		path[depth] = cur
	}
	return path
}

// displayName is the space-separated invocation of c, e.g. "linediff store put".
func (c *Command) displayName() string {
	path := c.pathFromRoot()
	names := make([]string, len(path))
	for i, cmd := range path {
		names[i] = cmd.Name
	}
	return strings.Join(names, " ")
}
