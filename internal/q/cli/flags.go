package cli

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

type flagKind uint8

const (
	flagBool flagKind = iota + 1
	flagString
	flagInt
	flagEnum
)

// FlagSet is a typed flag registry for a command.
type FlagSet struct {
	byLong  map[string]*flagDef
	byShort map[rune]*flagDef
}

type flagDef struct {
	name      string
	shorthand rune
	usage     string
	kind      flagKind
	defValue  string   // default, formatted for help
	allowed   []string // flagEnum only
	changed   bool     // set on the command line

	boolPtr   *bool
	stringPtr *string
	intPtr    *int
}

func newFlagSet() *FlagSet {
	return &FlagSet{
		byLong:  map[string]*flagDef{},
		byShort: map[rune]*flagDef{},
	}
}

func (fs *FlagSet) Bool(name string, shorthand rune, def bool, usage string) *bool {
	ptr := new(bool)
	*ptr = def
	fs.add(&flagDef{
		name:      name,
		shorthand: shorthand,
		usage:     usage,
		kind:      flagBool,
		defValue:  strconv.FormatBool(def),
		boolPtr:   ptr,
	})
	return ptr
}

func (fs *FlagSet) String(name string, shorthand rune, def string, usage string) *string {
	ptr := new(string)
	*ptr = def
	fs.add(&flagDef{
		name:      name,
		shorthand: shorthand,
		usage:     usage,
		kind:      flagString,
		defValue:  def,
		stringPtr: ptr,
	})
	return ptr
}

func (fs *FlagSet) Int(name string, shorthand rune, def int, usage string) *int {
	ptr := new(int)
	*ptr = def
	fs.add(&flagDef{
		name:      name,
		shorthand: shorthand,
		usage:     usage,
		kind:      flagInt,
		defValue:  strconv.Itoa(def),
		intPtr:    ptr,
	})
	return ptr
}

// Enum is a string flag restricted to allowed. Any other value is a usage error. def must be in allowed, or "" for no default.
func (fs *FlagSet) Enum(name string, shorthand rune, def string, allowed []string, usage string) *string {
	if len(allowed) == 0 {
		panic("cli: enum flag needs allowed values: --" + name)
	}
	if def != "" && !slices.Contains(allowed, def) {
		panic(fmt.Sprintf("cli: enum default %q not allowed for --%s", def, name))
	}
	ptr := new(string)
	*ptr = def
	fs.add(&flagDef{
		name:      name,
		shorthand: shorthand,
		usage:     usage,
		kind:      flagEnum,
		defValue:  def,
		allowed:   append([]string(nil), allowed...),
		stringPtr: ptr,
	})
	return ptr
}

// Changed reports whether the flag called name was given on the command line.
func (fs *FlagSet) Changed(name string) bool {
	def, ok := fs.byLong[name]
	return ok && def.changed
}

func (fs *FlagSet) add(def *flagDef) {
	if def.name == "" {
		panic("cli: flag name must be non-empty")
	}
	if _, ok := fs.byLong[def.name]; ok {
		panic("cli: duplicate flag: --" + def.name)
	}
	fs.byLong[def.name] = def
	if def.shorthand != 0 {
		if _, ok := fs.byShort[def.shorthand]; ok {
			panic(fmt.Sprintf("cli: duplicate shorthand flag: -%c", def.shorthand))
		}
		fs.byShort[def.shorthand] = def
	}
}

type activeFlags struct {
	byLong  map[string]*flagDef
	byShort map[rune]*flagDef
}

// activeFlags merges the persistent flags of every command from the root down to c with c's local flags.
func (c *Command) activeFlags() activeFlags {
	a := activeFlags{byLong: map[string]*flagDef{}, byShort: map[rune]*flagDef{}}
	for _, cmd := range c.pathFromRoot() {
		if cmd.persistentFlags != nil {
			for _, def := range cmd.persistentFlags.byLong {
				a.add(def)
			}
		}
	}
	if c.localFlags != nil {
		for _, def := range c.localFlags.byLong {
			a.add(def)
		}
	}
	return a
}

func (a activeFlags) add(def *flagDef) {
	if existing, ok := a.byLong[def.name]; ok && existing != def {
		panic("cli: flag name conflict across command path: --" + def.name)
	}
	a.byLong[def.name] = def
	if def.shorthand != 0 {
		if existing, ok := a.byShort[def.shorthand]; ok && existing != def {
			panic(fmt.Sprintf("cli: shorthand conflict across command path: -%c", def.shorthand))
		}
		a.byShort[def.shorthand] = def
	}
}

func (k flagKind) String() string {
	switch k {
	case flagBool:
		return "bool"
	case flagString:
		return "string"
	case flagInt:
		return "int"
	case flagEnum:
		return "enum"
	default:
		return ""
	}
}

// sortedFlags returns cmd's active flags ordered by name.
func sortedFlags(cmd *Command) []*flagDef {
	active := cmd.activeFlags()
	defs := make([]*flagDef, 0, len(active.byLong))
	for _, def := range active.byLong {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].name < defs[j].name })
	return defs
}

func (def *flagDef) set(raw string) error {
	switch def.kind {
	case flagBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*def.boolPtr = v
	case flagString:
		*def.stringPtr = raw
	case flagInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*def.intPtr = v
	case flagEnum:
		if !slices.Contains(def.allowed, raw) {
			return fmt.Errorf("%q is not one of %s", raw, strings.Join(def.allowed, ", "))
		}
		*def.stringPtr = raw
	default:
		return fmt.Errorf("unknown flag kind")
	}
	def.changed = true
	return nil
}

func (def *flagDef) display() string {
	if def.shorthand != 0 {
		return fmt.Sprintf("-%c/--%s", def.shorthand, def.name)
	}
	return "--" + def.name
}
