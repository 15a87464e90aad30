// Package config loads linediff's layered configuration.
//
// Sources, from lowest to highest precedence:
//   - built-in defaults
//   - the user file (UserConfigPath)
//   - the nearest project file named ProjectFileName, searched upward from the working directory
//   - LINEDIFF_* environment variables
//
// Files are TOML. Unknown keys in a file are an error that names the file. Every field of Config records which source set it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	UserFileName    = "config.toml"
	ProjectFileName = ".linediff.toml"
)

// Allowed values of the enum keys.
var (
	ColorModes = []string{"auto", "always", "never"}
	Formats    = []string{"unified", "pretty", "side", "script"}
)

// Keys lists every config key in display order.
var Keys = []string{"context", "color", "format", "width", "maxcost", "storedir"}

// EnvVars maps each key to its environment variable.
var EnvVars = map[string]string{
	"context":  "LINEDIFF_CONTEXT",
	"color":    "LINEDIFF_COLOR",
	"format":   "LINEDIFF_FORMAT",
	"width":    "LINEDIFF_WIDTH",
	"maxcost":  "LINEDIFF_MAX_COST",
	"storedir": "LINEDIFF_STORE_DIR",
}

// Source says where a value came from.
type Source struct {
	Type       string // "default", "file", "env", or "flag"
	Identifier string // file path or env var name; "" for defaults
}

func (s Source) String() string {
	if s.Identifier == "" {
		return s.Type
	}
	return s.Type + " " + s.Identifier
}

// Config is the effective configuration.
type Config struct {
	Context  int    `toml:"context"`  // Lines of context around changes.
	Color    string `toml:"color"`    // One of ColorModes.
	Format   string `toml:"format"`   // Default diff output format; one of Formats.
	Width    int    `toml:"width"`    // Side-by-side width; 0 detects the terminal.
	MaxCost  int    `toml:"maxcost"`  // Edit distance budget for diff; -1 is unbounded.
	StoreDir string `toml:"storedir"` // Script store root; may start with "~".

	// Sources maps each key in Keys to where its value came from.
	Sources map[string]Source `toml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	cfg := Config{
		Context:  3,
		Color:    "auto",
		Format:   "unified",
		Width:    0,
		MaxCost:  -1,
		StoreDir: "~/.linediff/store",
		Sources:  make(map[string]Source, len(Keys)),
	}
	for _, k := range Keys {
		cfg.Sources[k] = Source{Type: "default"}
	}
	return cfg
}

// StoreRoot returns StoreDir as an absolute path, resolved with ResolvePath against baseDir.
func (c Config) StoreRoot(baseDir string) string {
	return ResolvePath(c.StoreDir, baseDir)
}

// Options control Load. The zero value loads from the standard locations and the process environment.
type Options struct {
	UserFile    string                           // Overrides UserConfigPath().
	SkipUser    bool                             // Don't read a user file.
	SearchStart string                           // Where the project file search starts; default is the working directory.
	SkipProject bool                             // Don't search for a project file.
	LookupEnv   func(key string) (string, bool) // Defaults to os.LookupEnv.
}

// fileConfig mirrors Config with pointers so a file can set a subset of keys.
type fileConfig struct {
	Context  *int    `toml:"context"`
	Color    *string `toml:"color"`
	Format   *string `toml:"format"`
	Width    *int    `toml:"width"`
	MaxCost  *int    `toml:"maxcost"`
	StoreDir *string `toml:"storedir"`
}

// Load builds the effective configuration and validates it.
func Load(opts *Options) (Config, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg := Defaults()

	if !opts.SkipUser {
		path := opts.UserFile
		if path == "" {
			path = UserConfigPath()
		}
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("load configuration: %w", err)
		}
	}
	if !opts.SkipProject {
		if path := findNearest(ProjectFileName, opts.SearchStart); path != "" {
			if err := applyFile(&cfg, path); err != nil {
				return Config{}, fmt.Errorf("load configuration: %w", err)
			}
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, fmt.Errorf("load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyFile overlays the TOML file at path onto cfg. A missing or whitespace-only file contributes nothing.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}

	var fc fileConfig
	md, err := toml.Decode(string(data), &fc)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: unknown key(s): %s", path, strings.Join(keys, ", "))
	}

	src := Source{Type: "file", Identifier: path}
	setInt(cfg, "context", &cfg.Context, fc.Context, src)
	setString(cfg, "color", &cfg.Color, fc.Color, src)
	setString(cfg, "format", &cfg.Format, fc.Format, src)
	setInt(cfg, "width", &cfg.Width, fc.Width, src)
	setInt(cfg, "maxcost", &cfg.MaxCost, fc.MaxCost, src)
	setString(cfg, "storedir", &cfg.StoreDir, fc.StoreDir, src)
	return nil
}

func setInt(cfg *Config, key string, dst *int, v *int, src Source) {
	if v == nil {
		return
	}
	*dst = *v
	cfg.Sources[key] = src
}

func setString(cfg *Config, key string, dst *string, v *string, src Source) {
	if v == nil {
		return
	}
	*dst = *v
	cfg.Sources[key] = src
}

// applyEnv overlays LINEDIFF_* variables. Empty values are ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, key := range Keys {
		name := EnvVars[key]
		raw, ok := lookup(name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		if err := cfg.Set(key, raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		cfg.Sources[key] = Source{Type: "env", Identifier: name}
	}
	return nil
}

// Set assigns key from its string form (as read from the environment or a flag). It does not record a source or validate the value's range.
func (c *Config) Set(key, raw string) error {
	switch key {
	case "context", "width", "maxcost":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be an integer (got %q)", key, raw)
		}
		switch key {
		case "context":
			c.Context = n
		case "width":
			c.Width = n
		default:
			c.MaxCost = n
		}
	case "color":
		c.Color = raw
	case "format":
		c.Format = raw
	case "storedir":
		c.StoreDir = raw
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// Validate reports the first invalid value in cfg.
func Validate(cfg Config) error {
	if cfg.Context < 0 {
		return fmt.Errorf("invalid configuration: context must be >= 0 (got %d)", cfg.Context)
	}
	if !slices.Contains(ColorModes, cfg.Color) {
		return fmt.Errorf("invalid configuration: color must be one of %s (got %q)", strings.Join(ColorModes, ", "), cfg.Color)
	}
	if !slices.Contains(Formats, cfg.Format) {
		return fmt.Errorf("invalid configuration: format must be one of %s (got %q)", strings.Join(Formats, ", "), cfg.Format)
	}
	if cfg.Width < 0 {
		return fmt.Errorf("invalid configuration: width must be >= 0 (got %d)", cfg.Width)
	}
	if cfg.MaxCost < -1 {
		return fmt.Errorf("invalid configuration: maxcost must be >= -1 (got %d)", cfg.MaxCost)
	}
	if strings.TrimSpace(cfg.StoreDir) == "" {
		return errors.New("invalid configuration: storedir must not be empty")
	}
	return nil
}

// Write prints cfg as TOML, followed by a comment block naming the source of each key.
func Write(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\n# sources:"); err != nil {
		return err
	}
	for _, k := range Keys {
		src, ok := cfg.Sources[k]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "#   %s: %s\n", k, src); err != nil {
			return err
		}
	}
	return nil
}
