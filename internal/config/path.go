package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var isWindows = runtime.GOOS == "windows"

// ExpandPath expands a leading ~ (meaning home directory) to an absolute path. Works cross-OS (including Windows, which doesn't traditionally treat ~ as the home
// directory). Relative paths are made absolute against the working directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	expanded := path
	if strings.HasPrefix(expanded, "~") {
		if home, _ := os.UserHomeDir(); home != "" {
			switch {
			case expanded == "~" || expanded == "~/" || expanded == `~\`:
				expanded = home
			case strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`):
				expanded = filepath.Join(home, expanded[2:])
			}
		}
	}

	if !filepath.IsAbs(expanded) {
		if abs, err := filepath.Abs(expanded); err == nil {
			expanded = abs
		}
	}
	return expanded
}

// ResolvePath is ExpandPath, except that a relative path without a leading ~ is joined to baseDir instead of the process working directory. An empty baseDir
// falls back to ExpandPath.
func ResolvePath(path, baseDir string) string {
	if baseDir == "" || strings.HasPrefix(path, "~") || filepath.IsAbs(path) {
		return ExpandPath(path)
	}
	return filepath.Join(baseDir, path)
}

// UserConfigPath returns the user-level config file: ~/.config/linediff/config.toml, or %USERPROFILE%\AppData\Local\linediff\config.toml on Windows.
func UserConfigPath() string {
	if isWindows {
		return filepath.Join(ExpandPath("~/AppData/Local"), "linediff", UserFileName)
	}
	return filepath.Join(ExpandPath("~/.config"), "linediff", UserFileName)
}

// findNearest searches upward from start for the first readable, non-empty file named fileName. It returns "" if none is found.
func findNearest(fileName, start string) string {
	if start == "" {
		if wd, err := os.Getwd(); err == nil {
			start = wd
		}
	}
	if start == "" {
		return ""
	}
	if fi, err := os.Stat(start); err == nil && !fi.IsDir() {
		start = filepath.Dir(start)
	}

	for dir := start; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, fileName)
		if data, err := os.ReadFile(candidate); err == nil && strings.TrimSpace(string(data)) != "" {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
	}
}
