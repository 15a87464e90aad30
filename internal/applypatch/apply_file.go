package applypatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/codalotl/linediff/internal/simplelogger"
)

type FileChangeKind int

const (
	_ FileChangeKind = iota
	FileChangeAdded
	FileChangeModified
)

func (k FileChangeKind) String() string {
	switch k {
	case FileChangeAdded:
		return "added"
	case FileChangeModified:
		return "modified"
	default:
		return "unknown"
	}
}

type FileChange struct {
	Path string // slash-separated, relative to the root
	Kind FileChangeKind
}

// ApplyToFile parses scriptText, applies it to the file at relPath (relative to cwdAbsPath, which must be absolute), and writes the result to outRelPath, or back to
// relPath if outRelPath is empty. The write is atomic: readers see either the old or the new content.
//
// If relPath does not exist and the script consumes no old lines, the old text is taken to be empty and the output file is created.
//
// Paths that resolve to the root itself or escape it are invalid (see IsInvalidScript). Mismatches between the script and the file are reported as
// diff.IsScriptMismatch; nothing is written in that case.
func ApplyToFile(cwdAbsPath string, relPath string, scriptText string, outRelPath string) (FileChange, error) {
	if !filepath.IsAbs(cwdAbsPath) {
		return FileChange{}, fmt.Errorf("cwdAbsPath must be absolute: %q", cwdAbsPath)
	}
	root := filepath.Clean(cwdAbsPath)

	src, err := resolvePatchPath(root, relPath)
	if err != nil {
		return FileChange{}, invalidScriptError(fmt.Errorf("path %q: %w", relPath, err))
	}
	dst := src
	if outRelPath != "" {
		dst, err = resolvePatchPath(root, outRelPath)
		if err != nil {
			return FileChange{}, invalidScriptError(fmt.Errorf("output path %q: %w", outRelPath, err))
		}
	}

	f, err := ParseScript(scriptText)
	if err != nil {
		return FileChange{}, err
	}

	srcPath := filepath.Join(root, filepath.FromSlash(src))
	dstPath := filepath.Join(root, filepath.FromSlash(dst))

	mode := fs.FileMode(0o644)
	oldText := ""
	data, err := os.ReadFile(srcPath)
	switch {
	case err == nil:
		oldText = string(data)
		if info, statErr := os.Stat(srcPath); statErr == nil {
			mode = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist) && len(f.Script.OldLines()) == 0:
		// Creating a file from an insert-only script.
	default:
		return FileChange{}, err
	}

	newText, err := ApplyScript(oldText, f)
	if err != nil {
		return FileChange{}, fmt.Errorf("%s: %w", src, err)
	}

	kind := FileChangeModified
	if _, err := os.Stat(dstPath); errors.Is(err, fs.ErrNotExist) {
		kind = FileChangeAdded
	}
	if err := ensureParentDir(dstPath); err != nil {
		return FileChange{}, err
	}
	if err := writeFileAtomic(dstPath, []byte(newText), mode); err != nil {
		return FileChange{}, err
	}
	simplelogger.Log("applypatch: %s %s from %s", kind, dst, src)
	return FileChange{Path: dst, Kind: kind}, nil
}

func ensureParentDir(path string) error {
	if d := filepath.Dir(path); d != "." && d != "" {
		return os.MkdirAll(d, 0o777)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func resolvePatchPath(root, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty path")
	}
	path := filepath.FromSlash(raw)
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(root, path))
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", fmt.Errorf("path %q resolves to working directory root", raw)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes working directory %s", raw, root)
	}

	return filepath.ToSlash(rel), nil
}
