package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// terminalFD returns w's file descriptor and whether it is a terminal.
func terminalFD(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// colorEnabled resolves a color mode ("auto", "always", "never") for output written to w. In auto mode, color is on only when w is a terminal and NO_COLOR
// is unset.
func (e *environment) colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if e.getenv("NO_COLOR") != "" {
		return false
	}
	_, isTTY := terminalFD(w)
	return isTTY
}

// outputWidth picks the side-by-side width: configured if positive, else the terminal width of w, else $COLUMNS. It returns 0 when none is known, which
// the renderer treats as its default width.
func (e *environment) outputWidth(configured int, w io.Writer) int {
	if configured > 0 {
		return configured
	}
	if fd, ok := terminalFD(w); ok {
		if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
			return cols
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(e.getenv("COLUMNS"))); err == nil && n > 0 {
		return n
	}
	return 0
}

// path resolves p against the working directory.
func (e *environment) path(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.dir, p)
}

// readInput reads the file at p, or all of stdin when p is "-".
func (e *environment) readInput(p string) (string, error) {
	if p == "-" {
		b, err := io.ReadAll(e.in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(e.path(p))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readInputOrEmpty is readInput, except that allowMissing turns a missing file into empty text.
func (e *environment) readInputOrEmpty(p string, allowMissing bool) (string, error) {
	text, err := e.readInput(p)
	if err != nil && allowMissing && errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return text, err
}
