package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codalotl/linediff/internal/applypatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oldABC = "a\nb\nc\n"
	newAXC = "a\nX\nc\n"
)

type result struct {
	code   int
	err    error
	stdout string
	stderr string
}

// testEnv isolates a test from the user's config and environment. Files are written into dir, which is also the working directory.
type testEnv struct {
	t   *testing.T
	dir string
	env map[string]string
	in  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))
	return &testEnv{t: t, dir: t.TempDir(), env: map[string]string{}}
}

func (te *testEnv) write(name, content string) string {
	te.t.Helper()
	path := filepath.Join(te.dir, name)
	require.NoError(te.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(te.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (te *testEnv) read(name string) string {
	te.t.Helper()
	b, err := os.ReadFile(filepath.Join(te.dir, name))
	require.NoError(te.t, err)
	return string(b)
}

func (te *testEnv) run(args ...string) result {
	te.t.Helper()
	var out, errOut bytes.Buffer
	code, err := Run(append([]string{"linediff"}, args...), &RunOptions{
		In:  strings.NewReader(te.in),
		Out: &out,
		Err: &errOut,
		Dir: te.dir,
		LookupEnv: func(k string) (string, bool) {
			v, ok := te.env[k]
			return v, ok
		},
	})
	return result{code: code, err: err, stdout: out.String(), stderr: errOut.String()}
}

func TestRun_Help(t *testing.T) {
	te := newTestEnv(t)
	r := te.run("-h")
	require.NoError(t, r.err)
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "linediff - Minimal line diffs")
	for _, name := range []string{"diff", "apply", "stat", "store", "config", "version"} {
		assert.Contains(t, r.stdout, "\n  "+name)
	}
	assert.Empty(t, r.stderr)
}

func TestRun_NoCommandIsUsageError(t *testing.T) {
	te := newTestEnv(t)
	r := te.run()
	assert.Equal(t, 2, r.code)
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "missing required subcommand")
}

func TestDiff_Unified(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	r := te.run("diff", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "--- old.txt\n+++ new.txt\n@@ -1,3 +1,3 @@\n a\n-b\n+X\n c\n", r.stdout)
}

func TestDiff_IdenticalPrintsNothing(t *testing.T) {
	te := newTestEnv(t)
	te.write("a.txt", oldABC)
	te.write("b.txt", oldABC)

	r := te.run("diff", "--exit-code", "a.txt", "b.txt")
	require.NoError(t, r.err)
	assert.Equal(t, 0, r.code)
	assert.Empty(t, r.stdout)
}

func TestDiff_ExitCode(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	r := te.run("diff", "old.txt", "new.txt", "--exit-code")
	assert.Equal(t, 1, r.code)
	assert.EqualError(t, r.err, "files differ")
	assert.Empty(t, r.stderr)
	assert.NotEmpty(t, r.stdout)
}

func TestDiff_Stdin(t *testing.T) {
	te := newTestEnv(t)
	te.write("new.txt", newAXC)
	te.in = oldABC

	r := te.run("diff", "-", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, "--- -\n+++ new.txt\n"))

	r = te.run("diff", "-", "-")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, `at most one of <old> and <new> may be "-"`)
}

func TestDiff_Color(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	r := te.run("diff", "--color", "always", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "\x1b[31m-b\x1b[0m")

	// Auto never colors a buffer.
	r = te.run("diff", "old.txt", "new.txt")
	assert.NotContains(t, r.stdout, "\x1b[")

	// Pretty without color is a plain unified diff.
	r = te.run("diff", "--format=pretty", "old.txt", "new.txt")
	assert.Equal(t, "--- old.txt\n+++ new.txt\n@@ -1,3 +1,3 @@\n a\n-b\n+X\n c\n", r.stdout)

	r = te.run("diff", "--format=pretty", "--color=always", "old.txt", "new.txt")
	assert.Contains(t, r.stdout, "old.txt -> new.txt:")
	assert.True(t, strings.HasSuffix(r.stdout, "\n"))
}

func TestDiff_SideBySide(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	r := te.run("diff", "-f", "side", "-w", "23", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	pad := func(cell string) string { return cell + strings.Repeat(" ", 10-len(cell)) }
	assert.Equal(t, strings.Join([]string{
		"@@ -1,3 +1,3 @@",
		pad("1  a") + " | " + pad("1  a"),
		pad("2 -b") + " | " + pad("2 +X"),
		pad("3  c") + " | " + pad("3  c"),
	}, "\n")+"\n", r.stdout)

	// COLUMNS is used when stdout is not a terminal.
	te.env["COLUMNS"] = "13"
	r = te.run("diff", "-f", "side", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "2 -b  | 2 +X \n")
}

func TestDiff_ConfigPrecedence(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", "1\n2\n3\n4\n5\n")
	te.write("new.txt", "1\n2\nX\n4\n5\n")
	te.write(".linediff.toml", "context = 0\n")

	r := te.run("diff", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "@@ -3,1 +3,1 @@\n-3\n+X\n")

	te.env["LINEDIFF_CONTEXT"] = "1"
	r = te.run("diff", "old.txt", "new.txt")
	assert.Contains(t, r.stdout, "@@ -2,3 +2,3 @@\n 2\n-3\n+X\n 4\n")

	// Flags win over everything.
	r = te.run("diff", "-C", "2", "old.txt", "new.txt")
	assert.Contains(t, r.stdout, "@@ -1,5 +1,5 @@\n")
}

func TestDiff_InvalidConfig(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	te.write(".linediff.toml", "contxt = 1\n")
	r := te.run("diff", "old.txt", "new.txt")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "unknown key(s): contxt")

	require.NoError(t, os.Remove(filepath.Join(te.dir, ".linediff.toml")))
	r = te.run("diff", "--context=-1", "old.txt", "new.txt")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "context must be >= 0")

	r = te.run("diff", "--format=html", "old.txt", "new.txt")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, `"html" is not one of unified, pretty, side, script`)
}

func TestDiff_MaxCost(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	r := te.run("diff", "--max-cost", "1", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stderr, "exceeds max cost 1")
	assert.Contains(t, r.stdout, "-a\n-b\n-c\n+a\n+X\n+c\n")

	r = te.run("diff", "--max-cost", "2", "old.txt", "new.txt")
	assert.Empty(t, r.stderr)
	assert.Contains(t, r.stdout, " a\n-b\n+X\n c\n")
}

func TestDiff_MissingFile(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)

	r := te.run("diff", "old.txt", "nope.txt")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "nope.txt")
}

func TestScriptRoundTrip(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", "keep\ndrop\nkeep too")
	te.write("new.txt", "keep\nadd\nkeep too\n")

	r := te.run("diff", "--format", "script", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, "*** Begin Script v1.0.0\n"))
	te.write("change.script", r.stdout)

	r = te.run("apply", "old.txt", "change.script")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "keep\nadd\nkeep too\n", r.stdout)

	// The script can come from stdin.
	te.in = te.read("change.script")
	r = te.run("apply", "old.txt", "-")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "keep\nadd\nkeep too\n", r.stdout)
}

func TestApply_OutputAndInPlace(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	script := mustScript(t, oldABC, newAXC)
	te.write("change.script", script)

	r := te.run("apply", "old.txt", "change.script", "-o", "out/new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "added out/new.txt\n", r.stdout)
	assert.Equal(t, newAXC, te.read("out/new.txt"))
	assert.Equal(t, oldABC, te.read("old.txt"))

	r = te.run("apply", "--in-place", "old.txt", "change.script")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "modified old.txt\n", r.stdout)
	assert.Equal(t, newAXC, te.read("old.txt"))

	// Applying again fails: old.txt no longer matches the script's base.
	r = te.run("apply", "-i", "old.txt", "change.script")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "script mismatch")
	assert.Equal(t, newAXC, te.read("old.txt"))

	r = te.run("apply", "-i", "-o", "x.txt", "old.txt", "change.script")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "mutually exclusive")

	r = te.run("apply", "old.txt", "change.script", "-o", "../escape.txt")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "escapes")
}

func TestApply_Mismatch(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", "a\nB\nc\n")

	// Without hashes the records themselves are checked.
	s, err := applypatch.FormatScript(mustParse(t, mustScript(t, oldABC, newAXC)).Script, applypatch.FormatOptions{OmitHashes: true})
	require.NoError(t, err)
	te.write("change.script", s)

	r := te.run("apply", "old.txt", "change.script")
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "old.txt: script mismatch at record 1")
}

func TestApply_InvalidScript(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("bad.script", "not a script\n")

	r := te.run("apply", "old.txt", "bad.script")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "bad.script")
}

func TestApply_CreatesFromInsertOnlyScript(t *testing.T) {
	te := newTestEnv(t)
	te.write("add.script", mustScript(t, "", "hello\n"))

	r := te.run("apply", "missing.txt", "add.script")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "hello\n", r.stdout)
}

func TestStat(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC+"d\n")

	r := te.run("stat", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "5 lines: +2 -1 =2, distance 3\n", r.stdout)
}

func TestStore(t *testing.T) {
	te := newTestEnv(t)
	te.write("old.txt", oldABC)
	te.write("new.txt", newAXC)

	r := te.run("store", "--dir", "db", "put", "old.txt", "new.txt")
	require.Equal(t, 0, r.code, r.stderr)
	key := strings.TrimSpace(r.stdout)
	require.Len(t, key, 64)

	r = te.run("store", "ls", "-d", "db")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, key+"\n", r.stdout)

	r = te.run("store", "list", "--long", "--dir", "db")
	require.Equal(t, 0, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, key+" +1 -1 =2 "))

	r = te.run("store", "apply", "--dir", "db", "old.txt", key[:8])
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, newAXC, r.stdout)

	r = te.run("store", "show", "--dir", "db", key)
	require.Equal(t, 0, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, "*** Begin Script v1.0.0\n"))

	// The configured storedir is used without --dir. A relative one resolves against the working directory given to Run.
	te.env["LINEDIFF_STORE_DIR"] = "db"
	r = te.run("store", "ls")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, key+"\n", r.stdout)

	r = te.run("store", "apply", "new.txt", key)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "script mismatch")

	r = te.run("store", "apply", "old.txt", "ffffffff")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "script not found")
}

func TestConfigCommand(t *testing.T) {
	te := newTestEnv(t)
	te.write(".linediff.toml", "format = \"side\"\n")
	te.env["LINEDIFF_CONTEXT"] = "5"

	r := te.run("config")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "context = 5")
	assert.Contains(t, r.stdout, `format = "side"`)
	assert.Contains(t, r.stdout, "#   context: env LINEDIFF_CONTEXT")
	assert.Contains(t, r.stdout, "#   format: file "+filepath.Join(te.dir, ".linediff.toml"))
	assert.Contains(t, r.stdout, "#   color: default")
}

func TestVersion(t *testing.T) {
	te := newTestEnv(t)
	r := te.run("version")
	require.Equal(t, 0, r.code)
	assert.Equal(t, "linediff "+Version+" (script format v1.0.0)\n", r.stdout)

	r = te.run("version", "extra")
	assert.Equal(t, 2, r.code)
}

func TestLogging(t *testing.T) {
	te := newTestEnv(t)
	logPath := filepath.Join(t.TempDir(), "linediff.log")
	t.Setenv("LINEDIFF_LOG_FILE", logPath)
	te.write("old.txt", oldABC)

	te.run("stat", "old.txt", "old.txt")
	te.run("stat", "old.txt", "missing.txt")

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "stat old.txt old.txt\n")
	assert.Contains(t, string(b), "stat failed: ")
}

func mustScript(t *testing.T, oldText, newText string) string {
	t.Helper()
	var out bytes.Buffer
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old"), []byte(oldText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new"), []byte(newText), 0o644))
	code, err := Run([]string{"linediff", "diff", "--format=script", "old", "new"}, &RunOptions{
		Out:       &out,
		Err:       &bytes.Buffer{},
		Dir:       dir,
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	return out.String()
}

func mustParse(t *testing.T, text string) *applypatch.File {
	t.Helper()
	f, err := applypatch.ParseScript(text)
	require.NoError(t, err)
	return f
}
