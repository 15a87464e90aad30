package applypatch

import (
	"strings"
	"testing"

	"github.com/codalotl/linediff/internal/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trimLeadingNewline(s string) string {
	return strings.TrimLeft(s, "\n")
}

func TestFormatScript_NoHashes(t *testing.T) {
	s := diff.Text("a\nb\nc\n", "a\nx\nc\n")

	got, err := FormatScript(s, FormatOptions{OmitHashes: true})
	require.NoError(t, err)
	assert.Equal(t, trimLeadingNewline(`
*** Begin Script v1.0.0
 a
-b
+x
 c
*** End Script
`), got)
}

func TestFormatScript_Hashes(t *testing.T) {
	s := diff.Text("old\n", "new\n")

	got, err := FormatScript(s, FormatOptions{})
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	assert.Equal(t, "*** Old-Hash: "+HashText("old\n"), lines[1])
	assert.Equal(t, "*** New-Hash: "+HashText("new\n"), lines[2])
}

func TestFormatScript_NoNewlineMarker(t *testing.T) {
	s := diff.Text("a\nb", "a\nb\n")

	got, err := FormatScript(s, FormatOptions{OmitHashes: true})
	require.NoError(t, err)
	assert.Equal(t, trimLeadingNewline(`
*** Begin Script v1.0.0
 a
-b
\ No newline at end of line
+b
*** End Script
`), got)
}

func TestFormatScript_Errors(t *testing.T) {
	_, err := FormatScript(diff.Script{{Op: diff.OpInsert, Line: "two\nlines\n"}}, FormatOptions{})
	assert.ErrorContains(t, err, "interior newline")

	_, err = FormatScript(diff.Script{{Op: diff.Op(9), Line: "x\n"}}, FormatOptions{})
	assert.ErrorContains(t, err, "unknown op")
}

func TestFormatScript_LineAfterMissingNewline(t *testing.T) {
	tests := []struct {
		name    string
		old     []string
		new     []string
		wantErr bool
	}{
		{name: "equal then replace", old: []string{"a", "b"}, new: []string{"a", "c"}, wantErr: true},
		{name: "delete then equal", old: []string{"x", "y\n"}, new: []string{"y\n"}, wantErr: true},
		{name: "insert after old-only line", old: []string{"x"}, new: []string{"y\n"}},
		{name: "last lines only", old: []string{"a\n", "b"}, new: []string{"a\n", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := diff.Lines(tt.old, tt.new)
			text, err := FormatScript(s, FormatOptions{})
			if tt.wantErr {
				assert.ErrorContains(t, err, "without a trailing newline")
				return
			}
			require.NoError(t, err)

			f, err := ParseScript(text)
			require.NoError(t, err, "script:\n%s", text)
			assert.Equal(t, s, f.Script)
		})
	}
}

func TestHashText(t *testing.T) {
	// sha256 of the empty string.
	assert.Equal(t, "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashText(""))
}

func TestParseScript_RoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"a\nb\nc\n", "a\nx\nc\n"},
		{"", "new\n"},
		{"gone\n", ""},
		{"no eol", "no eol\n"},
		{"x\r\ny\r\n", "x\r\nz\r\n"},
		{" leading space\n-dash\n+plus\n", "*** End Script\n\\ No newline at end of line\n"},
		{"\n\n", "\n"},
	}
	for _, p := range pairs {
		s := diff.Text(p[0], p[1])
		text, err := FormatScript(s, FormatOptions{})
		require.NoError(t, err)

		f, err := ParseScript(text)
		require.NoError(t, err, "script:\n%s", text)
		assert.Equal(t, FormatVersion, f.Version)
		assert.Equal(t, s, f.Script)
		assert.Equal(t, HashText(p[0]), f.OldHash)
		assert.Equal(t, HashText(p[1]), f.NewHash)

		got, err := ApplyScript(p[0], f)
		require.NoError(t, err)
		assert.Equal(t, p[1], got)
	}
}

func TestParseScript_Versions(t *testing.T) {
	body := " a\n*** End Script\n"

	f, err := ParseScript("*** Begin Script v1.4.2\n" + body)
	require.NoError(t, err)
	assert.Equal(t, "v1.4.2", f.Version)

	_, err = ParseScript("*** Begin Script v2.0.0\n" + body)
	require.Error(t, err)
	assert.True(t, IsInvalidScript(err))
	assert.Contains(t, err.Error(), "unsupported version")

	_, err = ParseScript("*** Begin Script 1.0\n" + body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
}

func TestParseScript_Invalid(t *testing.T) {
	validHash := HashText("x")
	cases := []struct {
		name    string
		script  string
		wantErr string
	}{
		{name: "missing begin", script: " a\n*** End Script\n", wantErr: "must start with"},
		{name: "missing end", script: "*** Begin Script v1.0.0\n a\n", wantErr: "unexpected end of input"},
		{name: "bad control", script: "*** Begin Script v1.0.0\n?a\n*** End Script\n", wantErr: "unexpected line"},
		{name: "empty line", script: "*** Begin Script v1.0.0\n a\n\n b\n*** End Script\n", wantErr: "empty line"},
		{name: "dangling marker", script: "*** Begin Script v1.0.0\n\\ No newline at end of line\n*** End Script\n", wantErr: "must follow a record"},
		{name: "record after final old line", script: "*** Begin Script v1.0.0\n-a\n\\ No newline at end of line\n-b\n*** End Script\n", wantErr: "without a trailing newline"},
		{name: "trailing content", script: "*** Begin Script v1.0.0\n*** End Script\nmore\n", wantErr: "trailing content"},
		{name: "bad hash prefix", script: "*** Begin Script v1.0.0\n*** Old-Hash: md5:abc\n*** End Script\n", wantErr: "must start with"},
		{name: "short hash", script: "*** Begin Script v1.0.0\n*** Old-Hash: sha256:abc\n*** End Script\n", wantErr: "not a lowercase sha256"},
		{name: "duplicate header", script: "*** Begin Script v1.0.0\n*** New-Hash: " + validHash + "\n*** New-Hash: " + validHash + "\n*** End Script\n", wantErr: "duplicate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseScript(tc.script)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, IsInvalidScript(err))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseScript_InsertOnlyAfterFinalOldLine(t *testing.T) {
	// The old side is closed by the marker, but the new side may continue.
	f, err := ParseScript("*** Begin Script v1.0.0\n-a\n\\ No newline at end of line\n+a\n+b\n*** End Script\n")
	require.NoError(t, err)
	assert.Equal(t, diff.Script{{Op: diff.OpDelete, Line: "a"}, {Op: diff.OpInsert, Line: "a\n"}, {Op: diff.OpInsert, Line: "b\n"}}, f.Script)
}

func TestParseScript_EmptyScript(t *testing.T) {
	f, err := ParseScript("*** Begin Script v1.0.0\n*** End Script")
	require.NoError(t, err)
	assert.Empty(t, f.Script)

	got, err := ApplyScript("", f)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestApplyScript_BaseMismatch(t *testing.T) {
	text, err := FormatScript(diff.Text("a\nb\n", "a\nc\n"), FormatOptions{})
	require.NoError(t, err)
	f, err := ParseScript(text)
	require.NoError(t, err)

	_, err = ApplyScript("a\nB\n", f)
	require.Error(t, err)
	assert.True(t, diff.IsScriptMismatch(err))
	assert.False(t, IsInvalidScript(err))

	var me *diff.MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, diff.MismatchBase, me.Reason)
	assert.Equal(t, f.OldHash, me.Want)
	assert.Equal(t, HashText("a\nB\n"), me.Got)
}

func TestApplyScript_RecordMismatchWithoutHashes(t *testing.T) {
	text, err := FormatScript(diff.Text("a\nb\n", "a\nc\n"), FormatOptions{OmitHashes: true})
	require.NoError(t, err)
	f, err := ParseScript(text)
	require.NoError(t, err)

	_, err = ApplyScript("a\nB\n", f)
	var me *diff.MismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, diff.MismatchLine, me.Reason)
}

func TestApplyScript_NewHashMismatch(t *testing.T) {
	f := &File{
		Version: FormatVersion,
		NewHash: HashText("something else\n"),
		Script:  diff.Text("a\n", "b\n"),
	}
	_, err := ApplyScript("a\n", f)
	require.Error(t, err)
	assert.True(t, IsInvalidScript(err))
	assert.False(t, diff.IsScriptMismatch(err))
}

func TestIsInvalidScript(t *testing.T) {
	assert.False(t, IsInvalidScript(nil))
	_, err := ApplyScript("", nil)
	assert.True(t, IsInvalidScript(err))
}
