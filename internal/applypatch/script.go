package applypatch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/codalotl/linediff/internal/diff"
	"golang.org/x/mod/semver"
)

// ScriptGrammar defines the Lark-style grammar for the "*** Begin Script" format produced by FormatScript and parsed by ParseScript.
const ScriptGrammar = `start: begin_script header* record* end_script
begin_script: "*** Begin Script " version LF
end_script: "*** End Script" LF?

header: old_hash | new_hash
old_hash: "*** Old-Hash: " hash LF
new_hash: "*** New-Hash: " hash LF
hash: "sha256:" /[0-9a-f]{64}/

record: ("+" | "-" | " ") /(.*)/ LF no_eol?
no_eol: "\ No newline at end of line" LF

version: /v[0-9]+\.[0-9]+\.[0-9]+/
%import common.LF`

// FormatVersion is the version written by FormatScript. ParseScript accepts any v1.x.y version.
const FormatVersion = "v1.0.0"

const (
	beginPrefix   = "*** Begin Script "
	endMarker     = "*** End Script"
	oldHashPrefix = "*** Old-Hash: "
	newHashPrefix = "*** New-Hash: "
	noEOLMarker   = `\ No newline at end of line`
	hashPrefix    = "sha256:"
)

var errInvalidScript = errors.New("invalid script")

// IsInvalidScript reports whether err (as returned from ParseScript, ApplyScript, or ApplyToFile) indicates that the script itself was invalid: malformed input,
// an unsupported version, an unsafe path, or new content whose hash does not match the recorded New-Hash.
//
// It returns false for script mismatches (see diff.IsScriptMismatch) and for filesystem I/O failures.
func IsInvalidScript(err error) bool {
	return errors.Is(err, errInvalidScript)
}

func invalidScriptError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(errInvalidScript, err)
}

// File is a parsed serialized script.
type File struct {
	Version string      // Format version from the Begin line, e.g. "v1.0.0".
	OldHash string      // "sha256:<hex>" of the old text, or "" if absent.
	NewHash string      // "sha256:<hex>" of the new text, or "" if absent.
	Script  diff.Script // Records in order.
}

// FormatOptions controls FormatScript.
type FormatOptions struct {
	// OmitHashes skips the Old-Hash and New-Hash headers. Without them, ApplyScript can still detect a mismatch through the records, but it cannot reject a
	// wrong base before looking at them.
	OmitHashes bool
}

// HashText returns the "sha256:<hex>" digest of text used by the Old-Hash and New-Hash headers.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hashPrefix + hex.EncodeToString(sum[:])
}

// FormatScript serializes s. The hashes (unless opts.OmitHashes) are computed from the old and new texts that s implies, so s should operate on lines
// that keep their trailing '\n' (see diff.SplitLines).
//
// A line without a trailing '\n' is followed by a "\ No newline at end of line" marker. Such a line must be the last one on its side (old or new). FormatScript
// returns an error if a record has an unknown Op, a line with an interior '\n', or a line that follows a line without '\n' on the same side, since ParseScript
// could not read it back.
func FormatScript(s diff.Script, opts FormatOptions) (string, error) {
	var b strings.Builder
	b.WriteString(beginPrefix + FormatVersion + "\n")
	if !opts.OmitHashes {
		b.WriteString(oldHashPrefix + HashText(diff.JoinLines(s.OldLines())) + "\n")
		b.WriteString(newHashPrefix + HashText(diff.JoinLines(s.NewLines())) + "\n")
	}
	oldClosed, newClosed := false, false
	for i, e := range s {
		if !e.Op.Valid() {
			return "", fmt.Errorf("record %d: unknown op %d", i, e.Op)
		}
		core, hadEOL := strings.CutSuffix(e.Line, "\n")
		if strings.Contains(core, "\n") {
			return "", fmt.Errorf("record %d: line contains an interior newline", i)
		}
		usesOld := e.Op != diff.OpInsert
		usesNew := e.Op != diff.OpDelete
		if (usesOld && oldClosed) || (usesNew && newClosed) {
			return "", fmt.Errorf("record %d: line follows a line without a trailing newline", i)
		}
		if !hadEOL {
			oldClosed = oldClosed || usesOld
			newClosed = newClosed || usesNew
		}
		b.WriteString(e.Op.Prefix())
		b.WriteString(core)
		b.WriteString("\n")
		if !hadEOL {
			b.WriteString(noEOLMarker + "\n")
		}
	}
	b.WriteString(endMarker + "\n")
	return b.String(), nil
}

// ApplyScript applies f to oldText and returns the new text.
//
// If f has an Old-Hash that does not match oldText, ApplyScript returns a *diff.MismatchError with Reason diff.MismatchBase before consulting any record. Record
// mismatches are reported as by diff.Apply. If f has a New-Hash that does not match the result, the script is invalid (see IsInvalidScript).
func ApplyScript(oldText string, f *File) (string, error) {
	if f == nil {
		return "", invalidScriptError(errors.New("nil script"))
	}
	if f.OldHash != "" {
		if got := HashText(oldText); got != f.OldHash {
			return "", &diff.MismatchError{Reason: diff.MismatchBase, Want: f.OldHash, Got: got}
		}
	}
	newText, err := diff.ApplyText(oldText, f.Script)
	if err != nil {
		return "", err
	}
	if f.NewHash != "" {
		if got := HashText(newText); got != f.NewHash {
			return "", invalidScriptError(fmt.Errorf("new content hash %s does not match recorded %s", got, f.NewHash))
		}
	}
	return newText, nil
}

// ---------- Parsing ----------

type parser struct {
	lines []string
	idx   int
}

func newParser(input string) *parser {
	// Only '\n' separates lines: a '\r' before it belongs to the record.
	return &parser{lines: strings.Split(input, "\n")}
}

func (p *parser) eof() bool { return p.idx >= len(p.lines) }

func (p *parser) peek() (string, bool) {
	if p.eof() {
		return "", false
	}
	return p.lines[p.idx], true
}

func (p *parser) next() (string, bool) {
	line, ok := p.peek()
	if !ok {
		return "", false
	}
	p.idx++
	return line, true
}

func (p *parser) lineNumber() int { return p.idx + 1 }

// ParseScript parses text in the format defined by ScriptGrammar. All errors satisfy IsInvalidScript.
func ParseScript(text string) (*File, error) {
	f, err := parseScript(text)
	if err != nil {
		return nil, invalidScriptError(err)
	}
	return f, nil
}

func parseScript(text string) (*File, error) {
	p := newParser(text)

	first, ok := p.next()
	if !ok || !strings.HasPrefix(first, beginPrefix) {
		return nil, fmt.Errorf("script must start with %q", strings.TrimSpace(beginPrefix))
	}
	version := strings.TrimSpace(strings.TrimPrefix(first, beginPrefix))
	if !semver.IsValid(version) {
		return nil, fmt.Errorf("line 1: invalid version %q", version)
	}
	if semver.Major(version) != semver.Major(FormatVersion) {
		return nil, fmt.Errorf("line 1: unsupported version %s (want %s.x.y)", version, semver.Major(FormatVersion))
	}
	f := &File{Version: version, Script: diff.Script{}}

	// Headers.
	for {
		line, ok := p.peek()
		if !ok {
			break
		}
		var dst *string
		var prefix string
		switch {
		case strings.HasPrefix(line, oldHashPrefix):
			dst, prefix = &f.OldHash, oldHashPrefix
		case strings.HasPrefix(line, newHashPrefix):
			dst, prefix = &f.NewHash, newHashPrefix
		}
		if dst == nil {
			break
		}
		if *dst != "" {
			return nil, fmt.Errorf("line %d: duplicate %q header", p.lineNumber(), strings.TrimSpace(prefix))
		}
		h := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		if err := validateHash(h); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.lineNumber(), err)
		}
		*dst = h
		p.next()
	}

	// Records. oldClosed/newClosed are set once a side has a line without '\n'; nothing may follow it on that side.
	oldClosed, newClosed := false, false
	for {
		lineNo := p.lineNumber()
		line, ok := p.next()
		if !ok || (line == "" && p.eof()) {
			return nil, fmt.Errorf("unexpected end of input; expected record or %q", endMarker)
		}
		if line == endMarker {
			break
		}
		if line == noEOLMarker {
			return nil, fmt.Errorf("line %d: %q must follow a record", lineNo, noEOLMarker)
		}
		if line == "" {
			return nil, fmt.Errorf("line %d: empty line; records start with ' ', '-', or '+'", lineNo)
		}

		var op diff.Op
		switch line[0] {
		case ' ':
			op = diff.OpEqual
		case '-':
			op = diff.OpDelete
		case '+':
			op = diff.OpInsert
		default:
			return nil, fmt.Errorf("line %d: unexpected line %q; records start with ' ', '-', or '+'", lineNo, line)
		}

		usesOld := op != diff.OpInsert
		usesNew := op != diff.OpDelete
		if (usesOld && oldClosed) || (usesNew && newClosed) {
			return nil, fmt.Errorf("line %d: record follows a line without a trailing newline", lineNo)
		}

		content := line[1:] + "\n"
		if next, ok := p.peek(); ok && next == noEOLMarker {
			p.next()
			content = line[1:]
			oldClosed = oldClosed || usesOld
			newClosed = newClosed || usesNew
		}
		f.Script = append(f.Script, diff.Edit{Op: op, Line: content})
	}

	for !p.eof() {
		if strings.TrimSpace(p.lines[p.idx]) != "" {
			return nil, fmt.Errorf("unexpected trailing content at line %d", p.lineNumber())
		}
		p.idx++
	}
	return f, nil
}

func validateHash(h string) error {
	hexPart, ok := strings.CutPrefix(h, hashPrefix)
	if !ok {
		return fmt.Errorf("hash %q must start with %q", h, hashPrefix)
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil || len(raw) != sha256.Size || hexPart != strings.ToLower(hexPart) {
		return fmt.Errorf("hash %q is not a lowercase sha256 hex digest", h)
	}
	return nil
}
