package diff

import (
	"errors"
	"fmt"
)

// ErrScriptMismatch indicates that a script's implied old content disagrees with the old lines it was applied to. Use errors.Is or IsScriptMismatch.
var ErrScriptMismatch = errors.New("script mismatch")

// IsScriptMismatch reports whether err (as returned from Apply, ApplyText, or a caller wrapping them) indicates a script/old-content mismatch.
func IsScriptMismatch(err error) bool {
	return errors.Is(err, ErrScriptMismatch)
}

// MismatchReason says what part of a script disagreed with the old lines.
type MismatchReason int

const (
	// MismatchLine: an OpEqual or OpDelete record's line differs from the old line at the cursor.
	MismatchLine MismatchReason = iota + 1

	// MismatchOverrun: an OpEqual or OpDelete record was reached after every old line was consumed.
	MismatchOverrun

	// MismatchUnconsumed: the script ended before consuming every old line.
	MismatchUnconsumed

	// MismatchUnknownOp: a record had an Op other than OpEqual, OpDelete, or OpInsert.
	MismatchUnknownOp

	// MismatchBase: a serialized script's recorded base does not match the supplied old content. Returned by callers layered on top of Apply (e.g. when
	// a base hash is checked before any record is consulted).
	MismatchBase
)

func (r MismatchReason) String() string {
	switch r {
	case MismatchLine:
		return "line differs"
	case MismatchOverrun:
		return "script consumes more lines than old has"
	case MismatchUnconsumed:
		return "script consumes fewer lines than old has"
	case MismatchUnknownOp:
		return "unknown op"
	case MismatchBase:
		return "base content differs"
	default:
		return "unknown reason"
	}
}

// MismatchError describes where Apply detected that a script does not fit the old lines.
type MismatchError struct {
	Reason   MismatchReason
	Index    int    // Index of the offending record; len(script) for MismatchUnconsumed.
	OldIndex int    // 0-based cursor into old when the mismatch was detected.
	Op       Op     // Op of the offending record (zero for MismatchUnconsumed).
	Want     string // The record's line (what the script expected in old).
	Got      string // The old line at the cursor, if any.
}

func (e *MismatchError) Error() string {
	switch e.Reason {
	case MismatchLine:
		return fmt.Sprintf("script mismatch at record %d (%s): old line %d is %q, script expects %q", e.Index, e.Op, e.OldIndex+1, e.Got, e.Want)
	case MismatchOverrun:
		return fmt.Sprintf("script mismatch at record %d (%s): old has only %d lines", e.Index, e.Op, e.OldIndex)
	case MismatchUnconsumed:
		return fmt.Sprintf("script mismatch: script ends after old line %d, but old has more lines", e.OldIndex)
	case MismatchUnknownOp:
		return fmt.Sprintf("script mismatch at record %d: unknown op %d", e.Index, e.Op)
	default:
		return "script mismatch: " + e.Reason.String()
	}
}

// Is makes errors.Is(err, ErrScriptMismatch) true for any *MismatchError.
func (e *MismatchError) Is(target error) bool {
	return target == ErrScriptMismatch
}

// Apply replays s against old and returns the new lines.
//
// OpEqual records must match the old line at the cursor and are copied to the output; OpDelete records must match and are skipped; OpInsert records are
// copied without moving the cursor. After the last record the cursor must be at len(old). Any violation returns a *MismatchError and a nil slice.
//
// If s came from Lines(old, new), Apply returns a slice equal to new. old and s are not modified; the result never aliases old.
func Apply(old []string, s Script) ([]string, error) {
	out := make([]string, 0, len(s))
	cursor := 0
	for i, e := range s {
		switch e.Op {
		case OpEqual, OpDelete:
			if cursor >= len(old) {
				return nil, &MismatchError{Reason: MismatchOverrun, Index: i, OldIndex: cursor, Op: e.Op, Want: e.Line}
			}
			if old[cursor] != e.Line {
				return nil, &MismatchError{Reason: MismatchLine, Index: i, OldIndex: cursor, Op: e.Op, Want: e.Line, Got: old[cursor]}
			}
			if e.Op == OpEqual {
				out = append(out, old[cursor])
			}
			cursor++
		case OpInsert:
			out = append(out, e.Line)
		default:
			return nil, &MismatchError{Reason: MismatchUnknownOp, Index: i, OldIndex: cursor, Op: e.Op, Want: e.Line}
		}
	}
	if cursor != len(old) {
		got := old[cursor]
		return nil, &MismatchError{Reason: MismatchUnconsumed, Index: len(s), OldIndex: cursor, Got: got}
	}
	return out, nil
}
