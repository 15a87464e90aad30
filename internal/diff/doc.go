// Package diff computes minimal line-based edit scripts between an "old" and a "new" sequence of lines, and applies them back.
//
// Representation: A Script is an ordered slice of Edit records. Each Edit has an Op:
//   - OpEqual: the line is present, unchanged, in both versions (Line is drawn from old).
//   - OpDelete: the line is present in old and absent from new (Line is drawn from old).
//   - OpInsert: the line is present in new and absent from old (Line is drawn from new).
//
// Lines are opaque strings compared by exact equality. No trimming, case folding, or EOL normalization is done.
//
// Invariants for s := Lines(old, new):
//   - s.OldLines() == old (the OpEqual and OpDelete records, in order)
//   - s.NewLines() == new (the OpEqual and OpInsert records, in order)
//   - Apply(old, s) == new
//   - s.EditDistance() is the minimum number of insertions plus deletions that transform old into new.
//
// Tie-breaking: when several minimal scripts exist, Lines emits deletions before insertions at the same position. Output is deterministic for identical inputs.
//
// Getting a script: Use Lines for pre-split lines, or Text to split on '\n' first:
//
//	s := diff.Text(oldText, newText)
//	fmt.Println(s.RenderUnifiedDiff(false, "old.txt", "new.txt", 3))
//
// Applying a script: Apply (or ApplyText) replays s against old. If the script was computed against a different old sequence, Apply returns a *MismatchError
// (errors.Is(err, ErrScriptMismatch) is true). Mismatches are never silently repaired.
//
// Rendering: Script.RenderUnifiedDiff emits a unified diff; Script.RenderPretty emits a colorized view with intra-line highlights; Script.RenderSideBySide emits
// two columns sized for a terminal.
//
// Concurrency: All functions are pure. Independent calls may run in parallel as long as callers do not mutate their input slices during a call.
//
// Newlines: SplitLines keeps the trailing '\n' on each line, so JoinLines(SplitLines(s)) == s, including a missing final newline.
package diff
