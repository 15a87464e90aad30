package diff

import (
	"fmt"
	"strings"

	"github.com/codalotl/linediff/internal/q/uni"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ANSI escape sequences shared by the renderers.
const (
	reset     = "\x1b[0m"
	red       = "\x1b[31m"
	green     = "\x1b[32m"
	magenta   = "\x1b[35m"
	cyanBold  = "\x1b[1;36m"
	blackFG   = "\x1b[30m"
	pinkLine  = "\x1b[48;5;224m" // light pink for deleted lines
	pinkSpan  = "\x1b[48;5;217m" // slightly darker pink for deleted spans
	greenLine = "\x1b[48;5;194m" // light green for added lines
	greenSpan = "\x1b[48;5;114m" // slightly darker green for added spans
)

const noNewlineMarker = `\ No newline at end of file`

// defaultSideBySideWidth is used by RenderSideBySide when width <= 0.
const defaultSideBySideWidth = 120

// RenderUnifiedDiff returns a unified diff of s. If color, the diff will include ANSI color markers.
//
// The output starts with "--- fromFilename" and "+++ toFilename" header lines, followed by one "@@ -a,b +c,d @@" section per hunk (see Hunks). A line
// without a trailing newline is followed by a "\ No newline at end of file" marker. If s has no changes, the result is the empty string.
func (s Script) RenderUnifiedDiff(color bool, fromFilename string, toFilename string, contextSize int) string {
	hunks := s.Hunks(contextSize)
	if len(hunks) == 0 {
		return ""
	}

	colorize := func(str, code string) string {
		if !color {
			return str
		}
		return code + str + reset
	}

	var out []string
	out = append(out, colorize("--- "+fromFilename, cyanBold))
	out = append(out, colorize("+++ "+toFilename, cyanBold))

	for _, h := range hunks {
		header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		out = append(out, colorize(header, magenta))
		for _, e := range h.Edits {
			core, hadEOL := trimEOL(e.Line, defaultEOL)
			line := e.Op.Prefix() + core
			switch e.Op {
			case OpDelete:
				out = append(out, colorize(line, red))
			case OpInsert:
				out = append(out, colorize(line, green))
			default:
				out = append(out, line)
			}
			if !hadEOL {
				out = append(out, noNewlineMarker)
			}
		}
	}

	return strings.Join(out, defaultEOL) + defaultEOL
}

// RenderPretty returns a human-oriented, colorized rendering of s without unified-diff hunk headers. Each line is prefixed like a unified diff: " " for context,
// "-" for deletions, and "+" for insertions. When a run of deleted lines is directly followed by a run of inserted lines, the i-th deleted line is paired
// with the i-th inserted line and the characters that differ between them are highlighted.
//
// If fromFilename and toFilename are both empty, no header is printed. Otherwise a single cyan header line is emitted in one of these forms:
//   - "add <to>:" when only toFilename is set
//   - "delete <from>:" when only fromFilename is set
//   - "<name>:" when both are equal
//   - "<from> -> <to>:" otherwise
//
// contextSize controls how many unchanged lines are shown around each group of changes, with the same merging rule as Hunks.
//
// Lines are rendered without their trailing newline, and the returned string uses "\n" as the line separator. If there are no changes and no header is requested,
// the result is the empty string.
//
// The output contains ANSI 256-color escape sequences and is intended for terminals. For a machine-readable diff, use RenderUnifiedDiff.
func (s Script) RenderPretty(fromFilename string, toFilename string, contextSize int) string {
	var out []string

	if !(fromFilename == "" && toFilename == "") {
		header := ""
		switch {
		case fromFilename == "" && toFilename != "":
			header = fmt.Sprintf("add %s:", toFilename)
		case fromFilename != "" && toFilename == "":
			header = fmt.Sprintf("delete %s:", fromFilename)
		case fromFilename == toFilename:
			header = fmt.Sprintf("%s:", fromFilename)
		default:
			header = fmt.Sprintf("%s -> %s:", fromFilename, toFilename)
		}
		out = append(out, cyanBold+header+reset)
	}

	for _, h := range s.Hunks(contextSize) {
		for _, blk := range blocks(h.Edits) {
			if blk.equal != nil {
				for _, line := range blk.equal {
					out = append(out, blackFG+" "+trimLine(line)+reset)
				}
				continue
			}
			oldSpans := make([][]span, len(blk.deleted))
			newSpans := make([][]span, len(blk.inserted))
			for i := 0; i < len(blk.deleted) && i < len(blk.inserted); i++ {
				oldSpans[i], newSpans[i] = lineSpans(trimLine(blk.deleted[i]), trimLine(blk.inserted[i]))
			}
			for i, line := range blk.deleted {
				out = append(out, blackFG+pinkLine+"-"+highlight(trimLine(line), oldSpans[i], pinkLine, pinkSpan)+reset)
			}
			for i, line := range blk.inserted {
				out = append(out, blackFG+greenLine+"+"+highlight(trimLine(line), newSpans[i], greenLine, greenSpan)+reset)
			}
		}
	}

	return strings.Join(out, defaultEOL)
}

// RenderSideBySide renders s in two columns: old lines on the left and new lines on the right, each prefixed by its line number. Paired delete/insert runs
// share rows. Hunks are separated by their "@@" header line. Rows are at most width columns wide (width <= 0 means 120, and widths below 5 are raised to 5,
// which fits one column per side); cells that do not fit are truncated on grapheme boundaries. If color, deleted cells are red and inserted cells are green.
//
// If s has no changes, the result is the empty string.
func (s Script) RenderSideBySide(width int, color bool, contextSize int) string {
	hunks := s.Hunks(contextSize)
	if len(hunks) == 0 {
		return ""
	}
	const sep = " | "
	switch {
	case width <= 0:
		width = defaultSideBySideWidth
	case width < len(sep)+2:
		width = len(sep) + 2
	}
	colWidth := (width - len(sep)) / 2

	colorize := func(str, code string) string {
		if !color || code == "" {
			return str
		}
		return code + str + reset
	}

	numWidth := len(fmt.Sprint(max(len(s.OldLines()), len(s.NewLines()))))
	cell := func(num int, prefix, line string) string {
		if num == 0 {
			return strings.Repeat(" ", colWidth)
		}
		text := fmt.Sprintf("%*d %s%s", numWidth, num, prefix, expandTabs(trimLine(line)))
		return uni.Fit(text, colWidth, "~", nil)
	}

	var out []string
	for _, h := range hunks {
		header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		out = append(out, colorize(uni.Truncate(header, width, "", nil), magenta))

		oldNum, newNum := h.OldStart, h.NewStart
		if h.OldCount == 0 {
			oldNum++
		}
		if h.NewCount == 0 {
			newNum++
		}

		for _, r := range pairRows(h.Edits) {
			var left, right, leftColor, rightColor string
			switch r.op {
			case OpEqual:
				left = cell(oldNum, " ", r.old)
				right = cell(newNum, " ", r.new)
				oldNum++
				newNum++
			default:
				left, right = cell(0, "", ""), cell(0, "", "")
				if r.hasOld {
					left, leftColor = cell(oldNum, "-", r.old), red
					oldNum++
				}
				if r.hasNew {
					right, rightColor = cell(newNum, "+", r.new), green
					newNum++
				}
			}
			out = append(out, colorize(left, leftColor)+sep+colorize(right, rightColor))
		}
	}

	return strings.Join(out, defaultEOL) + defaultEOL
}

// block is either a run of OpEqual lines (equal != nil) or a run of OpDelete lines followed by a run of OpInsert lines.
type block struct {
	equal    []string
	deleted  []string
	inserted []string
}

// blocks splits edits into equal runs and change blocks.
func blocks(edits Script) []block {
	var out []block
	i := 0
	for i < len(edits) {
		if edits[i].Op == OpEqual {
			var b block
			for ; i < len(edits) && edits[i].Op == OpEqual; i++ {
				b.equal = append(b.equal, edits[i].Line)
			}
			out = append(out, b)
			continue
		}
		var b block
		for ; i < len(edits) && edits[i].Op == OpDelete; i++ {
			b.deleted = append(b.deleted, edits[i].Line)
		}
		for ; i < len(edits) && edits[i].Op == OpInsert; i++ {
			b.inserted = append(b.inserted, edits[i].Line)
		}
		if b.deleted == nil && b.inserted == nil {
			// Unknown op; skip it so the loop advances.
			i++
			continue
		}
		out = append(out, b)
	}
	return out
}

// row is one line of a two-column rendering.
type row struct {
	op     Op // OpEqual, or OpDelete for a change row
	old    string
	new    string
	hasOld bool
	hasNew bool
}

// pairRows lays edits out as rows, pairing the i-th deleted line of a change block with its i-th inserted line.
func pairRows(edits Script) []row {
	var rows []row
	for _, blk := range blocks(edits) {
		for _, line := range blk.equal {
			rows = append(rows, row{op: OpEqual, old: line, new: line, hasOld: true, hasNew: true})
		}
		n := max(len(blk.deleted), len(blk.inserted))
		for i := 0; i < n; i++ {
			r := row{op: OpDelete}
			if i < len(blk.deleted) {
				r.old, r.hasOld = blk.deleted[i], true
			}
			if i < len(blk.inserted) {
				r.new, r.hasNew = blk.inserted[i], true
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// span is a piece of a changed line. changed spans differ from the paired line.
type span struct {
	text    string
	changed bool
}

// lineSpans computes character-level spans for a deleted line and the inserted line it is paired with. If the two lines share no non-whitespace text,
// both results are nil, meaning the lines are rendered without span emphasis.
func lineSpans(oldText, newText string) (oldSpans, newSpans []span) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	shared := false
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if strings.TrimSpace(d.Text) != "" {
				shared = true
			}
			oldSpans = append(oldSpans, span{text: d.Text})
			newSpans = append(newSpans, span{text: d.Text})
		case diffmatchpatch.DiffDelete:
			oldSpans = append(oldSpans, span{text: d.Text, changed: true})
		case diffmatchpatch.DiffInsert:
			newSpans = append(newSpans, span{text: d.Text, changed: true})
		}
	}
	if !shared {
		return nil, nil
	}
	return oldSpans, newSpans
}

// highlight renders text with changed spans emphasized by spanBg, restoring baseBg after each one. If spans is nil, text is returned as is.
func highlight(text string, spans []span, baseBg, spanBg string) string {
	if spans == nil {
		return text
	}
	var b strings.Builder
	for _, sp := range spans {
		if !sp.changed {
			b.WriteString(sp.text)
			continue
		}
		b.WriteString(reset)
		b.WriteString(blackFG)
		b.WriteString(spanBg)
		b.WriteString(sp.text)
		b.WriteString(reset)
		b.WriteString(blackFG)
		b.WriteString(baseBg)
	}
	return b.String()
}

func trimLine(line string) string {
	core, _ := trimEOL(line, defaultEOL)
	return strings.TrimSuffix(core, "\r")
}

// expandTabs replaces tabs with four spaces so column widths can be measured.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
