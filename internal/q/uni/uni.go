package uni

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// Options control width calculation in TextWidth, Truncate, and Pad.
//
// Currently only relevant for East Asian code points and their locale.
type Options struct {
	EastAsianWidth   bool // if true, treats certain East Asian code points as 2 wide (e.g., Chinese, Japanese, Korean). Use if the locale is one of CJK.
	TreatEmojiAsWide bool // Only considered if EastAsianWidth. If true, treats emoji as wide (2 columns).
}

// TextWidth returns the text width of str for monospace fonts in terminals. If opts is nil, locale is assumed to be non-East Asian.
func TextWidth(str string, opts *Options) int {
	return conditionFromOptions(opts).StringWidth(str)
}

// Truncate returns the longest prefix of str, cut on grapheme cluster boundaries, whose width is at most width. If str had to be cut and tail is non-empty,
// tail replaces the end of the prefix so that the result still fits in width.
func Truncate(str string, width int, tail string, opts *Options) string {
	if width <= 0 {
		return ""
	}
	cond := conditionFromOptions(opts)
	if cond.StringWidth(str) <= width {
		return str
	}

	tailWidth := cond.StringWidth(tail)
	if tailWidth > width {
		tail, tailWidth = "", 0
	}
	budget := width - tailWidth

	var b strings.Builder
	used := 0
	iter := graphemes.FromString(str)
	for iter.Next() {
		cluster := iter.Value()
		w := cond.StringWidth(cluster)
		if used+w > budget {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	b.WriteString(tail)
	return b.String()
}

// Pad right-pads str with spaces up to width. If str is already at least width wide, it is returned unchanged.
func Pad(str string, width int, opts *Options) string {
	w := TextWidth(str, opts)
	if w >= width {
		return str
	}
	return str + strings.Repeat(" ", width-w)
}

// Fit truncates str to width (with tail) and pads it so the result is exactly width wide, unless a single wide cluster makes that impossible.
func Fit(str string, width int, tail string, opts *Options) string {
	return Pad(Truncate(str, width, tail, opts), width, opts)
}

func conditionFromOptions(opts *Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true

	if opts == nil {
		return cond
	}

	cond.EastAsianWidth = opts.EastAsianWidth
	if opts.EastAsianWidth && opts.TreatEmojiAsWide {
		cond.StrictEmojiNeutral = false
	}

	return cond
}
