package diff

import "strings"

// defaultEOL is the EOL ('\n').
//
// This constant exists because the design may change to allow configurable EOLs (maybe Windows needs "\r\n"), and this provides a nice hook to find callsites.
const defaultEOL = "\n"

// Text diffs oldText to newText line by line. It is Lines(SplitLines(oldText), SplitLines(newText)); each Edit's Line keeps its trailing '\n'.
func Text(oldText, newText string) Script {
	return Lines(SplitLines(oldText), SplitLines(newText))
}

// ApplyText applies s to oldText and returns the joined new text. See Apply for the mismatch contract.
func ApplyText(oldText string, s Script) (string, error) {
	lines, err := Apply(SplitLines(oldText), s)
	if err != nil {
		return "", err
	}
	return JoinLines(lines), nil
}

// SplitLines splits text after every '\n', keeping the '\n' on each line. The last line has no '\n' if text did not end with one. An empty text has no lines.
func SplitLines(text string) []string {
	return splitPreserveEOL(text, defaultEOL)
}

// JoinLines concatenates lines. JoinLines(SplitLines(s)) == s.
func JoinLines(lines []string) string {
	return strings.Join(lines, "")
}

// splitPreserveEOL splits text by eol and preserves the eol on each line, except possibly the last.
func splitPreserveEOL(text, eol string) []string {
	if text == "" {
		return []string{}
	}
	if eol == "" {
		eol = defaultEOL
	}
	lines := make([]string, 0, strings.Count(text, eol)+1)
	for {
		idx := strings.Index(text, eol)
		if idx == -1 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:idx+len(eol)])
		text = text[idx+len(eol):]
		if text == "" {
			break
		}
	}
	return lines
}

// trimEOL removes a trailing eol from a line if present.
func trimEOL(line, eol string) (string, bool) {
	if eol != "" && strings.HasSuffix(line, eol) {
		return line[:len(line)-len(eol)], true
	}
	return line, false
}
