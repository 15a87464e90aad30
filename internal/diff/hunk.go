package diff

// Hunk is a contiguous group of changes from a Script plus up to contextSize unchanged lines on each side.
//
// Starts are 1-based line numbers like in a unified diff header. When a side has a zero count, its start is the line number just before the hunk (0 at the
// top of the file).
type Hunk struct {
	OldStart int    // First old line covered.
	OldCount int    // Number of old lines covered (OpEqual + OpDelete).
	NewStart int    // First new line covered.
	NewCount int    // Number of new lines covered (OpEqual + OpInsert).
	Edits    Script // Records covered by this hunk, in order.
}

// Hunks groups the changes in s into hunks with contextSize lines of context. Two change groups separated by at most 2*contextSize unchanged lines are
// merged into one hunk. A script without changes has no hunks. A negative contextSize is treated as 0.
func (s Script) Hunks(contextSize int) []Hunk {
	if contextSize < 0 {
		contextSize = 0
	}

	// pos[i] is the number of (old, new) lines consumed before s[i].
	pos := make([][2]int, len(s)+1)
	oldPos, newPos := 0, 0
	for i, e := range s {
		pos[i] = [2]int{oldPos, newPos}
		switch e.Op {
		case OpEqual:
			oldPos++
			newPos++
		case OpDelete:
			oldPos++
		case OpInsert:
			newPos++
		}
	}
	pos[len(s)] = [2]int{oldPos, newPos}

	var hunks []Hunk
	lastEnd := 0
	i := 0
	for i < len(s) {
		if s[i].Op == OpEqual {
			i++
			continue
		}

		start := i - contextSize
		if start < lastEnd {
			start = lastEnd
		}

		// end is one past the last change of this group.
		end := i
		for j := i; j < len(s); {
			if s[j].Op != OpEqual {
				j++
				end = j
				continue
			}
			k := j
			for k < len(s) && s[k].Op == OpEqual {
				k++
			}
			if k < len(s) && k-j <= 2*contextSize {
				j = k
				continue
			}
			break
		}

		stop := end + contextSize
		if stop > len(s) {
			stop = len(s)
		}

		h := Hunk{
			OldCount: pos[stop][0] - pos[start][0],
			NewCount: pos[stop][1] - pos[start][1],
			Edits:    s[start:stop].Clone(),
		}
		h.OldStart = pos[start][0] + 1
		if h.OldCount == 0 {
			h.OldStart = pos[start][0]
		}
		h.NewStart = pos[start][1] + 1
		if h.NewCount == 0 {
			h.NewStart = pos[start][1]
		}
		hunks = append(hunks, h)

		lastEnd = stop
		i = stop
	}
	return hunks
}
