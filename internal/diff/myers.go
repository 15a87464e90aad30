package diff

// Lines returns the shortest edit script that transforms old into new.
//
// The number of OpDelete plus OpInsert records is the minimum edit distance between old and new under exact line equality. When several minimal scripts
// exist, deletions come before insertions at the same position. Lines never fails: empty, identical, disjoint, and duplicate-heavy inputs are all valid.
//
// Time and space are O((len(old)+len(new)) * D), where D is the edit distance.
func Lines(old, new []string) Script {
	s, _ := search(old, new, -1)
	return s
}

// LinesWithBudget is like Lines, but gives up once the edit distance is known to exceed maxEditDistance. In that case it returns a script that deletes
// every old line and then inserts every new line, and ok is false. The returned script is valid either way: Apply(old, s) == new.
//
// A negative maxEditDistance means no budget (identical to Lines).
func LinesWithBudget(old, new []string, maxEditDistance int) (s Script, ok bool) {
	s, ok = search(old, new, maxEditDistance)
	if !ok {
		return replaceAll(old, new), false
	}
	return s, true
}

// search runs the greedy forward Myers search over the edit graph. x indexes old, y indexes new, and diagonal k = x - y. For every edit distance d it
// records the furthest-reaching x on each diagonal k in [-d, d] (step k parity equals d parity), then backtracks through those frontiers.
//
// If maxD >= 0 and the distance exceeds it, search returns (nil, false).
func search(old, new []string, maxD int) (Script, bool) {
	n, m := len(old), len(new)
	limit := n + m
	if maxD >= 0 && maxD < limit {
		limit = maxD
	}

	// v[offset+k] is the furthest x on diagonal k. Diagonals k-1 and k+1 are read for k in [-d, d], so the slice is padded by one on each side.
	offset := limit + 1
	v := make([]int, 2*limit+3)

	// trace[d][k+d] is v[offset+k] after step d.
	trace := make([][]int, 0, limit+1)

	for d := 0; d <= limit; d++ {
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1] // vertical step from k+1: insert
			} else {
				x = v[offset+k-1] + 1 // horizontal step from k-1: delete
			}
			y := x - k
			for x < n && y < m && old[x] == new[y] {
				x++
				y++
			}
			v[offset+k] = x

			if x >= n && y >= m {
				trace = append(trace, snapshotFrontier(v, offset, d))
				return backtrack(old, new, trace), true
			}
		}
		trace = append(trace, snapshotFrontier(v, offset, d))
	}
	return nil, false
}

func snapshotFrontier(v []int, offset, d int) []int {
	frontier := make([]int, 2*d+1)
	copy(frontier, v[offset-d:offset+d+1])
	return frontier
}

// backtrack walks from (len(old), len(new)) back to (0, 0) through trace and returns the forward script.
func backtrack(old, new []string, trace [][]int) Script {
	x, y := len(old), len(new)
	script := make(Script, 0, len(old)+len(new))

	for d := len(trace) - 1; d > 0; d-- {
		prev := trace[d-1]
		k := x - y

		// Must mirror the choice made in search.
		var prevK int
		if k == -d || (k != d && prev[k-1+d-1] < prev[k+1+d-1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[prevK+d-1]
		prevY := prevX - prevK

		// The non-diagonal step lands on (stepX, stepY); the snake runs from there to (x, y).
		stepX, stepY := prevX, prevY+1
		if prevK == k-1 {
			stepX, stepY = prevX+1, prevY
		}
		for x > stepX && y > stepY {
			x--
			y--
			script = append(script, Edit{Op: OpEqual, Line: old[x]})
		}
		if prevK == k-1 {
			script = append(script, Edit{Op: OpDelete, Line: old[prevX]})
		} else {
			script = append(script, Edit{Op: OpInsert, Line: new[prevY]})
		}
		x, y = prevX, prevY
	}

	// d == 0: whatever remains is the leading snake from the origin.
	for x > 0 && y > 0 {
		x--
		y--
		script = append(script, Edit{Op: OpEqual, Line: old[x]})
	}

	for i, j := 0, len(script)-1; i < j; i, j = i+1, j-1 {
		script[i], script[j] = script[j], script[i]
	}
	return script
}

// replaceAll returns the "fully replaced" script: every old line deleted, then every new line inserted.
func replaceAll(old, new []string) Script {
	script := make(Script, 0, len(old)+len(new))
	for _, line := range old {
		script = append(script, Edit{Op: OpDelete, Line: line})
	}
	for _, line := range new {
		script = append(script, Edit{Op: OpInsert, Line: line})
	}
	return script
}
