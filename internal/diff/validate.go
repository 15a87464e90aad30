package diff

import "fmt"

// Validate checks that s is a well-formed script from old to new and returns an error on the first violation:
//   - every record has a known Op;
//   - the OpEqual/OpDelete records reconstruct old exactly;
//   - the OpEqual/OpInsert records reconstruct new exactly.
//
// Validate does not check minimality.
func (s Script) Validate(old, new []string) error {
	oi, ni := 0, 0
	for i, e := range s {
		switch e.Op {
		case OpEqual:
			if oi >= len(old) || old[oi] != e.Line {
				return fmt.Errorf("edit[%d]: OpEqual does not match old line %d", i, oi+1)
			}
			if ni >= len(new) || new[ni] != e.Line {
				return fmt.Errorf("edit[%d]: OpEqual does not match new line %d", i, ni+1)
			}
			oi++
			ni++
		case OpDelete:
			if oi >= len(old) || old[oi] != e.Line {
				return fmt.Errorf("edit[%d]: OpDelete does not match old line %d", i, oi+1)
			}
			oi++
		case OpInsert:
			if ni >= len(new) || new[ni] != e.Line {
				return fmt.Errorf("edit[%d]: OpInsert does not match new line %d", i, ni+1)
			}
			ni++
		default:
			return fmt.Errorf("edit[%d]: unknown op %d", i, e.Op)
		}
	}
	if oi != len(old) {
		return fmt.Errorf("script: old subsequence has %d lines, want %d", oi, len(old))
	}
	if ni != len(new) {
		return fmt.Errorf("script: new subsequence has %d lines, want %d", ni, len(new))
	}
	return nil
}
