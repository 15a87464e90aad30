package diff

// Op is an operation from old lines to new lines.
//
// The numeric values are stable: serialized forms may rely on them.
type Op uint8

// Operations from old lines to new lines.
const (
	OpEqual  Op = iota // line unchanged in both versions
	OpDelete           // line only in old
	OpInsert           // line only in new
)

// String returns "equal", "delete", or "insert".
func (op Op) String() string {
	switch op {
	case OpEqual:
		return "equal"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Valid reports whether op is one of the three defined operations.
func (op Op) Valid() bool {
	return op <= OpInsert
}

// Prefix returns the unified-diff marker for op: " ", "-", or "+".
func (op Op) Prefix() string {
	switch op {
	case OpDelete:
		return "-"
	case OpInsert:
		return "+"
	default:
		return " "
	}
}

// Edit is one record of a Script. For OpEqual and OpDelete, Line comes from the old sequence; for OpInsert, it comes from the new sequence.
type Edit struct {
	Op   Op
	Line string
}

// Script is an ordered edit script that transforms an old line sequence into a new one.
//
// As an illustration, old = ["a", "b", "c"] and new = ["a", "x", "c"] produce:
//
//	[{OpEqual a} {OpDelete b} {OpInsert x} {OpEqual c}]
//
// A Script returned by Lines is freshly allocated and owned by the caller. It may be discarded after one Apply or serialized for later use.
type Script []Edit

// Stats counts the records of a Script by Op.
type Stats struct {
	Equal    int // Number of OpEqual records.
	Deleted  int // Number of OpDelete records.
	Inserted int // Number of OpInsert records.
}

// Distance is Deleted + Inserted.
func (st Stats) Distance() int {
	return st.Deleted + st.Inserted
}

// Stats returns the per-op record counts of s. Records with an unknown Op are not counted.
func (s Script) Stats() Stats {
	var st Stats
	for _, e := range s {
		switch e.Op {
		case OpEqual:
			st.Equal++
		case OpDelete:
			st.Deleted++
		case OpInsert:
			st.Inserted++
		}
	}
	return st
}

// EditDistance returns the number of non-equal records in s.
func (s Script) EditDistance() int {
	return s.Stats().Distance()
}

// HasChanges reports whether s contains any OpDelete or OpInsert record.
func (s Script) HasChanges() bool {
	for _, e := range s {
		if e.Op != OpEqual {
			return true
		}
	}
	return false
}

// OldLines returns the lines of the OpEqual and OpDelete records, in order. For s := Lines(old, new), this equals old.
func (s Script) OldLines() []string {
	return s.side(OpDelete)
}

// NewLines returns the lines of the OpEqual and OpInsert records, in order. For s := Lines(old, new), this equals new.
func (s Script) NewLines() []string {
	return s.side(OpInsert)
}

func (s Script) side(op Op) []string {
	out := make([]string, 0, len(s))
	for _, e := range s {
		if e.Op == OpEqual || e.Op == op {
			out = append(out, e.Line)
		}
	}
	return out
}

// Clone returns a copy of s that shares no backing array with s.
func (s Script) Clone() Script {
	if s == nil {
		return nil
	}
	out := make(Script, len(s))
	copy(out, s)
	return out
}
