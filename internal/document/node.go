// Package document reconstructs chat session documents from VS Code's
// incremental session logs. A document is a schema-free JSON value held as
// the types produced by encoding/json: map[string]any, []any, string,
// float64, bool and nil.
package document

// Segment addresses one step into a document: a key into a mapping or an
// index into a sequence.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a mapping-key segment.
func Key(k string) Segment {
	return Segment{Key: k}
}

// Index returns a sequence-index segment.
func Index(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

// Get descends from root one segment at a time. It returns false when any
// segment does not resolve: a key segment on a non-mapping or missing key,
// an index segment on a non-sequence or out of range.
func Get(root any, path []Segment) (any, bool) {
	cur := root
	for _, seg := range path {
		if seg.IsIndex {
			seq, ok := cur.([]any)
			if !ok || seg.Index < 0 || seg.Index >= len(seq) {
				return nil, false
			}
			cur = seq[seg.Index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg.Key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Set replaces the value addressed by path. Missing intermediate structure
// is never created: when the parent of the final segment does not resolve,
// or an index segment is out of range, the document is left unchanged.
// An empty path is a no-op; replacing the root is what snapshots are for.
func Set(root any, path []Segment, value any) {
	if len(path) == 0 {
		return
	}
	parent, ok := Get(root, path[:len(path)-1])
	if !ok {
		return
	}

	last := path[len(path)-1]
	if last.IsIndex {
		if seq, ok := parent.([]any); ok && last.Index >= 0 && last.Index < len(seq) {
			seq[last.Index] = value
		}
		return
	}
	if m, ok := parent.(map[string]any); ok {
		m[last.Key] = value
	}
}

// Insert splices values into the sequence addressed by path (the sequence
// itself, not its parent). The index is clamped into [0, len], so insertion
// never fails on a resolvable sequence; a path that does not resolve to a
// sequence is a no-op. The possibly reallocated root is returned: inserting
// changes the sequence length, and when the sequence is the root there is no
// container to write the new header back into.
func Insert(root any, path []Segment, index int, values []any) any {
	target, ok := Get(root, path)
	if !ok {
		return root
	}
	seq, ok := target.([]any)
	if !ok {
		return root
	}

	if index < 0 {
		index = 0
	}
	if index > len(seq) {
		index = len(seq)
	}

	spliced := make([]any, 0, len(seq)+len(values))
	spliced = append(spliced, seq[:index]...)
	spliced = append(spliced, values...)
	spliced = append(spliced, seq[index:]...)

	if len(path) == 0 {
		return spliced
	}

	parent, _ := Get(root, path[:len(path)-1])
	last := path[len(path)-1]
	if last.IsIndex {
		if pseq, ok := parent.([]any); ok && last.Index >= 0 && last.Index < len(pseq) {
			pseq[last.Index] = spliced
		}
		return root
	}
	if m, ok := parent.(map[string]any); ok {
		m[last.Key] = spliced
	}
	return root
}
