package hunkdiff

import "fmt"

// Range is a half-open line interval [Start, Start+Count) over one side
// (old or new) of a file. Count may be zero: a zero-length old range is a
// pure insertion, a zero-length new range is a pure deletion.
type Range struct {
	Start int
	Count int
}

// End returns the exclusive end of the range.
func (r Range) End() int {
	return r.Start + r.Count
}

// Empty reports whether the range spans zero lines.
func (r Range) Empty() bool {
	return r.Count == 0
}

// Shift returns a copy of r with Start moved by delta lines.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, Count: r.Count}
}

// Overlaps reports whether r and other share at least one line.
func (r Range) Overlaps(other Range) bool {
	if r.Empty() || other.Empty() {
		return false
	}

	return r.Start < other.End() && other.Start < r.End()
}

// String renders the range in "@@" hunk-header style (1-indexed, count).
func (r Range) String() string {
	return fmt.Sprintf("%d,%d", r.Start, r.Count)
}

// OldRange returns the hunk's old-side half-open range.
func (h *Hunk) OldRange() Range {
	return Range{Start: h.OldStart, Count: h.OldLines}
}

// NewRange returns the hunk's new-side half-open range.
func (h *Hunk) NewRange() Range {
	return Range{Start: h.NewStart, Count: h.NewLines}
}

// AddedContent returns the content of every added line, in order.
func (h *Hunk) AddedContent() []string {
	lines := make([]string, 0, h.NewLines)

	for _, line := range h.Lines {
		if line.Op == OpAdd {
			lines = append(lines, line.Content)
		}
	}

	return lines
}

// RemovedContent returns the content of every removed line, in order.
func (h *Hunk) RemovedContent() []string {
	lines := make([]string, 0, h.OldLines)

	for _, line := range h.Lines {
		if line.Op == OpDelete {
			lines = append(lines, line.Content)
		}
	}

	return lines
}

// IsNoOp reports whether the hunk has no effect: identical added and
// removed content and therefore nothing to attribute.
func (h *Hunk) IsNoOp() bool {
	added := h.AddedContent()
	removed := h.RemovedContent()

	if len(added) != len(removed) {
		return false
	}

	for i := range added {
		if added[i] != removed[i] {
			return false
		}
	}

	return true
}
