// Package commute implements the commutation predicate and rewrite
// procedure at the heart of hunk-to-commit attribution: given a hunk and a
// commit's per-path hunks, decide whether the hunk can be pushed past that
// commit to an earlier one, and if so, produce the hunk re-expressed
// against the commit's parent.
package commute

import (
	"sort"

	"github.com/mjpitz/absorb/internal/hunkdiff"
)

// Result is the outcome of checking a hunk against one commit's hunks on
// the same path.
type Result struct {
	// Commutes is true when the hunk can be pushed past the commit.
	Commutes bool

	// Rewritten is the hunk re-expressed against the commit's parent.
	// Only set when Commutes is true.
	Rewritten *hunkdiff.Hunk
}

// Check decides whether h commutes with a commit whose hunks on h's path
// are commitHunks. commitHunks need not be pre-sorted. wholeFile forces
// non-commutation whenever the commit touches the path at all, regardless
// of overlap.
func Check(h *hunkdiff.Hunk, commitHunks []*hunkdiff.Hunk, wholeFile bool) Result {
	if wholeFile && len(commitHunks) > 0 {
		return Result{Commutes: false}
	}

	sorted := sortByNewStart(commitHunks)

	hNew := h.NewRange()

	for _, c := range sorted {
		if interferes(hNew, c.NewRange()) {
			return Result{Commutes: false}
		}
	}

	return Result{Commutes: true, Rewritten: rewrite(h, sorted)}
}

// sortByNewStart returns a copy of hunks ordered by new-side start, the
// order the commutation predicate and rewrite procedure both require.
func sortByNewStart(hunks []*hunkdiff.Hunk) []*hunkdiff.Hunk {
	sorted := make([]*hunkdiff.Hunk, len(hunks))
	copy(sorted, hunks)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].NewStart < sorted[j].NewStart
	})

	return sorted
}

// interferes implements the disjointness predicate from the design:
// non-empty ranges interfere iff they overlap; a pure insertion interferes
// with a non-empty range iff its point falls strictly inside that range's
// span (adjacency at either boundary does not interfere); two insertions
// never interfere with each other.
func interferes(a, b hunkdiff.Range) bool {
	switch {
	case !a.Empty() && !b.Empty():
		return a.Overlaps(b)
	case a.Empty() && !b.Empty():
		return a.Start > b.Start && a.Start < b.End()
	case b.Empty() && !a.Empty():
		return b.Start > a.Start && b.Start < a.End()
	default:
		return false
	}
}

// rewrite projects h's ranges backward through sorted (h must already have
// been found to commute with every entry). Every commit hunk ending at or
// before h's new-side start shifts h by its own line-count delta; commit
// hunks starting at or after h's new-side end leave h untouched. Overlap is
// impossible here because Check already verified disjointness.
func rewrite(h *hunkdiff.Hunk, sorted []*hunkdiff.Hunk) *hunkdiff.Hunk {
	shift := 0
	hNewStart := h.NewStart

	for _, c := range sorted {
		if c.NewStart+c.NewLines <= hNewStart {
			shift += c.OldLines - c.NewLines
		}
	}

	rewritten := *h
	rewritten.OldStart += shift
	rewritten.NewStart += shift

	return &rewritten
}

// VerifyRemovedLinesPresent implements the post-non-commutation safety
// check: it confirms h's removed lines are actually present at h's
// projected old-range location within targetLines, the target commit's
// tree content for h's path split into lines. A mismatch means the
// upstream diff algorithm produced a hunk that doesn't correspond to this
// tree, and the hunk must be reported unabsorbable rather than applied.
func VerifyRemovedLinesPresent(h *hunkdiff.Hunk, targetLines []string) bool {
	removed := h.RemovedContent()
	if len(removed) == 0 {
		return true
	}

	start := h.OldStart - 1 // OldStart is 1-indexed.

	for i, want := range removed {
		idx := start + i
		if idx < 0 || idx >= len(targetLines) {
			return false
		}

		if targetLines[idx] != want {
			return false
		}
	}

	return true
}
