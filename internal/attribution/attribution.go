// Package attribution implements the attribution driver: for every staged
// hunk it walks the candidate stack, applying the commuter until a
// non-commuting (absorbing) commit is found, and buffers the resulting
// fixup intents grouped by target in stack order.
package attribution

import (
	"context"
	"fmt"

	"github.com/mjpitz/absorb/internal/commute"
	"github.com/mjpitz/absorb/internal/errkind"
	"github.com/mjpitz/absorb/internal/gitrepo"
	"github.com/mjpitz/absorb/internal/hunkdiff"
	"github.com/mjpitz/absorb/internal/logging"
	"github.com/mjpitz/absorb/internal/stack"
)

// Intent is one absorbable hunk paired with the commit it will be folded
// into, the hunk already rewritten into that commit's own coordinate
// system.
type Intent struct {
	Path           string
	TargetCommitID string

	// HunkAgainstTarget is H rewritten into target's own tree coordinates;
	// used only for the safety check and diagnostics. The commit the
	// emitter actually writes applies SourceHunk (HEAD-relative
	// coordinates) to HEAD's own blob — the autosquash rebase is what
	// relocates the change to the target, using git's own patch-context
	// matching, not these rewritten coordinates.
	HunkAgainstTarget *hunkdiff.Hunk
	SourceHunk        *hunkdiff.Hunk
	SourceHunkID      string
}

// Unabsorbed records a staged hunk that could not be attributed to any
// commit in the stack, and why.
type Unabsorbed struct {
	Path         string
	SourceHunkID string
	Reason       string
}

// Result is the full output of a single attribution pass.
type Result struct {
	// Intents preserves stack order: all intents for the target nearest
	// HEAD appear before any intent for a target farther back.
	Intents    []Intent
	Unabsorbed []Unabsorbed
}

// Options configures the attribution walk.
type Options struct {
	// WholeFile forces non-commutation with any commit touching a hunk's
	// path, per the -w/--whole-file flag.
	WholeFile bool
}

// Run attributes every hunk in staged to a target commit in st, or records
// it as unabsorbed. repo is used only for the post-non-commutation safety
// check, which needs the target's actual tree content.
func Run(
	ctx context.Context, repo *gitrepo.Repository, st *stack.Stack, staged *hunkdiff.ParsedDiff,
	opts Options, log *logging.Logger,
) (*Result, error) {
	// byTarget groups intents by target commit ID; Intents is assembled
	// below by walking st.Commits, so grouping by target preserves stack
	// order across paths/hunks.
	byTarget := make(map[string][]Intent)

	var unabsorbedHunks []Unabsorbed

	for file := range staged.Files() {
		if file.IsBinary {
			continue
		}

		path := file.Path()

		for hunkIdx, h := range file.Hunks {
			if h.IsNoOp() {
				continue
			}

			sourceID := fmt.Sprintf("%s#%d", path, hunkIdx)

			intent, unabsorbed, err := attributeHunk(repo, st, path, h, sourceID, opts)
			if err != nil {
				return nil, err
			}

			if intent != nil {
				byTarget[intent.TargetCommitID] = append(byTarget[intent.TargetCommitID], *intent)

				continue
			}

			log.Warnf("%s", errkind.New(errkind.UnabsorbableHunk, unabsorbed.Reason).WithPath(sourceID))

			unabsorbedHunks = append(unabsorbedHunks, *unabsorbed)
		}
	}

	result := &Result{Unabsorbed: unabsorbedHunks}

	for _, candidate := range st.Commits {
		if intents, ok := byTarget[candidate.ID]; ok {
			result.Intents = append(result.Intents, intents...)
		}
	}

	return result, nil
}

// attributeHunk walks h through st, returning either the intent it should
// produce or the reason it couldn't be absorbed.
func attributeHunk(
	repo *gitrepo.Repository, st *stack.Stack, path string, h *hunkdiff.Hunk, sourceID string, opts Options,
) (*Intent, *Unabsorbed, error) {
	current := h

	for _, candidate := range st.Commits {
		commitHunks := candidate.PerPathDiffs[path]
		if len(commitHunks) == 0 {
			// This commit doesn't touch the path at all; it trivially
			// commutes and current stays as-is.
			continue
		}

		result := commute.Check(current, commitHunks, opts.WholeFile)
		if result.Commutes {
			current = result.Rewritten

			continue
		}

		targetLines, err := repo.TreeBlobLines(candidate.TreeID, path)
		if err != nil {
			return nil, nil, fmt.Errorf("read target tree content for %s: %w", path, err)
		}

		if !commute.VerifyRemovedLinesPresent(current, targetLines) {
			return nil, &Unabsorbed{
				Path: path, SourceHunkID: sourceID,
				Reason: fmt.Sprintf("left unabsorbed: removed lines not found at projected location in %s", candidate.ID),
			}, nil
		}

		return &Intent{
			Path:              path,
			TargetCommitID:    candidate.ID,
			HunkAgainstTarget: current,
			SourceHunk:        h,
			SourceHunkID:      sourceID,
		}, nil, nil
	}

	return nil, &Unabsorbed{
		Path: path, SourceHunkID: sourceID,
		Reason: "left unabsorbed: commuted past the entire stack",
	}, nil
}
