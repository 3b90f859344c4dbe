package fixup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mjpitz/absorb/internal/attribution"
	"github.com/mjpitz/absorb/internal/gitrepo"
	"github.com/mjpitz/absorb/internal/hunkdiff"
	"github.com/mjpitz/absorb/internal/stack"
)

// Options configures fixup/squash commit emission.
type Options struct {
	// OneFixupPerCommit aggregates every intent targeting the same commit
	// into a single emitted commit instead of one per hunk.
	OneFixupPerCommit bool

	// Squash emits "squash!" commits instead of "fixup!", appending
	// Message as the preserved body.
	Squash bool

	// FixupTargetAlwaysSHA forces every designator to the target's
	// abbreviated SHA, even when its summary is unique in the stack.
	FixupTargetAlwaysSHA bool

	// Message is appended to squash commit bodies (ignored for fixups).
	Message string

	// DryRun suppresses all object-store writes and ref updates; Emit
	// still computes and returns the Plan each commit would have used.
	DryRun bool
}

// Plan describes one fixup/squash commit, written or (in dry-run) merely
// planned.
type Plan struct {
	TargetCommitID string
	Header         string
	Paths          []string

	// CommitID is the written commit's hash, empty when DryRun is set.
	CommitID string
}

// BuildDesignators computes the fixup/squash target designator for every
// candidate in the stack: the commit's own first message line, unless
// alwaysSHA is set or another candidate in the stack shares the same
// summary, in which case the abbreviated SHA is used instead.
func BuildDesignators(st *stack.Stack, alwaysSHA bool) map[string]string {
	counts := make(map[string]int, len(st.Commits))
	for _, c := range st.Commits {
		counts[c.Subject()]++
	}

	designators := make(map[string]string, len(st.Commits))

	for _, c := range st.Commits {
		if alwaysSHA || counts[c.Subject()] > 1 {
			designators[c.ID] = abbreviate(c.ID, 7)
		} else {
			designators[c.ID] = c.Subject()
		}
	}

	return designators
}

func abbreviate(sha string, n int) string {
	if len(sha) <= n {
		return sha
	}

	return sha[:n]
}

// intentGroup is one unit of work: either a single intent, or (under
// OneFixupPerCommit) every intent targeting the same commit.
type intentGroup struct {
	targetCommitID string
	intents        []attribution.Intent
}

// Emit writes one commit per group onto HEAD, in stack order (nearest
// target first), and returns the resulting plans. In dry-run mode no
// objects or refs are written; the returned plans still reflect what would
// have been produced.
func Emit(
	ctx context.Context, repo *gitrepo.Repository, result *attribution.Result,
	designators map[string]string, identity gitrepo.Identity, opts Options,
) ([]Plan, error) {
	groups := groupIntents(result.Intents, opts.OneFixupPerCommit)

	shell := repo.Shell()

	tip, err := shell.ResolveRef(ctx, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	treeHash, err := shell.TreeHash(ctx, tip)
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD tree: %w", err)
	}

	plans := make([]Plan, 0, len(groups))

	for _, g := range groups {
		paths := pathsTouched(g)
		newTree := treeHash

		if !opts.DryRun {
			for _, path := range paths {
				newTree, err = applyHunksToTree(ctx, shell, newTree, path, hunksForPath(g, path))
				if err != nil {
					return nil, fmt.Errorf("apply hunks for %s: %w", path, err)
				}
			}
		}

		plan := Plan{
			TargetCommitID: g.targetCommitID,
			Header:         header(g.targetCommitID, designators, opts),
			Paths:          paths,
		}

		if opts.DryRun {
			plans = append(plans, plan)

			continue
		}

		commitID, err := shell.CommitTree(ctx, newTree, tip, plan.Header, identity, time.Now())
		if err != nil {
			return nil, fmt.Errorf("write commit onto %s: %w", g.targetCommitID, err)
		}

		if err := shell.UpdateHead(ctx, commitID); err != nil {
			return nil, fmt.Errorf("advance HEAD to %s: %w", commitID, err)
		}

		tip = commitID
		treeHash = newTree
		plan.CommitID = commitID
		plans = append(plans, plan)
	}

	return plans, nil
}

// groupIntents partitions intents into one group per intent, or (when
// perCommit is set) one group per distinct target commit, first-seen order
// preserved — which is stack order, since result.Intents already arrives
// grouped by target in stack order.
func groupIntents(intents []attribution.Intent, perCommit bool) []intentGroup {
	if !perCommit {
		groups := make([]intentGroup, len(intents))
		for i, in := range intents {
			groups[i] = intentGroup{targetCommitID: in.TargetCommitID, intents: []attribution.Intent{in}}
		}

		return groups
	}

	var order []string

	byTarget := make(map[string][]attribution.Intent)

	for _, in := range intents {
		if _, ok := byTarget[in.TargetCommitID]; !ok {
			order = append(order, in.TargetCommitID)
		}

		byTarget[in.TargetCommitID] = append(byTarget[in.TargetCommitID], in)
	}

	groups := make([]intentGroup, len(order))
	for i, id := range order {
		groups[i] = intentGroup{targetCommitID: id, intents: byTarget[id]}
	}

	return groups
}

// pathsTouched returns the distinct paths g's intents touch, sorted for
// deterministic tree-write order.
func pathsTouched(g intentGroup) []string {
	seen := make(map[string]bool)

	var paths []string

	for _, in := range g.intents {
		if !seen[in.Path] {
			seen[in.Path] = true

			paths = append(paths, in.Path)
		}
	}

	sort.Strings(paths)

	return paths
}

// hunksForPath returns g's source hunks touching path, in descending
// old-side start order — applying them high-to-low keeps each hunk's
// splice point stable under the others' edits.
func hunksForPath(g intentGroup, path string) []*hunkdiff.Hunk {
	var hunks []*hunkdiff.Hunk

	for _, in := range g.intents {
		if in.Path == path {
			hunks = append(hunks, in.SourceHunk)
		}
	}

	sort.Slice(hunks, func(i, j int) bool {
		return hunks[i].OldStart > hunks[j].OldStart
	})

	return hunks
}

// header renders the "fixup! <designator>" or "squash! <designator>" first
// line, with the message body appended for squash commits.
func header(targetCommitID string, designators map[string]string, opts Options) string {
	prefix := "fixup"
	if opts.Squash {
		prefix = "squash"
	}

	msg := prefix + "! " + designators[targetCommitID]

	if opts.Squash && opts.Message != "" {
		msg += "\n\n" + opts.Message
	}

	return msg
}

// applyHunksToTree splices hunks into the blob at path within rootTree,
// rebuilding every tree object along the path, and returns the new root
// tree hash.
func applyHunksToTree(
	ctx context.Context, p gitrepo.Plumbing, rootTree, path string, hunks []*hunkdiff.Hunk,
) (string, error) {
	segments := strings.Split(path, "/")

	return updateTreePath(ctx, p, rootTree, segments, hunks)
}

func updateTreePath(
	ctx context.Context, p gitrepo.Plumbing, treeSHA string, segments []string, hunks []*hunkdiff.Hunk,
) (string, error) {
	entries, err := p.ReadTree(ctx, treeSHA)
	if err != nil {
		return "", err
	}

	name := segments[0]

	var (
		matched *gitrepo.TreeEntry
		rest    []gitrepo.TreeEntry
	)

	for i := range entries {
		if entries[i].Path == name {
			e := entries[i]
			matched = &e

			continue
		}

		rest = append(rest, entries[i])
	}

	if matched == nil {
		return "", fmt.Errorf("path segment %q not found in tree %s", name, treeSHA)
	}

	var newSHA string

	if len(segments) == 1 {
		newSHA, err = spliceBlob(ctx, p, matched.SHA, hunks)
	} else {
		newSHA, err = updateTreePath(ctx, p, matched.SHA, segments[1:], hunks)
	}

	if err != nil {
		return "", err
	}

	updated := append(rest, gitrepo.TreeEntry{Mode: matched.Mode, Type: matched.Type, SHA: newSHA, Path: name})

	sort.Slice(updated, func(i, j int) bool { return updated[i].Path < updated[j].Path })

	return p.WriteTree(ctx, updated)
}

// spliceBlob reads blobSHA, applies hunks (already sorted descending by
// old-side start) in order, and writes the result as a new blob.
func spliceBlob(ctx context.Context, p gitrepo.Plumbing, blobSHA string, hunks []*hunkdiff.Hunk) (string, error) {
	content, err := p.ReadBlob(ctx, blobSHA)
	if err != nil {
		return "", fmt.Errorf("read blob %s: %w", blobSHA, err)
	}

	lines := splitBlobLines(string(content))

	for _, h := range hunks {
		lines = spliceHunk(lines, h)
	}

	joined := strings.Join(lines, "\n")
	if len(lines) > 0 {
		joined += "\n"
	}

	return p.WriteBlob(ctx, []byte(joined))
}

// spliceHunk replaces h's removed span with its added content. h's
// OldStart/OldLines are 1-indexed against lines exactly as git's unified
// diff format encodes them: a non-insertion hunk's 0-based start is
// OldStart-1; a pure insertion's 0-based insertion point is OldStart
// itself (the count of preceding unchanged lines).
func spliceHunk(lines []string, h *hunkdiff.Hunk) []string {
	removed := h.RemovedContent()
	added := h.AddedContent()

	start := h.OldStart - 1
	if h.OldLines == 0 {
		start = h.OldStart
	}

	end := start + len(removed)
	if end > len(lines) {
		end = len(lines)
	}

	result := make([]string, 0, len(lines)-len(removed)+len(added))
	result = append(result, lines[:start]...)
	result = append(result, added...)
	result = append(result, lines[end:]...)

	return result
}

// splitBlobLines splits blob content on "\n", dropping a single trailing
// empty element produced by a final newline.
func splitBlobLines(content string) []string {
	if content == "" {
		return nil
	}

	if content[len(content)-1] == '\n' {
		content = content[:len(content)-1]
	}

	return strings.Split(content, "\n")
}
