// Package stack computes the ordered list of candidate commits a staged
// hunk may be absorbed into, walking HEAD's first-parent chain and applying
// the stop/skip/include classification from the design: the stack selector
// component of absorb's attribution engine.
package stack

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mjpitz/absorb/internal/errkind"
	"github.com/mjpitz/absorb/internal/gitrepo"
	"github.com/mjpitz/absorb/internal/hunkdiff"
)

// CandidateCommit is one commit accepted into the stack, together with the
// per-path hunk lists of its diff against its own parent.
type CandidateCommit struct {
	ID           string
	ParentID     string
	Author       gitrepo.Identity
	Message      string
	TreeID       string
	PerPathDiffs map[string][]*hunkdiff.Hunk
}

// Subject returns the first line of the commit message.
func (c CandidateCommit) Subject() string {
	if idx := strings.IndexByte(c.Message, '\n'); idx >= 0 {
		return c.Message[:idx]
	}

	return c.Message
}

// Stack is the ordered sequence of candidate commits, nearest-to-HEAD
// first, plus whether the walk stopped because it hit the configured limit.
type Stack struct {
	Commits       []CandidateCommit
	HitStackLimit bool
}

// Options configures stack selection, mirroring the CLI/config inputs in
// the external interface: an explicit base ref, the max stack depth, and
// the force_* safety overrides.
type Options struct {
	Base        string
	MaxStack    int
	ForceAuthor bool
	ForceDetach bool
}

// Select walks repo's HEAD first-parent chain and returns the candidate
// stack, applying the stop conditions and safety filters in order. It
// returns an *errkind.Error of kind UnsafeState if HEAD is detached without
// ForceDetach, or if an explicit Base cannot be resolved.
func Select(ctx context.Context, repo *gitrepo.Repository, opts Options) (*Stack, error) {
	if repo.IsDetached() && !opts.ForceDetach {
		return nil, errkind.New(errkind.UnsafeState, "HEAD is detached; pass --force-detach to absorb onto it anyway")
	}

	currentBranch, _ := repo.CurrentBranch()

	identity, err := repo.Shell().UserIdentity(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.RepositoryUnavailable, "read user identity", err)
	}

	head, err := repo.HeadCommit()
	if err != nil {
		return nil, errkind.Wrap(errkind.RepositoryUnavailable, "resolve HEAD", err)
	}

	var baseCommit *object.Commit

	if opts.Base != "" {
		baseCommit, err = repo.ResolveCommit(opts.Base)
		if err != nil {
			return nil, errkind.Wrap(errkind.UnsafeState, fmt.Sprintf("resolve base %q", opts.Base), err)
		}
	}

	result := &Stack{}
	cursor := head

	for {
		if cursor.NumParents() != 1 {
			break
		}

		reachable, err := repo.ReachableFromOtherTip(cursor, currentBranch)
		if err != nil {
			return nil, errkind.Wrap(errkind.RepositoryUnavailable, "check branch reachability", err)
		}

		if reachable {
			break
		}

		if baseCommit != nil && cursor.Hash == baseCommit.Hash {
			break
		}

		subject := firstLine(cursor.Message)

		if strings.HasPrefix(subject, "fixup! ") || strings.HasPrefix(subject, "squash! ") {
			cursor, err = cursor.Parent(0)
			if err != nil {
				break
			}

			continue
		}

		if !opts.ForceAuthor && cursor.Author.Email != identity.Email {
			cursor, err = cursor.Parent(0)
			if err != nil {
				break
			}

			continue
		}

		if opts.Base == "" && len(result.Commits) >= opts.MaxStack {
			result.HitStackLimit = true

			break
		}

		candidate, err := buildCandidate(ctx, repo, cursor)
		if err != nil {
			return nil, errkind.Wrap(errkind.RepositoryUnavailable, "load candidate commit", err)
		}

		result.Commits = append(result.Commits, candidate)

		cursor, err = cursor.Parent(0)
		if err != nil {
			break
		}
	}

	return result, nil
}

// buildCandidate loads a commit's per-path diff against its own parent and
// wraps it as a CandidateCommit.
func buildCandidate(ctx context.Context, repo *gitrepo.Repository, commit *object.Commit) (CandidateCommit, error) {
	parent, err := commit.Parent(0)
	if err != nil {
		return CandidateCommit{}, fmt.Errorf("load parent of %s: %w", commit.Hash, err)
	}

	patchText, err := repo.CommitPatch(ctx, commit)
	if err != nil {
		return CandidateCommit{}, err
	}

	parsed, err := hunkdiff.Parse(patchText)
	if err != nil {
		return CandidateCommit{}, fmt.Errorf("parse diff of %s: %w", commit.Hash, err)
	}

	perPath := make(map[string][]*hunkdiff.Hunk)

	for file := range parsed.Files() {
		if file.IsBinary || len(file.Hunks) == 0 {
			continue
		}

		perPath[file.Path()] = file.Hunks
	}

	return CandidateCommit{
		ID:           commit.Hash.String(),
		ParentID:     parent.Hash.String(),
		Author:       gitrepo.Identity{Name: commit.Author.Name, Email: commit.Author.Email},
		Message:      strings.TrimRight(commit.Message, "\n"),
		TreeID:       commit.TreeHash.String(),
		PerPathDiffs: perPath,
	}, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}

	return s
}
