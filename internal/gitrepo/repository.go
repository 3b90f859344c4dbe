package gitrepo

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repository wraps a go-git repository for read access (ref resolution,
// commit/tree walking, ancestry checks, per-commit diffs) and pairs it with
// a ShellExecutor for the object-store writes and config lookups go-git
// doesn't cover cleanly.
type Repository struct {
	*gogit.Repository

	shell *ShellExecutor
	path  string
}

// Open opens the git repository containing path.
func Open(path string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	root := path

	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &Repository{
		Repository: repo,
		shell:      NewShellExecutor(root),
		path:       root,
	}, nil
}

// Root returns the repository's working tree root.
func (r *Repository) Root() string {
	return r.path
}

// Shell returns the ShellExecutor used for writes and config lookups.
func (r *Repository) Shell() *ShellExecutor {
	return r.shell
}

// HeadCommit resolves and returns HEAD's commit object.
func (r *Repository) HeadCommit() (*object.Commit, error) {
	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}

	return commit, nil
}

// IsDetached reports whether HEAD does not point at a branch.
func (r *Repository) IsDetached() bool {
	head, err := r.Head()
	if err != nil {
		return false
	}

	return !head.Name().IsBranch()
}

// CurrentBranch returns HEAD's branch short name, and false if detached.
func (r *Repository) CurrentBranch() (string, bool) {
	head, err := r.Head()
	if err != nil || !head.Name().IsBranch() {
		return "", false
	}

	return head.Name().Short(), true
}

// ResolveCommit resolves a ref expression (branch, tag, or partial SHA) to a
// commit object.
func (r *Repository) ResolveCommit(ref string) (*object.Commit, error) {
	hash, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}

	commit, err := r.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %q: %w", ref, err)
	}

	return commit, nil
}

// OtherBranchTips returns the tip commit of every local branch other than
// excluding, used by the stack selector to detect shared history.
func (r *Repository) OtherBranchTips(excluding string) ([]*object.Commit, error) {
	branches, err := r.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var tips []*object.Commit

	err = branches.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().Short() == excluding {
			return nil
		}

		commit, err := r.CommitObject(ref.Hash())
		if err != nil {
			// An unreadable branch tip shouldn't abort the walk; it just
			// contributes nothing to the reachability check.
			return nil
		}

		tips = append(tips, commit)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk branches: %w", err)
	}

	return tips, nil
}

// ReachableFromOtherTip reports whether commit is reachable from any branch
// tip other than the branch named current.
func (r *Repository) ReachableFromOtherTip(commit *object.Commit, current string) (bool, error) {
	tips, err := r.OtherBranchTips(current)
	if err != nil {
		return false, err
	}

	for _, tip := range tips {
		reachable, err := commit.IsAncestor(tip)
		if err != nil {
			continue
		}

		if reachable {
			return true, nil
		}
	}

	return false, nil
}

// TreeBlobLines returns the content of path within the tree identified by
// treeHash, split into lines with line terminators stripped. Used by the
// attribution driver's post-non-commutation safety check, which needs the
// actual text at a candidate target's tree, not just its diff.
func (r *Repository) TreeBlobLines(treeHash, path string) ([]string, error) {
	tree, err := r.TreeObject(plumbing.NewHash(treeHash))
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", treeHash, err)
	}

	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("find %s in tree %s: %w", path, treeHash, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s in tree %s: %w", path, treeHash, err)
	}

	if content == "" {
		return nil, nil
	}

	lines := splitLines(content)

	return lines, nil
}

// splitLines splits text on "\n" without keeping a trailing empty element
// for a final newline, matching how line numbers are counted elsewhere.
func splitLines(text string) []string {
	if len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}

	var lines []string

	start := 0

	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}

	lines = append(lines, text[start:])

	return lines
}

// CommitPatch returns the unified diff of commit against its first parent,
// using go-git's own tree differ rather than a shelled-out git diff.
func (r *Repository) CommitPatch(ctx context.Context, commit *object.Commit) (string, error) {
	if commit.NumParents() == 0 {
		return "", fmt.Errorf("commit %s has no parent", commit.Hash)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return "", fmt.Errorf("load parent of %s: %w", commit.Hash, err)
	}

	patch, err := parent.PatchContext(ctx, commit)
	if err != nil {
		return "", fmt.Errorf("diff %s against parent: %w", commit.Hash, err)
	}

	return patch.String(), nil
}
