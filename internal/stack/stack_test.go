package stack_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjpitz/absorb/internal/gitrepo"
	"github.com/mjpitz/absorb/internal/stack"
	"github.com/mjpitz/absorb/internal/testutil"
)

func TestSelect_BasicStackInFirstParentOrder(t *testing.T) {
	repo := testutil.NewGitTestRepo(t)

	repo.WriteFile("a.txt", "a\n")
	repo.CommitAll("first")

	repo.WriteFile("b.txt", "b\n")
	repo.CommitAll("second")

	repo.WriteFile("c.txt", "c\n")
	repo.CommitAll("third")

	r, err := gitrepo.Open(repo.Dir)
	require.NoError(t, err)

	st, err := stack.Select(context.Background(), r, stack.Options{MaxStack: 10})
	require.NoError(t, err)
	require.Len(t, st.Commits, 3)
	require.Equal(t, "third", st.Commits[0].Subject())
	require.Equal(t, "second", st.Commits[1].Subject())
	require.Equal(t, "first", st.Commits[2].Subject())
	require.False(t, st.HitStackLimit)
}

func TestSelect_StopsAtMaxStack(t *testing.T) {
	repo := testutil.NewGitTestRepo(t)

	repo.WriteFile("a.txt", "a\n")
	repo.CommitAll("first")

	repo.WriteFile("b.txt", "b\n")
	repo.CommitAll("second")

	repo.WriteFile("c.txt", "c\n")
	repo.CommitAll("third")

	r, err := gitrepo.Open(repo.Dir)
	require.NoError(t, err)

	st, err := stack.Select(context.Background(), r, stack.Options{MaxStack: 2})
	require.NoError(t, err)
	require.Len(t, st.Commits, 2)
	require.True(t, st.HitStackLimit)
}

func TestSelect_StopsAtExplicitBase(t *testing.T) {
	repo := testutil.NewGitTestRepo(t)

	repo.WriteFile("a.txt", "a\n")
	repo.CommitAll("first")
	base := repo.Git("rev-parse", "HEAD")

	repo.WriteFile("b.txt", "b\n")
	repo.CommitAll("second")

	repo.WriteFile("c.txt", "c\n")
	repo.CommitAll("third")

	r, err := gitrepo.Open(repo.Dir)
	require.NoError(t, err)

	st, err := stack.Select(context.Background(), r, stack.Options{Base: trimNL(base), MaxStack: 10})
	require.NoError(t, err)
	require.Len(t, st.Commits, 2)
	require.False(t, st.HitStackLimit)
}

// Fixup/squash commits already on the branch (left over from a prior
// absorb run) are never themselves candidates; the walk passes through
// them to their parent.
func TestSelect_SkipsFixupAndSquashCommits(t *testing.T) {
	repo := testutil.NewGitTestRepo(t)

	repo.WriteFile("a.txt", "a\n")
	repo.CommitAll("introduce file")

	repo.WriteFile("a.txt", "a\nb\n")
	repo.CommitAll("fixup! introduce file")

	r, err := gitrepo.Open(repo.Dir)
	require.NoError(t, err)

	st, err := stack.Select(context.Background(), r, stack.Options{MaxStack: 10})
	require.NoError(t, err)
	require.Len(t, st.Commits, 1)
	require.Equal(t, "introduce file", st.Commits[0].Subject())
}

// Scenario 6 from the design's scenario table: a candidate authored by
// someone else is skipped (not even added to the stack) unless
// ForceAuthor is set.
func TestSelect_ForeignAuthorSkippedWithoutForceAuthor(t *testing.T) {
	repo := testutil.NewGitTestRepo(t)

	repo.WriteFile("a.txt", "a\n")
	repo.CommitAll("mine")

	repo.WriteFile("a.txt", "a\nb\n")
	repo.Git("commit", "-am", "theirs", "--author", "Someone Else <someone@example.com>")

	repo.WriteFile("a.txt", "a\nb\nc\n")
	repo.CommitAll("mine again")

	r, err := gitrepo.Open(repo.Dir)
	require.NoError(t, err)

	st, err := stack.Select(context.Background(), r, stack.Options{MaxStack: 10})
	require.NoError(t, err)
	require.Len(t, st.Commits, 2)
	require.Equal(t, "mine again", st.Commits[0].Subject())
	require.Equal(t, "mine", st.Commits[1].Subject())
}

func TestSelect_ForeignAuthorIncludedWithForceAuthor(t *testing.T) {
	repo := testutil.NewGitTestRepo(t)

	repo.WriteFile("a.txt", "a\n")
	repo.CommitAll("mine")

	repo.WriteFile("a.txt", "a\nb\n")
	repo.Git("commit", "-am", "theirs", "--author", "Someone Else <someone@example.com>")

	r, err := gitrepo.Open(repo.Dir)
	require.NoError(t, err)

	st, err := stack.Select(context.Background(), r, stack.Options{MaxStack: 10, ForceAuthor: true})
	require.NoError(t, err)
	require.Len(t, st.Commits, 2)
	require.Equal(t, "theirs", st.Commits[0].Subject())
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}

	return s
}
