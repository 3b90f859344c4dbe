package gitrepo

import "time"

// RepoStatus represents the current state of the repository.
type RepoStatus struct {
	// StagedFiles lists files with staged changes.
	StagedFiles []string

	// UnstagedFiles lists files with unstaged changes.
	UnstagedFiles []string

	// UntrackedFiles lists untracked files.
	UntrackedFiles []string
}

// CommitInfo contains metadata about a commit, as surfaced by the rebase
// planning commands; distinct from stack.CandidateCommit, which carries the
// tree and per-path diff data the attribution walk needs.
type CommitInfo struct {
	// Hash is the full commit hash.
	Hash string

	// ShortHash is the abbreviated commit hash (7 characters).
	ShortHash string

	// Subject is the first line of the commit message.
	Subject string

	// Author is the commit author in "Name <email>" format.
	Author string

	// Date is when the commit was authored.
	Date time.Time
}

// RebaseStateType indicates the current state of a rebase operation.
type RebaseStateType string

const (
	// RebaseStateNone indicates no rebase is in progress.
	RebaseStateNone RebaseStateType = "none"

	// RebaseStateNormal indicates rebase is progressing normally.
	RebaseStateNormal RebaseStateType = "normal"

	// RebaseStateConflict indicates rebase has stopped due to conflicts.
	RebaseStateConflict RebaseStateType = "conflict"

	// RebaseStateEdit indicates rebase has stopped for commit editing.
	RebaseStateEdit RebaseStateType = "edit"
)

// RebaseState represents the current state of an interactive rebase.
type RebaseState struct {
	// InProgress is true if a rebase operation is active.
	InProgress bool

	// State indicates the current rebase state.
	State RebaseStateType

	// CurrentCommit is the commit currently being rebased (if any).
	CurrentCommit *CommitInfo

	// CurrentAction is the action being performed (pick, squash, etc.).
	CurrentAction string

	// TotalCount is the total number of commits to rebase.
	TotalCount int

	// RemainingCount is the number of commits remaining.
	RemainingCount int

	// CompletedCount is the number of commits already rebased.
	CompletedCount int

	// Conflicts lists any files with conflicts.
	Conflicts []ConflictInfo

	// OriginalBranch is the branch being rebased.
	OriginalBranch string

	// OntoRef is the target base reference.
	OntoRef string
}

// ConflictInfo describes a file with merge conflicts.
type ConflictInfo struct {
	// Path is the file path relative to repo root.
	Path string

	// ConflictType describes the type of conflict (content, delete, etc.).
	ConflictType string
}
