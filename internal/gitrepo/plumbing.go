package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Identity is a commit author or committer identity.
type Identity struct {
	Name  string
	Email string
}

// String renders the identity in "Name <email>" form.
func (id Identity) String() string {
	return fmt.Sprintf("%s <%s>", id.Name, id.Email)
}

// TreeEntry is one entry of a git tree object.
type TreeEntry struct {
	// Mode is the octal file mode, e.g. "100644" or "040000".
	Mode string

	// Type is "blob", "tree", or "commit" (submodule).
	Type string

	// SHA is the object's hash.
	SHA string

	// Path is the entry's name within its containing tree.
	Path string
}

// Plumbing exposes the low-level object-store and ref operations the stack
// selector, commuter, and fixup emitter build on: resolving commits and
// trees, walking ancestry, and writing new blobs/trees/commits without
// touching the working tree or index. ShellExecutor implements it by
// shelling out to git.
type Plumbing interface {
	// ResolveRef resolves a ref expression to a full commit hash.
	ResolveRef(ctx context.Context, ref string) (string, error)

	// ParentHashes returns the parent hashes of a commit, in order.
	// A root commit returns an empty slice.
	ParentHashes(ctx context.Context, commit string) ([]string, error)

	// TreeHash returns the hash of a commit's root tree.
	TreeHash(ctx context.Context, commit string) (string, error)

	// CommitMessage returns the full commit message, trailing newline
	// trimmed.
	CommitMessage(ctx context.Context, commit string) (string, error)

	// CommitAuthor returns the commit's author identity.
	CommitAuthor(ctx context.Context, commit string) (Identity, error)

	// CommitDate returns the commit's author date.
	CommitDate(ctx context.Context, commit string) (time.Time, error)

	// IsAncestor reports whether ancestor is an ancestor of (or equal to)
	// descendant.
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)

	// BranchTips returns the tip commit hash of every local branch other
	// than excluding.
	BranchTips(ctx context.Context, excluding string) ([]string, error)

	// HeadBranch returns the short name of the branch HEAD points to, and
	// false if HEAD is detached.
	HeadBranch(ctx context.Context) (string, bool, error)

	// CommitDiff returns the unified diff between two trees, optionally
	// restricted to paths.
	CommitDiff(ctx context.Context, oldRef, newRef string, paths ...string) (string, error)

	// UserIdentity returns the configured user.name/user.email identity.
	UserIdentity(ctx context.Context) (Identity, error)

	// ConfigSection returns all keys under the given config section
	// (e.g. "absorb"), lower-cased, unprefixed.
	ConfigSection(ctx context.Context, section string) (map[string]string, error)

	// ReadBlob returns the content of a blob object.
	ReadBlob(ctx context.Context, sha string) ([]byte, error)

	// WriteBlob writes content as a new blob object and returns its hash.
	WriteBlob(ctx context.Context, content []byte) (string, error)

	// ReadTree lists the direct entries of a tree object.
	ReadTree(ctx context.Context, treeish string) ([]TreeEntry, error)

	// WriteTree writes a flat list of entries as a new tree object and
	// returns its hash.
	WriteTree(ctx context.Context, entries []TreeEntry) (string, error)

	// CommitTree writes a new single-parent commit object and returns its
	// hash. It does not move any ref.
	CommitTree(
		ctx context.Context, treeSHA, parentSHA, message string,
		author Identity, when time.Time,
	) (string, error)

	// UpdateHead moves HEAD to commitSHA.
	UpdateHead(ctx context.Context, commitSHA string) error
}

// ResolveRef resolves a ref expression to a full commit hash.
func (e *ShellExecutor) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := e.run(ctx, nil, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", ref, err)
	}

	return strings.TrimSpace(out), nil
}

// ParentHashes returns the parent hashes of a commit, in order.
func (e *ShellExecutor) ParentHashes(ctx context.Context, commit string) ([]string, error) {
	out, err := e.run(ctx, nil, "rev-list", "--parents", "-n", "1", commit)
	if err != nil {
		return nil, fmt.Errorf("list parents of %s: %w", commit, err)
	}

	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) <= 1 {
		return nil, nil
	}

	return fields[1:], nil
}

// TreeHash returns the hash of a commit's root tree.
func (e *ShellExecutor) TreeHash(ctx context.Context, commit string) (string, error) {
	out, err := e.run(ctx, nil, "rev-parse", "--verify", commit+"^{tree}")
	if err != nil {
		return "", fmt.Errorf("resolve tree of %s: %w", commit, err)
	}

	return strings.TrimSpace(out), nil
}

// CommitMessage returns the full commit message.
func (e *ShellExecutor) CommitMessage(ctx context.Context, commit string) (string, error) {
	out, err := e.run(ctx, nil, "log", "-1", "--format=%B", commit)
	if err != nil {
		return "", fmt.Errorf("read message of %s: %w", commit, err)
	}

	return strings.TrimRight(out, "\n"), nil
}

// CommitAuthor returns the commit's author identity.
func (e *ShellExecutor) CommitAuthor(ctx context.Context, commit string) (Identity, error) {
	out, err := e.run(ctx, nil, "log", "-1", "--format=%an%x00%ae", commit)
	if err != nil {
		return Identity{}, fmt.Errorf("read author of %s: %w", commit, err)
	}

	parts := strings.SplitN(strings.TrimRight(out, "\n"), "\x00", 2)
	if len(parts) != 2 {
		return Identity{}, fmt.Errorf("malformed author line for %s", commit)
	}

	return Identity{Name: parts[0], Email: parts[1]}, nil
}

// CommitDate returns the commit's author date.
func (e *ShellExecutor) CommitDate(ctx context.Context, commit string) (time.Time, error) {
	out, err := e.run(ctx, nil, "log", "-1", "--format=%aI", commit)
	if err != nil {
		return time.Time{}, fmt.Errorf("read date of %s: %w", commit, err)
	}

	return time.Parse(time.RFC3339, strings.TrimSpace(out))
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant. Unlike run(), exit code 1 means "false", not an error.
func (e *ShellExecutor) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	cmd := exec.CommandContext(
		ctx, "git", "merge-base", "--is-ancestor", ancestor, descendant,
	)
	if e.WorkDir != "" {
		cmd.Dir = e.WorkDir
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}

	return false, fmt.Errorf(
		"merge-base --is-ancestor %s %s: %w: %s", ancestor, descendant, err, stderr.String(),
	)
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}

	return ok
}

// BranchTips returns the tip commit hash of every local branch other than
// excluding.
func (e *ShellExecutor) BranchTips(ctx context.Context, excluding string) ([]string, error) {
	out, err := e.run(
		ctx, nil,
		"for-each-ref", "--format=%(refname:short) %(objectname)", "refs/heads/",
	)
	if err != nil {
		return nil, fmt.Errorf("list branch tips: %w", err)
	}

	var tips []string

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}

		if fields[0] == excluding {
			continue
		}

		tips = append(tips, fields[1])
	}

	return tips, nil
}

// HeadBranch returns the short name of the branch HEAD points to, and false
// if HEAD is detached.
func (e *ShellExecutor) HeadBranch(ctx context.Context) (string, bool, error) {
	out, err := e.run(ctx, nil, "symbolic-ref", "-q", "--short", "HEAD")
	if err != nil {
		// A non-zero exit from symbolic-ref means detached HEAD.
		return "", false, nil
	}

	return strings.TrimSpace(out), true, nil
}

// CommitDiff returns the unified diff between two trees or commits.
func (e *ShellExecutor) CommitDiff(
	ctx context.Context, oldRef, newRef string, paths ...string,
) (string, error) {
	args := []string{"diff", "--no-color", oldRef, newRef}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}

	return e.run(ctx, nil, args...)
}

// UserIdentity returns the configured user.name/user.email identity.
func (e *ShellExecutor) UserIdentity(ctx context.Context) (Identity, error) {
	name, err := e.run(ctx, nil, "config", "--get", "user.name")
	if err != nil {
		return Identity{}, fmt.Errorf("read user.name: %w", err)
	}

	email, err := e.run(ctx, nil, "config", "--get", "user.email")
	if err != nil {
		return Identity{}, fmt.Errorf("read user.email: %w", err)
	}

	return Identity{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
	}, nil
}

// ConfigSection returns all keys under the given config section, lower-cased
// and unprefixed. Missing keys are simply absent from the result.
func (e *ShellExecutor) ConfigSection(ctx context.Context, section string) (map[string]string, error) {
	out, err := e.run(ctx, nil, "config", "--get-regexp", "^"+section+"\\.")
	if err != nil {
		// git config exits non-zero when no keys match; treat as empty.
		return map[string]string{}, nil
	}

	result := make(map[string]string)

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimPrefix(strings.ToLower(parts[0]), section+".")
		result[key] = parts[1]
	}

	return result, nil
}

// ReadBlob returns the content of a blob object.
func (e *ShellExecutor) ReadBlob(ctx context.Context, sha string) ([]byte, error) {
	out, err := e.run(ctx, nil, "cat-file", "-p", sha)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", sha, err)
	}

	return []byte(out), nil
}

// WriteBlob writes content as a new blob object and returns its hash.
func (e *ShellExecutor) WriteBlob(ctx context.Context, content []byte) (string, error) {
	out, err := e.run(ctx, bytes.NewReader(content), "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// ReadTree lists the direct entries of a tree object.
func (e *ShellExecutor) ReadTree(ctx context.Context, treeish string) ([]TreeEntry, error) {
	out, err := e.run(ctx, nil, "ls-tree", treeish)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", treeish, err)
	}

	var entries []TreeEntry

	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}

		meta, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}

		fields := strings.Fields(meta)
		if len(fields) != 3 {
			continue
		}

		entries = append(entries, TreeEntry{
			Mode: fields[0],
			Type: fields[1],
			SHA:  fields[2],
			Path: path,
		})
	}

	return entries, nil
}

// WriteTree writes a flat list of entries as a new tree object and returns
// its hash.
func (e *ShellExecutor) WriteTree(ctx context.Context, entries []TreeEntry) (string, error) {
	var buf bytes.Buffer

	for _, entry := range entries {
		fmt.Fprintf(&buf, "%s %s %s\t%s\n", entry.Mode, entry.Type, entry.SHA, entry.Path)
	}

	out, err := e.run(ctx, &buf, "mktree")
	if err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// CommitTree writes a new single-parent commit object and returns its hash.
// It does not move any ref.
func (e *ShellExecutor) CommitTree(
	ctx context.Context, treeSHA, parentSHA, message string,
	author Identity, when time.Time,
) (string, error) {
	args := []string{"commit-tree", treeSHA, "-m", message}
	if parentSHA != "" {
		args = append(args, "-p", parentSHA)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if e.WorkDir != "" {
		cmd.Dir = e.WorkDir
	}

	dateStr := when.Format("2006-01-02T15:04:05-0700")
	cmd.Env = append(
		os.Environ(),
		"GIT_AUTHOR_NAME="+author.Name,
		"GIT_AUTHOR_EMAIL="+author.Email,
		"GIT_AUTHOR_DATE="+dateStr,
		"GIT_COMMITTER_NAME="+author.Name,
		"GIT_COMMITTER_EMAIL="+author.Email,
		"GIT_COMMITTER_DATE="+dateStr,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("commit-tree: %w: %s", err, stderr.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}

// UpdateHead moves HEAD to commitSHA.
func (e *ShellExecutor) UpdateHead(ctx context.Context, commitSHA string) error {
	_, err := e.run(ctx, nil, "update-ref", "HEAD", commitSHA)

	return err
}

// StageAll stages every modification to an already-tracked file, used by
// auto_stage_if_nothing_staged when the index is empty. It never stages new
// untracked files, matching `git add -u`'s own scope.
func (e *ShellExecutor) StageAll(ctx context.Context) error {
	_, err := e.run(ctx, nil, "add", "-u")

	return err
}

// Compile-time check that ShellExecutor implements Plumbing.
var _ Plumbing = (*ShellExecutor)(nil)

// abbreviate returns the first n characters of a hash, matching how
// short-sha designators are rendered in fixup/squash commit messages.
func abbreviate(sha string, n int) string {
	if len(sha) <= n {
		return sha
	}

	return sha[:n]
}

// parseIntDefault parses s as an int, returning def on any error.
func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}

	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}

	return v
}

// parseBoolDefault parses s as a bool, returning def on any error.
func parseBoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	default:
		return def
	}
}
