package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mjpitz/absorb/internal/attribution"
	"github.com/mjpitz/absorb/internal/errkind"
	"github.com/mjpitz/absorb/internal/fixup"
	"github.com/mjpitz/absorb/internal/gitrepo"
	"github.com/mjpitz/absorb/internal/hunkdiff"
	"github.com/mjpitz/absorb/internal/logging"
	"github.com/mjpitz/absorb/internal/stack"
)

// absorbFlags mirrors the CLI surface from the design's external-interface
// table; each overrides its matching absorb.* config key when explicitly
// set.
type absorbFlags struct {
	base              string
	dryRun            bool
	andRebase         bool
	force             bool
	forceAuthor       bool
	forceDetach       bool
	oneFixupPerCommit bool
	squash            bool
	wholeFile         bool
	message           string
	verbose           bool
}

// registerAbsorbFlags attaches the core engine's flags (the design's
// external-interface table) to the root command and wires its RunE to
// runAbsorb. Kept separate from NewRootCmd only so the flag list and the
// run logic sit together.
func registerAbsorbFlags(cmd *cobra.Command) {
	var flags absorbFlags

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runAbsorb(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags, args)
	}

	cmd.Flags().StringVarP(&flags.base, "base", "b", "", "override the farthest stack boundary")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "suppress all writes; print planned fixups")
	cmd.Flags().BoolVarP(&flags.andRebase, "and-rebase", "r", false, "run autosquash rebase after success")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "equivalent to setting all --force-* flags")
	cmd.Flags().BoolVar(&flags.forceAuthor, "force-author", false, "accept non-self-authored candidates")
	cmd.Flags().BoolVar(&flags.forceDetach, "force-detach", false, "allow detached HEAD")
	cmd.Flags().BoolVarP(
		&flags.oneFixupPerCommit, "one-fixup-per-commit", "F", false, "aggregate intents per target",
	)
	cmd.Flags().BoolVarP(&flags.squash, "squash", "s", false, "emit squash! instead of fixup!")
	cmd.Flags().BoolVarP(
		&flags.wholeFile, "whole-file", "w", false, "treat any commit touching the path as absorbing",
	)
	cmd.Flags().StringVarP(&flags.message, "message", "m", "", "body appended to each emitted commit message")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")
}

func runAbsorb(
	ctx context.Context, stdout, stderr io.Writer, flags absorbFlags, rebaseArgs []string,
) error {
	cfg := getConfig(ctx)
	log := logging.New(stderr, flags.verbose)

	repo, err := gitrepo.Open(resolveWorkDir(cfg.WorkDir))
	if err != nil {
		return errkind.Wrap(errkind.RepositoryUnavailable, "open repository", err)
	}

	shell := repo.Shell()

	absorbCfg, err := gitrepo.LoadAbsorbConfig(ctx, shell)
	if err != nil {
		return errkind.Wrap(errkind.RepositoryUnavailable, "load absorb config", err)
	}

	opts := resolveOptions(flags, absorbCfg)

	stagedDiff, err := loadStagedDiff(ctx, shell, opts, log)
	if err != nil {
		return err
	}

	if stagedDiff == nil {
		// loadStagedDiff already logged the empty-input warning.
		return nil
	}

	st, err := stack.Select(ctx, repo, stack.Options{
		Base: flags.base, MaxStack: opts.maxStack,
		ForceAuthor: opts.forceAuthor, ForceDetach: opts.forceDetach,
	})
	if err != nil {
		return err
	}

	if st.HitStackLimit {
		log.Warnf("reached the configured stack limit (%d) before finding an explicit base", opts.maxStack)
	}

	if len(st.Commits) == 0 {
		log.Warnf("no eligible candidate commits; nothing to absorb")

		return nil
	}

	result, err := attribution.Run(ctx, repo, st, stagedDiff, attribution.Options{WholeFile: flags.wholeFile}, log)
	if err != nil {
		return errkind.Wrap(errkind.RepositoryUnavailable, "attribute staged hunks", err)
	}

	if len(result.Intents) == 0 {
		log.Infof("nothing could be absorbed; %d hunk(s) left staged", len(result.Unabsorbed))

		return nil
	}

	identity, err := shell.UserIdentity(ctx)
	if err != nil {
		return errkind.Wrap(errkind.RepositoryUnavailable, "read user identity", err)
	}

	designators := fixup.BuildDesignators(st, opts.fixupTargetAlwaysSHA)

	plans, err := fixup.Emit(ctx, repo, result, designators, identity, fixup.Options{
		OneFixupPerCommit:    opts.oneFixupPerCommit,
		Squash:               flags.squash || opts.createSquashCommits,
		FixupTargetAlwaysSHA: opts.fixupTargetAlwaysSHA,
		Message:              flags.message,
		DryRun:               flags.dryRun,
	})
	if err != nil {
		return errkind.Wrap(errkind.WriteFailure, "emit fixup commits", err)
	}

	reportPlans(stdout, flags.dryRun, plans)

	if flags.dryRun {
		return nil
	}

	if flags.andRebase {
		return runAndRebase(ctx, stdout, shell, st, rebaseArgs, log)
	}

	return nil
}

// absorbOptions is flags merged with the repository's absorb.* config,
// flags taking precedence whenever they diverge from the config default.
type absorbOptions struct {
	maxStack             int
	forceAuthor          bool
	forceDetach          bool
	oneFixupPerCommit    bool
	autoStageIfNothing   bool
	fixupTargetAlwaysSHA bool
	createSquashCommits  bool
}

func resolveOptions(flags absorbFlags, cfg gitrepo.AbsorbConfig) absorbOptions {
	return absorbOptions{
		maxStack:             cfg.MaxStack,
		forceAuthor:          flags.forceAuthor || flags.force || cfg.ForceAuthor,
		forceDetach:          flags.forceDetach || flags.force || cfg.ForceDetach,
		oneFixupPerCommit:    flags.oneFixupPerCommit || cfg.OneFixupPerCommit,
		autoStageIfNothing:   cfg.AutoStageIfNothingStaged,
		fixupTargetAlwaysSHA: cfg.FixupTargetAlwaysSHA,
		createSquashCommits:  cfg.CreateSquashCommits,
	}
}

// loadStagedDiff returns the parsed staged diff, auto-staging tracked
// modifications first when the index is empty and configured to do so. A
// nil, nil return means the empty-index warning was already logged and the
// caller should return success.
func loadStagedDiff(
	ctx context.Context, shell *gitrepo.ShellExecutor, opts absorbOptions, log *logging.Logger,
) (*hunkdiff.ParsedDiff, error) {
	diffText, err := shell.DiffCached(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.RepositoryUnavailable, "read staged diff", err)
	}

	if strings.TrimSpace(diffText) == "" {
		if !opts.autoStageIfNothing {
			log.Warnf("%s", errkind.New(errkind.EmptyInput, "no staged changes; nothing to absorb"))

			return nil, nil
		}

		if err := shell.StageAll(ctx); err != nil {
			return nil, errkind.Wrap(errkind.RepositoryUnavailable, "auto-stage tracked modifications", err)
		}

		diffText, err = shell.DiffCached(ctx)
		if err != nil {
			return nil, errkind.Wrap(errkind.RepositoryUnavailable, "read staged diff", err)
		}

		if strings.TrimSpace(diffText) == "" {
			log.Warnf("%s", errkind.New(errkind.EmptyInput, "no staged or modified changes; nothing to absorb"))

			return nil, nil
		}
	}

	parsed, err := hunkdiff.Parse(diffText)
	if err != nil {
		return nil, errkind.Wrap(errkind.RepositoryUnavailable, "parse staged diff", err)
	}

	return parsed, nil
}

func reportPlans(w io.Writer, dryRun bool, plans []fixup.Plan) {
	verb := "absorbed"
	if dryRun {
		verb = "would absorb"
	}

	for _, p := range plans {
		designator := strings.TrimPrefix(strings.TrimPrefix(p.Header, "fixup! "), "squash! ")
		fmt.Fprintf(w, "%s %s (targeting %s) on %s\n", verb, designator, p.TargetCommitID[:7], strings.Join(p.Paths, ", "))
	}
}

func runAndRebase(
	ctx context.Context, w io.Writer, shell *gitrepo.ShellExecutor, st *stack.Stack, rebaseArgs []string, log *logging.Logger,
) error {
	onto := st.Commits[len(st.Commits)-1].ParentID

	if err := runRebaseAutosquash(ctx, w, onto, false, log.Verbose, rebaseArgs); err != nil {
		log.Warnf("autosquash rebase failed, fixup commits remain on HEAD for manual recovery: %v", err)

		return errkind.Wrap(errkind.WriteFailure, "autosquash rebase", err)
	}

	return nil
}

// resolveWorkDir returns dir if set, else the process's own working
// directory, matching ShellExecutor's own "empty WorkDir means cwd"
// convention.
func resolveWorkDir(dir string) string {
	if dir != "" {
		return dir
	}

	return "."
}
