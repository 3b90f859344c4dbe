// Package commands contains the CLI command implementations.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/mjpitz/absorb/internal/errkind"
)

// configKey is the context key for runtime config.
type configKey struct{}

// Config holds runtime configuration for commands.
type Config struct {
	WorkDir string
	JSONOut bool
}

// getConfig retrieves config from context, or returns defaults.
func getConfig(ctx context.Context) Config {
	if cfg, ok := ctx.Value(configKey{}).(Config); ok {
		return cfg
	}

	return Config{}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var (
		workDir string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:     "absorb [-- <rebase args>]",
		Short:   "Absorb staged changes into the commits that introduced them",
		Version: Version,
		Long: `absorb walks your staged edits and, for each one, finds the commit on
the current branch that introduced the surrounding lines. It then emits a
fixup! (or, with --squash, squash!) commit for every commit it can attribute
a change to. Pass --and-rebase to immediately autosquash them into place.

A hunk that cannot be safely attributed to any commit in the stack is left
staged and reported as a warning; it never blocks the hunks that could be
absorbed.

The supplementary subcommands below expose the same line-level staging and
rebase plumbing absorb's engine is built on, for scripting around it.

Examples:
  # Absorb staged changes, leaving the fixup commits for later squashing
  absorb

  # Absorb and immediately autosquash
  absorb --and-rebase

  # See what would happen without writing anything
  absorb --dry-run -v

  # Only consider commits back to a known-good point
  absorb --base origin/main

  # Show all changes with line numbers
  absorb diff

  # Stage specific lines from a file
  absorb stage main.go:10-20`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Store config in context for subcommands.
			cfg := Config{
				WorkDir: workDir,
				JSONOut: jsonOut,
			}
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			cmd.SetContext(ctx)
		},
	}

	cmd.PersistentFlags().StringVarP(
		&workDir, "dir", "C", "",
		"run as if git was started in this directory",
	)
	cmd.PersistentFlags().BoolVar(
		&jsonOut, "json", false,
		"output in JSON format (for machine consumption)",
	)

	registerAbsorbFlags(cmd)

	// Add subcommands.
	cmd.AddCommand(NewDiffCmd())
	cmd.AddCommand(NewStageCmd())
	cmd.AddCommand(NewPreviewCmd())
	cmd.AddCommand(NewCommitCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewApplyPatchCmd())
	cmd.AddCommand(NewRebaseCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command, translating the error's errkind.Kind (when
// present) into the exit-code policy from the design: warnings exit 0,
// everything else exits 1.
func Execute() {
	err := NewRootCmd().Execute()
	os.Exit(errkind.ExitCode(err))
}
