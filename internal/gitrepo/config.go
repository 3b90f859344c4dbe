package gitrepo

import "context"

// AbsorbConfig holds the absorb.* configuration keys, read from git config
// with defaults matching the documented flag defaults.
type AbsorbConfig struct {
	MaxStack                 int
	ForceAuthor               bool
	ForceDetach               bool
	OneFixupPerCommit         bool
	AutoStageIfNothingStaged  bool
	FixupTargetAlwaysSHA      bool
	CreateSquashCommits       bool
}

// DefaultAbsorbConfig returns the configuration absorb uses when no config
// section and no flags are present.
func DefaultAbsorbConfig() AbsorbConfig {
	return AbsorbConfig{
		MaxStack: 10,
	}
}

// LoadAbsorbConfig reads the "absorb" config section through p, applying
// documented defaults for any key that is absent.
func LoadAbsorbConfig(ctx context.Context, p Plumbing) (AbsorbConfig, error) {
	raw, err := p.ConfigSection(ctx, "absorb")
	if err != nil {
		return AbsorbConfig{}, err
	}

	cfg := DefaultAbsorbConfig()
	cfg.MaxStack = parseIntDefault(raw["maxstack"], cfg.MaxStack)
	cfg.ForceAuthor = parseBoolDefault(raw["forceauthor"], cfg.ForceAuthor)
	cfg.ForceDetach = parseBoolDefault(raw["forcedetach"], cfg.ForceDetach)
	cfg.OneFixupPerCommit = parseBoolDefault(raw["onefixuppercommit"], cfg.OneFixupPerCommit)
	cfg.AutoStageIfNothingStaged = parseBoolDefault(raw["autostageifnothingstaged"], cfg.AutoStageIfNothingStaged)
	cfg.FixupTargetAlwaysSHA = parseBoolDefault(raw["fixuptargetalwayssha"], cfg.FixupTargetAlwaysSHA)
	cfg.CreateSquashCommits = parseBoolDefault(raw["createsquashcommits"], cfg.CreateSquashCommits)

	return cfg, nil
}
