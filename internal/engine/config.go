package engine

import "fmt"

// PolicyConfig is the fully-resolved, process-lifetime-immutable
// configuration that backs a Policy plus the executor ceilings that aren't
// themselves regex-based.
type PolicyConfig struct {
	SandboxRoot              string
	WorktreeDetectionEnabled bool
	AllowPatterns            []string
	DenyPatterns             []string
	TimeoutCeilingMs         int64
	MaxOutputBytesCeiling    int64
	EnvAllowlist             []string
}

// DefaultAllowPatterns is the curated set of common development tools
// permitted when no configuration file overrides it.
func DefaultAllowPatterns() []string {
	return []string{
		`^git\s`,
		`^go\s`,
		`^npm\s`,
		`^yarn\s`,
		`^pnpm\s`,
		`^make\s`,
		`^ls(\s|$)`,
		`^cat\s`,
		`^grep\s`,
		`^find\s`,
		`^echo\s`,
		`^pwd$`,
		`^cd\s`,
	}
}

// DefaultDenyPatterns is the curated set of commands that push to protected
// branches or otherwise mutate shared state destructively.
func DefaultDenyPatterns() []string {
	return []string{
		`git\s+push\s+.*\s+(origin\s+)?(main|master)\b`,
		`git\s+push\s+--force`,
		`git\s+push\s+-f\b`,
		`rm\s+-rf\s+/`,
	}
}

// DefaultEnvAllowlist is the curated set of environment variable names
// forwarded to children when no configuration file overrides it.
func DefaultEnvAllowlist() []string {
	return []string{"PATH", "HOME", "LANG", "LC_ALL", "TERM", "USER", "SHELL"}
}

// DefaultPolicyConfig returns the curated configuration used when no config
// file is present, with sandboxRoot already resolved by C1.
func DefaultPolicyConfig(sandboxRoot string) PolicyConfig {
	return PolicyConfig{
		SandboxRoot:              sandboxRoot,
		WorktreeDetectionEnabled: true,
		AllowPatterns:            DefaultAllowPatterns(),
		DenyPatterns:             DefaultDenyPatterns(),
		TimeoutCeilingMs:         300000,
		MaxOutputBytesCeiling:    10000000,
		EnvAllowlist:             DefaultEnvAllowlist(),
	}
}

// BuildPolicy compiles cfg's allow/deny patterns into a ready-to-use Policy.
func (cfg PolicyConfig) BuildPolicy() (*Policy, error) {
	policy, err := NewPolicy(cfg.DenyPatterns, cfg.AllowPatterns)
	if err != nil {
		return nil, fmt.Errorf("building policy: %w", err)
	}

	return policy, nil
}

// FilterEnv returns the subset of env whose keys appear in cfg.EnvAllowlist
// and whose values are defined (present in the map).
func (cfg PolicyConfig) FilterEnv(env map[string]string) map[string]string {
	filtered := make(map[string]string)

	for _, name := range cfg.EnvAllowlist {
		if value, ok := env[name]; ok {
			filtered[name] = value
		}
	}

	return filtered
}
