package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/shemcp/shemcp/internal/engine"
)

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	SandboxRoot string
	ConfigPath  string
	EnvVars     map[string]string
}

// fileConfig mirrors the TOML configuration surface described for the
// server: allow/deny regexes, ceilings, the environment-name allowlist, and
// the worktree-detection flag. All fields are optional; zero values mean
// "use the default for this field".
type fileConfig struct {
	Allow              []string `toml:"allow"`
	Deny               []string `toml:"deny"`
	TimeoutCeilingSec  int64    `toml:"timeout_ceiling_seconds"`
	MaxOutputBytesCeil int64    `toml:"max_output_bytes_ceiling"`
	EnvAllowlist       []string `toml:"env_allowlist"`
	WorktreeDetection  *bool    `toml:"worktree_detection"`
}

// Config is the fully-resolved server configuration, combining the engine's
// PolicyConfig with which files contributed to it (for debug output).
type Config struct {
	Policy            engine.PolicyConfig
	LoadedConfigFiles map[string]string
}

// LoadConfig loads configuration with the following precedence (later
// overrides earlier):
//
//  1. Built-in defaults (engine.DefaultPolicyConfig).
//  2. Global config: $XDG_CONFIG_HOME/shemcp/config.toml (defaults to
//     ~/.config/shemcp/config.toml) - loaded if present.
//  3. Project config at <sandbox root>/.shemcp.toml, or the explicit
//     --config path if one was given (not both).
//
// Config files are optional at every layer; a missing file is silently
// skipped. An explicit --config path that doesn't exist is an error.
func LoadConfig(input LoadConfigInput) (Config, error) {
	cfg := Config{
		Policy:            engine.DefaultPolicyConfig(input.SandboxRoot),
		LoadedConfigFiles: make(map[string]string),
	}

	globalPath, err := userConfigPath(input.EnvVars)
	if err == nil {
		if fc, loadErr := parseConfigFileIfExists(globalPath); loadErr != nil {
			return Config{}, loadErr
		} else if fc != nil {
			applyFileConfig(&cfg.Policy, fc)
			cfg.LoadedConfigFiles["global"] = globalPath
		}
	}

	if input.ConfigPath != "" {
		fc, loadErr := parseConfigFile(input.ConfigPath)
		if loadErr != nil {
			return Config{}, loadErr
		}

		applyFileConfig(&cfg.Policy, fc)
		cfg.LoadedConfigFiles["explicit"] = input.ConfigPath
	} else {
		projectPath := filepath.Join(input.SandboxRoot, ".shemcp.toml")

		if fc, loadErr := parseConfigFileIfExists(projectPath); loadErr != nil {
			return Config{}, loadErr
		} else if fc != nil {
			applyFileConfig(&cfg.Policy, fc)
			cfg.LoadedConfigFiles["project"] = projectPath
		}
	}

	return cfg, nil
}

// applyFileConfig overlays non-zero fields from fc onto policy.
func applyFileConfig(policy *engine.PolicyConfig, fc *fileConfig) {
	if len(fc.Allow) > 0 {
		policy.AllowPatterns = fc.Allow
	}
	if len(fc.Deny) > 0 {
		policy.DenyPatterns = fc.Deny
	}
	if fc.TimeoutCeilingSec > 0 {
		policy.TimeoutCeilingMs = fc.TimeoutCeilingSec * 1000
	}
	if fc.MaxOutputBytesCeil > 0 {
		policy.MaxOutputBytesCeiling = fc.MaxOutputBytesCeil
	}
	if len(fc.EnvAllowlist) > 0 {
		policy.EnvAllowlist = fc.EnvAllowlist
	}
	if fc.WorktreeDetection != nil {
		policy.WorktreeDetectionEnabled = *fc.WorktreeDetection
	}
}

// parseConfigFileIfExists returns nil, nil if path does not exist.
func parseConfigFileIfExists(path string) (*fileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("checking config %s: %w", path, err)
	}

	fc, err := parseConfigFile(path)
	if err != nil {
		return nil, err
	}

	return fc, nil
}

func parseConfigFile(path string) (*fileConfig, error) {
	var fc fileConfig

	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown field %q", path, undecoded[0].String())
	}

	return &fc, nil
}

// userConfigPath returns $XDG_CONFIG_HOME/shemcp/config.toml, falling back
// to ~/.config/shemcp/config.toml.
func userConfigPath(env map[string]string) (string, error) {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "shemcp", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, ".config", "shemcp", "config.toml"), nil
}
