package main

import (
	"fmt"
	"io"
)

// DebugLogger provides structured debug output for server startup and
// request handling. It is disabled by default (when output is nil) and
// writes to the append-only debug log file when enabled.
type DebugLogger struct {
	output io.Writer
}

// NewDebugLogger creates a new debug logger. If output is nil, the logger
// is disabled and all methods are no-ops.
func NewDebugLogger(output io.Writer) *DebugLogger {
	return &DebugLogger{output: output}
}

// Enabled returns true if debug logging is enabled.
func (d *DebugLogger) Enabled() bool {
	return d != nil && d.output != nil
}

// Section outputs a section header.
func (d *DebugLogger) Section(name string) {
	if !d.Enabled() {
		return
	}

	_, _ = fmt.Fprintf(d.output, "\n=== %s ===\n", name)
}

// Logf outputs a formatted debug message.
func (d *DebugLogger) Logf(format string, args ...any) {
	if !d.Enabled() {
		return
	}

	_, _ = fmt.Fprintf(d.output, format+"\n", args...)
}

// Bulletf outputs an indented bullet point item.
func (d *DebugLogger) Bulletf(format string, args ...any) {
	if !d.Enabled() {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  • "+format+"\n", args...)
}

// ConfigFile outputs information about a config file.
func (d *DebugLogger) ConfigFile(label, path string, loaded bool) {
	if !d.Enabled() {
		return
	}

	if loaded {
		_, _ = fmt.Fprintf(d.output, "  %s: %s\n", label, path)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: (not found)\n", label)
	}
}

// PolicyRule outputs a single compiled policy rule.
func (d *DebugLogger) PolicyRule(kind, source string) {
	if !d.Enabled() {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  [%s] %s\n", kind, source)
}

// Check outputs the outcome of a single policy check.
func (d *DebugLogger) Check(commandLine string, allowed bool, matchedRule string) {
	if !d.Enabled() {
		return
	}

	verdict := "denied"
	if allowed {
		verdict = "allowed"
	}

	if matchedRule == "" {
		_, _ = fmt.Fprintf(d.output, "  %s: %s\n", verdict, commandLine)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: %s (matched %q)\n", verdict, commandLine, matchedRule)
	}
}

// WorktreeDiscovery outputs a worktree allowlist insertion.
func (d *DebugLogger) WorktreeDiscovery(path string) {
	if !d.Enabled() {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  discovered worktree: %s\n", path)
}

// Execution outputs a one-line summary of a completed execution.
func (d *DebugLogger) Execution(cmdline string, exitCode int, durationMs int64) {
	if !d.Enabled() {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  exit=%d duration=%dms: %s\n", exitCode, durationMs, cmdline)
}

// debugConfigLoading outputs which config files were loaded.
func debugConfigLoading(debug *DebugLogger, cfg *Config) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Config Loading")

	if len(cfg.LoadedConfigFiles) == 0 {
		debug.Logf("  No config files loaded (using defaults)")

		return
	}

	if path, ok := cfg.LoadedConfigFiles["global"]; ok {
		debug.ConfigFile("Global config", path, true)
	} else {
		debug.ConfigFile("Global config", "", false)
	}

	if path, ok := cfg.LoadedConfigFiles["explicit"]; ok {
		debug.ConfigFile("Explicit config (--config)", path, true)
	} else if path, ok := cfg.LoadedConfigFiles["project"]; ok {
		debug.ConfigFile("Project config", path, true)
	} else {
		debug.ConfigFile("Project config", "", false)
	}
}

// debugPolicy outputs the compiled allow/deny rule sets.
func debugPolicy(debug *DebugLogger, cfg *Config) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Policy")

	for _, pattern := range cfg.Policy.DenyPatterns {
		debug.PolicyRule("deny", pattern)
	}

	for _, pattern := range cfg.Policy.AllowPatterns {
		debug.PolicyRule("allow", pattern)
	}

	debug.Logf("  worktree detection: %t", cfg.Policy.WorktreeDetectionEnabled)
	debug.Logf("  timeout ceiling: %dms", cfg.Policy.TimeoutCeilingMs)
	debug.Logf("  max output ceiling: %d bytes", cfg.Policy.MaxOutputBytesCeiling)
}
