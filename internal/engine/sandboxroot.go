package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// Names of the environment variables consulted, in precedence order, when
// resolving the sandbox root at startup. The first one that is set and
// refers to an existing directory wins.
const (
	EnvSandboxRootPrimary   = "SHEMCP_SANDBOX_ROOT"
	EnvSandboxRootSecondary = "SHEMCP_ROOT"
)

// ResolveSandboxRoot picks the process-lifetime sandbox root with strict
// precedence:
//
//  1. EnvSandboxRootPrimary, then EnvSandboxRootSecondary, if set and
//     referring to an existing directory.
//  2. The nearest ancestor of cwd containing a .git entry (file or
//     directory, to also recognize worktree checkouts).
//  3. cwd itself.
//
// The result is always absolute and symlink-resolved. Callers must invoke
// this exactly once at startup and treat the result as immutable for the
// life of the process; changing the sandbox root at runtime is out of scope.
func ResolveSandboxRoot(env map[string]string, cwd string) (string, error) {
	if !filepath.IsAbs(cwd) {
		return "", fmt.Errorf("sandbox root: cwd %q is not absolute", cwd)
	}

	for _, name := range []string{EnvSandboxRootPrimary, EnvSandboxRootSecondary} {
		candidate := env[name]
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return canonicalize(candidate)
		}
	}

	if gitRoot := nearestGitAncestor(cwd); gitRoot != "" {
		return canonicalize(gitRoot)
	}

	return canonicalize(cwd)
}

// nearestGitAncestor walks from dir up to "/" looking for a .git entry
// (directory for normal repos, file for worktree checkouts). Returns "" if
// none is found.
func nearestGitAncestor(dir string) string {
	current := filepath.Clean(dir)

	for {
		gitPath := filepath.Join(current, ".git")

		if _, err := os.Lstat(gitPath); err == nil {
			return current
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}

		current = parent
	}
}

// canonicalize makes path absolute and resolves all symlinks.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("sandbox root: resolving %q: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("sandbox root: resolving symlinks for %q: %w", abs, err)
	}

	return resolved, nil
}
