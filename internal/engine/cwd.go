package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// CWDValidationResult is the outcome of validating a candidate working
// directory against the sandbox root and the session worktree allowlist.
type CWDValidationResult struct {
	ResolvedCWD   string
	BoundaryRoot  string
	DiscoveredNew bool
	WorktreeUsed  bool
}

// ValidateCWD implements the C7 decision procedure: lexical containment
// against the sandbox root, then the session allowlist, then worktree
// discovery via registry, followed by an accessibility and symlink-boundary
// check. worktreeDetectionEnabled gates step 4 of the spec's algorithm.
func ValidateCWD(candidateAbs, sandboxRoot string, registry *WorktreeRegistry, worktreeDetectionEnabled bool) (CWDValidationResult, error) {
	candidateAbs = filepath.Clean(candidateAbs)
	sandboxRoot = filepath.Clean(sandboxRoot)

	boundaryRoot := ""
	discoveredNew := false
	worktreeUsed := false

	switch {
	case lexicallyContained(candidateAbs, sandboxRoot):
		boundaryRoot = sandboxRoot
	default:
		if root, ok := registry.IsInAllowlist(candidateAbs); ok {
			boundaryRoot = root
			worktreeUsed = true
		} else if worktreeDetectionEnabled {
			if root, ok := registry.ValidateWorktreePath(candidateAbs, sandboxRoot); ok {
				registry.AddToAllowlist(root)
				boundaryRoot = root
				worktreeUsed = true
				discoveredNew = true
			}
		}
	}

	if boundaryRoot == "" {
		return CWDValidationResult{}, fmt.Errorf("cwd not allowed: %s (must be within %s)", candidateAbs, sandboxRoot)
	}

	if err := unix.Access(candidateAbs, unix.R_OK|unix.X_OK); err != nil {
		return CWDValidationResult{}, fmt.Errorf("cwd not accessible: %s", candidateAbs)
	}

	realCandidate, err := filepath.EvalSymlinks(candidateAbs)
	if err != nil {
		return CWDValidationResult{}, fmt.Errorf("cwd not accessible: %s", candidateAbs)
	}

	realBoundary, err := filepath.EvalSymlinks(boundaryRoot)
	if err != nil {
		return CWDValidationResult{}, fmt.Errorf("cwd not accessible: %s", candidateAbs)
	}

	rel, err := filepath.Rel(realBoundary, realCandidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return CWDValidationResult{}, fmt.Errorf("cwd not allowed: %s (resolved outside sandbox root)", candidateAbs)
	}

	return CWDValidationResult{
		ResolvedCWD:   realCandidate,
		BoundaryRoot:  realBoundary,
		DiscoveredNew: discoveredNew,
		WorktreeUsed:  worktreeUsed,
	}, nil
}

// lexicallyContained reports whether candidate equals root, or root followed
// by a path separator, purely lexically (no symlink resolution).
func lexicallyContained(candidate, root string) bool {
	if candidate == root {
		return true
	}

	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}
