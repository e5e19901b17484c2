package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateCWD_WithinSandboxRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	registry := NewWorktreeRegistry()

	got, err := ValidateCWD(nested, root, registry, true)
	if err != nil {
		t.Fatalf("ValidateCWD: %v", err)
	}
	if got.WorktreeUsed {
		t.Error("WorktreeUsed = true, want false")
	}
}

func TestValidateCWD_OutsideSandboxRootRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	registry := NewWorktreeRegistry()

	_, err := ValidateCWD(outside, root, registry, true)
	if err == nil {
		t.Fatal("expected error for cwd outside sandbox root")
	}
}

func TestValidateCWD_NotAccessible(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "does-not-exist")

	registry := NewWorktreeRegistry()

	_, err := ValidateCWD(missing, root, registry, true)
	if err == nil {
		t.Fatal("expected error for nonexistent cwd")
	}
}

func TestValidateCWD_WorktreeAllowlistReused(t *testing.T) {
	root := t.TempDir()
	worktree := t.TempDir()

	registry := NewWorktreeRegistry()
	registry.AddToAllowlist(worktree)

	got, err := ValidateCWD(worktree, root, registry, true)
	if err != nil {
		t.Fatalf("ValidateCWD: %v", err)
	}
	if !got.WorktreeUsed {
		t.Error("WorktreeUsed = false, want true")
	}
}

func TestValidateCWD_WorktreeDetectionDisabled(t *testing.T) {
	sandboxParent := t.TempDir()
	root := filepath.Join(sandboxParent, "myproject")
	worktree := filepath.Join(sandboxParent, "myproject-feature")

	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(worktree, 0o755); err != nil {
		t.Fatal(err)
	}

	registry := NewWorktreeRegistry()
	registry.runList = func(sandboxRoot string) []WorktreeEntry {
		return []WorktreeEntry{{Path: worktree}}
	}

	_, err := ValidateCWD(worktree, root, registry, false)
	if err == nil {
		t.Fatal("expected error: worktree detection disabled")
	}
}
