package main

import (
	"context"
	"strings"
	"testing"

	"github.com/shemcp/shemcp/internal/engine"
)

func TestExecute_SimpleCommand(t *testing.T) {
	result, err := Execute(context.Background(), ExecuteInput{
		Argv0:          "echo",
		Argv:           []string{"hello"},
		Dir:            t.TempDir(),
		TimeoutMs:      5000,
		MaxOutputBytes: engine.DefaultLimitBytes,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if strings.TrimSpace(string(result.StdoutTail)) != "hello" {
		t.Errorf("StdoutTail = %q, want %q", result.StdoutTail, "hello")
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	result, err := Execute(context.Background(), ExecuteInput{
		Argv0:          "sh",
		Argv:           []string{"-c", "exit 7"},
		Dir:            t.TempDir(),
		TimeoutMs:      5000,
		MaxOutputBytes: engine.DefaultLimitBytes,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", result.ExitCode)
	}
}

func TestExecute_TimeoutKillsChild(t *testing.T) {
	result, err := Execute(context.Background(), ExecuteInput{
		Argv0:          "sleep",
		Argv:           []string{"5"},
		Dir:            t.TempDir(),
		TimeoutMs:      100,
		MaxOutputBytes: engine.DefaultLimitBytes,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Signal == "" {
		t.Error("expected a signal to be reported for a timed-out child")
	}
}

func TestExecute_ErrorModeOnLineOverflow(t *testing.T) {
	result, err := Execute(context.Background(), ExecuteInput{
		Argv0:          "sh",
		Argv:           []string{"-c", "printf 'a\\nb\\nc\\n'"},
		Dir:            t.TempDir(),
		TimeoutMs:      5000,
		MaxOutputBytes: engine.DefaultLimitBytes,
		LimitBytes:     engine.DefaultLimitBytes,
		LimitLines:     2,
		OnLargeOutput:  OnLargeOutputError,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.LargeOutputError == nil {
		t.Fatal("expected LargeOutputError for a stream counted as 4 lines over a 2-line budget")
	}
	if !strings.Contains(result.LargeOutputError.Error(), "lines on stdout") {
		t.Errorf("LargeOutputError = %q, want it to mention lines on stdout", result.LargeOutputError)
	}
}

func TestExecute_SpillModeOverLineBudgetIsNotAnError(t *testing.T) {
	result, err := Execute(context.Background(), ExecuteInput{
		Argv0:          "sh",
		Argv:           []string{"-c", "printf 'a\\nb\\nc\\n'"},
		Dir:            t.TempDir(),
		TimeoutMs:      5000,
		MaxOutputBytes: engine.DefaultLimitBytes,
		LimitBytes:     engine.DefaultLimitBytes,
		LimitLines:     2,
		OnLargeOutput:  OnLargeOutputSpill,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.LargeOutputError != nil {
		t.Errorf("LargeOutputError = %v, want nil outside error mode", result.LargeOutputError)
	}
	if result.StdoutTotalLines != 4 {
		t.Errorf("StdoutTotalLines = %d, want 4 (engine.CountLines counts the trailing empty segment after the final newline)", result.StdoutTotalLines)
	}
}

func TestStreamCollector_FrontBiasedCap(t *testing.T) {
	c, err := newStreamCollector(5, "")
	if err != nil {
		t.Fatalf("newStreamCollector: %v", err)
	}

	_, _ = c.Write([]byte("abcdefghij"))

	if string(c.Tail()) != "abcde" {
		t.Errorf("Tail() = %q, want %q", c.Tail(), "abcde")
	}
	if c.Total() != 10 {
		t.Errorf("Total() = %d, want 10", c.Total())
	}
}

func TestStreamCollector_SpillPathOnlyRetainedIfWritten(t *testing.T) {
	dir := t.TempDir()

	c, err := newStreamCollector(100, dir+"/exec-test.out")
	if err != nil {
		t.Fatalf("newStreamCollector: %v", err)
	}
	defer c.Close()

	if c.SpillPathIfUsed() != "" {
		t.Error("expected empty spill path before any write")
	}

	_, _ = c.Write([]byte("x"))

	if c.SpillPathIfUsed() == "" {
		t.Error("expected non-empty spill path after a write")
	}
}

func TestBuildShellWrapperArgv_Bash(t *testing.T) {
	norm, err := engine.Normalize("bash", []string{"-c", "git status"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	argv0, argv := buildShellWrapperArgv(norm)

	if argv0 != "/bin/bash" {
		t.Errorf("argv0 = %q, want /bin/bash", argv0)
	}

	joined := strings.Join(argv, " ")
	if !strings.Contains(joined, "-o pipefail -o errexit") {
		t.Errorf("argv = %v, missing strict flags", argv)
	}
	if !strings.HasSuffix(joined, "git status") {
		t.Errorf("argv = %v, want trailing command string", argv)
	}
}

func TestBuildShellWrapperArgv_ShUsesDashE(t *testing.T) {
	norm, err := engine.Normalize("sh", []string{"-c", "echo hi"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	argv0, argv := buildShellWrapperArgv(norm)

	if argv0 != "/bin/sh" {
		t.Errorf("argv0 = %q, want /bin/sh", argv0)
	}
	if !strings.Contains(strings.Join(argv, " "), "-e") {
		t.Errorf("argv = %v, missing -e", argv)
	}
}
