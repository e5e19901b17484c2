package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/shemcp/shemcp/internal/engine"
)

// OnLargeOutput is the overflow policy for a single execution's stdout and
// stderr streams.
type OnLargeOutput string

const (
	OnLargeOutputSpill    OnLargeOutput = "spill"
	OnLargeOutputTruncate OnLargeOutput = "truncate"
	OnLargeOutputError    OnLargeOutput = "error"
)

// ExecuteInput bundles everything the executor needs for one shell_exec
// call, after normalization, policy, and cwd validation have all already
// passed.
type ExecuteInput struct {
	// Argv0/Argv are the process to actually spawn: either the original
	// cmd+args, or /bin/bash or /bin/sh with reassembled flags for a
	// wrapper invocation.
	Argv0 string
	Argv  []string

	Dir       string
	Env       map[string]string
	TimeoutMs int64

	// MaxOutputBytes is the effective per-stream output ceiling (the
	// request's max_output_bytes capped at the policy ceiling), used to size
	// the in-memory retention cap alongside LimitBytes.
	MaxOutputBytes int64

	// LimitBytes/LimitLines are the requested page dimensions (page.limit_bytes,
	// page.limit_lines). They decide whether truncate/error mode considers a
	// stream overflowed.
	LimitBytes    int64
	LimitLines    int64
	OnLargeOutput OnLargeOutput

	SpillStore *engine.SpillStore
}

// ExecuteResult is the raw outcome of running the child, before pagination
// is applied to produce the tool response.
type ExecuteResult struct {
	ExitCode   int
	Signal     string
	DurationMs int64

	StdoutTotalBytes int64
	StderrTotalBytes int64
	StdoutTotalLines int64
	StderrTotalLines int64

	// StdoutTail/StderrTail hold up to the in-memory retention cap, always
	// the FIRST bytes of the stream (front-biased, no sliding window). Spill
	// mode pages from the full file on disk instead; a non-spill page whose
	// cursor lies past the retained prefix gets a short or empty chunk.
	StdoutTail []byte
	StderrTail []byte

	StdoutSpillPath string
	StderrSpillPath string

	LargeOutputError error
}

// buildShellWrapperArgv assembles the argv for a detected shell-wrapper
// invocation per C9: user flags before command, -l if login, shell-specific
// strict flags, -c, the effective command string (with any env prefix
// re-prepended so the shell performs the assignment itself), then trailing
// positional args.
func buildShellWrapperArgv(norm engine.NormalizedRequest) (argv0 string, argv []string) {
	w := norm.Wrapper

	var shellPath string
	var strictFlags []string

	switch w.Shell {
	case "bash":
		shellPath = "/bin/bash"
		strictFlags = []string{"-o", "pipefail", "-o", "errexit"}
	default:
		shellPath = "/bin/sh"
		strictFlags = []string{"-e"}
	}

	argv = append(argv, w.FlagsBeforeCommand...)
	if w.ShouldUseLogin {
		argv = append(argv, "-l")
	}
	argv = append(argv, strictFlags...)
	argv = append(argv, "-c")

	commandString := w.CommandString
	if len(norm.EnvPrefix.EnvPairs) > 0 {
		commandString = engine.ReconstructCommandLine(joinEnvPrefix(norm.EnvPrefix.EnvPairs), []string{commandString})
	}
	argv = append(argv, commandString)

	if w.ArgsAfterCommandIndex < len(norm.EnvPrefix.Args) {
		argv = append(argv, norm.EnvPrefix.Args[w.ArgsAfterCommandIndex:]...)
	}

	return shellPath, argv
}

func joinEnvPrefix(pairs []string) string {
	line := ""
	for i, pair := range pairs {
		if i > 0 {
			line += " "
		}
		line += pair
	}

	return line
}

// Execute spawns and waits for the child described by in, enforcing the
// timeout by killing the whole process group, and collecting stdout/stderr
// under the configured overflow policy.
func Execute(ctx context.Context, in ExecuteInput) (ExecuteResult, error) {
	limitBytes := in.LimitBytes
	if limitBytes < 1 {
		limitBytes = engine.DefaultLimitBytes
	}

	limitLines := in.LimitLines
	if limitLines < 1 {
		limitLines = engine.DefaultLimitLines
	}

	// Two budgets apply per stream: memCap bounds what's retained in
	// memory for a non-spill page, limitBytes/limitLines decide overflow for
	// truncate/error mode.
	memCap := 2 * limitBytes
	if in.MaxOutputBytes > memCap {
		memCap = in.MaxOutputBytes
	}

	timeout := time.Duration(in.TimeoutMs) * time.Millisecond

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, in.Argv0, in.Argv...)
	cmd.Dir = in.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Env = make([]string, 0, len(in.Env))
	for k, v := range in.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdoutPath, stderrPath string
	if in.OnLargeOutput == OnLargeOutputSpill && in.SpillStore != nil {
		stdoutPath, stderrPath = in.SpillStore.NewExecutionPaths()
	}

	stdoutCollector, err := newStreamCollector(memCap, stdoutPath)
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("preparing stdout capture: %w", err)
	}
	defer stdoutCollector.Close()

	stderrCollector, err := newStreamCollector(memCap, stderrPath)
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("preparing stderr capture: %w", err)
	}
	defer stderrCollector.Close()

	cmd.Stdout = stdoutCollector
	cmd.Stderr = stderrCollector

	start := time.Now()

	err = cmd.Start()
	if err != nil {
		return ExecuteResult{ExitCode: -1}, nil
	}

	killTimer := time.AfterFunc(timeout, func() {
		if cmd.Process != nil {
			_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		}
	})

	waitErr := cmd.Wait()
	killTimer.Stop()

	duration := time.Since(start)

	result := ExecuteResult{
		DurationMs:       duration.Milliseconds(),
		StdoutTotalBytes: stdoutCollector.Total(),
		StderrTotalBytes: stderrCollector.Total(),
		StdoutTotalLines: stdoutCollector.Lines(),
		StderrTotalLines: stderrCollector.Lines(),
		StdoutTail:       stdoutCollector.Tail(),
		StderrTail:       stderrCollector.Tail(),
		StdoutSpillPath:  stdoutCollector.SpillPathIfUsed(),
		StderrSpillPath:  stderrCollector.SpillPathIfUsed(),
	}

	result.ExitCode, result.Signal = exitCodeAndSignal(waitErr, runCtx.Err())

	if in.OnLargeOutput == OnLargeOutputError {
		if exceeded, descr := exceedsBudget(result, limitBytes, limitLines); exceeded {
			result.LargeOutputError = fmt.Errorf("output too large: %s", descr)
		}
	}

	return result, nil
}

func exitCodeAndSignal(waitErr error, ctxErr error) (exitCode int, signal string) {
	if ctxErr != nil {
		return -1, "SIGKILL"
	}

	if waitErr == nil {
		return 0, ""
	}

	var exitErr *exec.ExitError
	if ok := asExitError(waitErr, &exitErr); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return -1, status.Signal().String()
		}

		return exitErr.ExitCode(), ""
	}

	return -1, ""
}

func asExitError(err error, target **exec.ExitError) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}

	*target = exitErr

	return true
}

func exceedsBudget(result ExecuteResult, limitBytes, limitLines int64) (bool, string) {
	if result.StdoutTotalBytes > limitBytes {
		return true, fmt.Sprintf("%d bytes on stdout (limit %d)", result.StdoutTotalBytes, limitBytes)
	}

	if result.StderrTotalBytes > limitBytes {
		return true, fmt.Sprintf("%d bytes on stderr (limit %d)", result.StderrTotalBytes, limitBytes)
	}

	if result.StdoutTotalLines > limitLines {
		return true, fmt.Sprintf("%d lines on stdout (limit %d)", result.StdoutTotalLines, limitLines)
	}

	if result.StderrTotalLines > limitLines {
		return true, fmt.Sprintf("%d lines on stderr (limit %d)", result.StderrTotalLines, limitLines)
	}

	return false, ""
}

// streamCollector implements io.Writer, fanning each write out to an
// optional spill file and a front-biased, capped in-memory buffer that
// retains only the first memCap bytes ever written.
type streamCollector struct {
	mu           sync.Mutex
	memCap       int64
	buf          bytes.Buffer
	total        int64
	newlineCount int64
	spillPath    string
	spillFile    *spillWriter
}

func newStreamCollector(memCap int64, spillPath string) (*streamCollector, error) {
	c := &streamCollector{memCap: memCap, spillPath: spillPath}

	if spillPath != "" {
		w, err := newSpillWriter(spillPath)
		if err != nil {
			return nil, err
		}
		c.spillFile = w
	}

	return c, nil
}

func (c *streamCollector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total += int64(len(p))
	c.newlineCount += int64(bytes.Count(p, []byte{'\n'}))

	if int64(c.buf.Len()) < c.memCap {
		remaining := c.memCap - int64(c.buf.Len())
		if remaining > int64(len(p)) {
			c.buf.Write(p)
		} else {
			c.buf.Write(p[:remaining])
		}
	}

	if c.spillFile != nil {
		return c.spillFile.Write(p)
	}

	return len(p), nil
}

func (c *streamCollector) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.total
}

// Lines reports the total line count of the full stream, by the same
// convention as engine.CountLines: zero for an empty stream, otherwise the
// newline count plus one (the segment after the last newline counts even
// when it is empty).
func (c *streamCollector) Lines() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total == 0 {
		return 0
	}

	return c.newlineCount + 1
}

func (c *streamCollector) Tail() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]byte(nil), c.buf.Bytes()...)
}

// SpillPathIfUsed returns the spill path only if any bytes were actually
// written to it, per the "retained only if written" contract.
func (c *streamCollector) SpillPathIfUsed() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spillFile != nil && c.total > 0 {
		return c.spillPath
	}

	return ""
}

func (c *streamCollector) Close() error {
	if c.spillFile != nil {
		return c.spillFile.Close()
	}

	return nil
}
