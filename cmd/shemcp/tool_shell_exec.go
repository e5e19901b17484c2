package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shemcp/shemcp/internal/engine"
)

func (s *Server) handleShellExec(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args shellExecArgs

	if err := decodeArguments(request, &args); err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	if args.Cmd == "" {
		return mcp.NewToolResultError("Error: cmd is required and must be non-empty"), nil
	}

	if args.Page == nil {
		return mcp.NewToolResultError("Error: page is required"), nil
	}

	if args.Page.Cursor == nil {
		return mcp.NewToolResultError("Error: page.cursor is required"), nil
	}

	cursorBytes, err := json.Marshal(args.Page.Cursor)
	if err != nil {
		return mcp.NewToolResultError("Error: invalid page.cursor"), nil
	}

	cursor, err := engine.ParseCursor(cursorBytes)
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	if filepath.IsAbs(args.Cwd) {
		return mcp.NewToolResultError(fmt.Sprintf("Error: cwd must be relative, got absolute path %q (sandbox root: %s)", args.Cwd, s.SandboxRoot)), nil
	}

	limitBytes, err := engine.ResolveLimitBytesStrict(args.Page.LimitBytes)
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	limitLines := engine.ResolveLimitLines(args.Page.LimitLines)

	onLargeOutput := OnLargeOutput(args.OnLargeOutput)
	if onLargeOutput == "" {
		onLargeOutput = OnLargeOutputSpill
	}

	norm, err := engine.Normalize(args.Cmd, args.Args)
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	checkResult := s.Policy.Check(norm.EffectiveCommandLine)
	s.Debug.Check(norm.EffectiveCommandLine, checkResult.Allowed, checkResult.MatchedRule)

	if !checkResult.Allowed {
		return mcp.NewToolResultError(formatDenial(checkResult, norm)), nil
	}

	candidateCwd := s.SandboxRoot
	if args.Cwd != "" {
		candidateCwd = filepath.Join(s.SandboxRoot, args.Cwd)
	}

	cwdResult, err := engine.ValidateCWD(candidateCwd, s.SandboxRoot, s.Worktrees, s.Config.Policy.WorktreeDetectionEnabled)
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	if cwdResult.DiscoveredNew {
		s.Debug.WorktreeDiscovery(cwdResult.BoundaryRoot)
	}

	effectiveTimeoutMs := resolveTimeoutMs(args.TimeoutSeconds, args.TimeoutMs, s.Config.Policy.TimeoutCeilingMs)
	effectiveMaxBytes := resolveMaxOutputBytes(args.MaxOutputBytes, s.Config.Policy.MaxOutputBytesCeiling)

	argv0, argv := s.buildArgv(norm)

	env := s.Config.Policy.FilterEnv(s.Env)
	for k, v := range norm.EnvPrefix.EnvVars {
		env[k] = v
	}

	execResult, err := Execute(ctx, ExecuteInput{
		Argv0:          argv0,
		Argv:           argv,
		Dir:            cwdResult.ResolvedCWD,
		Env:            env,
		TimeoutMs:      effectiveTimeoutMs,
		MaxOutputBytes: effectiveMaxBytes,
		LimitBytes:     limitBytes,
		LimitLines:     limitLines,
		OnLargeOutput:  onLargeOutput,
		SpillStore:     s.Spill,
	})
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	if execResult.LargeOutputError != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Output too large: %s. Use pagination or spill mode.", execResult.LargeOutputError.Error())), nil
	}

	resp := shellExecResponse{
		ExitCode:                execResult.ExitCode,
		Signal:                  execResult.Signal,
		DurationMs:              execResult.DurationMs,
		Cmdline:                 norm.OriginalCommandLine,
		EffectiveCmdline:        effectiveCmdlineString(argv0, argv),
		Cwd:                     cwdResult.ResolvedCWD,
		EffectiveTimeoutMs:      effectiveTimeoutMs,
		EffectiveMaxOutputBytes: effectiveMaxBytes,
		TotalBytes:              execResult.StdoutTotalBytes,
	}

	// Only spill mode ever hands back a next_cursor: truncate mode never
	// retains a spill file to continue from, and error mode already failed
	// above when the page budget was exceeded.
	allowContinuation := onLargeOutput == OnLargeOutputSpill

	stdoutChunk, bytesStart, bytesEnd, nextCursor := buildPage(cursor.Offset, limitBytes, execResult.StdoutTotalBytes, execResult.StdoutSpillPath, execResult.StdoutTail, allowContinuation)
	resp.StdoutChunk = string(stdoutChunk)
	resp.BytesStart = bytesStart
	resp.BytesEnd = bytesEnd
	resp.NextCursor = nextCursor
	resp.LineCount = engine.CountLines(stdoutChunk)
	resp.MIME = engine.SniffMIME(stdoutChunk)
	resp.Truncated = onLargeOutput == OnLargeOutputTruncate &&
		(execResult.StdoutTotalBytes > limitBytes || execResult.StdoutTotalLines > limitLines)

	stderrChunk, _, _, _ := buildPage(0, effectiveMaxBytes, execResult.StderrTotalBytes, execResult.StderrSpillPath, execResult.StderrTail, allowContinuation)
	resp.StderrChunk = string(stderrChunk)
	resp.StderrLineCount = engine.CountLines(stderrChunk)

	if execResult.StdoutSpillPath != "" {
		if nextCursor != nil {
			resp.StdoutSpillURI = s.Spill.URI(execResult.StdoutSpillPath)
		} else {
			_ = engine.Remove(execResult.StdoutSpillPath)
		}
	}

	if execResult.StderrSpillPath != "" {
		_ = engine.Remove(execResult.StderrSpillPath)
	}

	s.Debug.Execution(resp.EffectiveCmdline, resp.ExitCode, resp.DurationMs)

	body, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError("marshaling shell_exec response: " + err.Error()), nil
	}

	return mcp.NewToolResultText(string(body)), nil
}

// buildArgv picks the real argv0/argv to spawn: a reassembled shell
// invocation for a detected wrapper, or the env-stripped cmd/args
// otherwise.
func (s *Server) buildArgv(norm engine.NormalizedRequest) (string, []string) {
	if norm.Wrapper.IsWrapper {
		return buildShellWrapperArgv(norm)
	}

	return norm.EnvPrefix.Cmd, norm.EnvPrefix.Args
}

func effectiveCmdlineString(argv0 string, argv []string) string {
	return engine.ReconstructCommandLine(argv0, argv)
}

// buildPage implements the C9 page-construction algorithm for a single
// stream: bytes [offset, offset+limitBytes) from the spill file when one
// exists, else from the in-memory tail (best-effort). allowContinuation
// gates next_cursor: only spill mode sets it, since truncate mode never
// keeps a spill file to resume a later page from.
func buildPage(offset, limitBytes, totalBytes int64, spillPath string, tail []byte, allowContinuation bool) (chunk []byte, bytesStart, bytesEnd int64, nextCursor *cursorJSON) {
	bytesStart = offset
	bytesEnd = bytesStart + limitBytes
	if bytesEnd > totalBytes {
		bytesEnd = totalBytes
	}
	if bytesEnd < bytesStart {
		bytesEnd = bytesStart
	}

	if spillPath != "" {
		data, _, err := engine.ReadRange(spillPath, bytesStart, bytesEnd)
		if err == nil {
			chunk = data
		}
	} else if bytesStart <= int64(len(tail)) {
		end := bytesEnd
		if end > int64(len(tail)) {
			end = int64(len(tail))
		}
		if bytesStart <= end {
			chunk = tail[bytesStart:end]
		}
	}

	if allowContinuation && bytesEnd < totalBytes {
		nextCursor = &cursorJSON{CursorType: "bytes", Offset: bytesEnd}
	}

	return chunk, bytesStart, bytesEnd, nextCursor
}

func resolveTimeoutMs(timeoutSeconds, timeoutMs *int64, ceilingMs int64) int64 {
	var resolved int64

	switch {
	case timeoutSeconds != nil:
		resolved = clampInt64(*timeoutSeconds, 1, 300) * 1000
	case timeoutMs != nil:
		resolved = clampInt64(*timeoutMs, 1, 300000)
	default:
		resolved = ceilingMs
	}

	if resolved > ceilingMs {
		resolved = ceilingMs
	}

	return resolved
}

func resolveMaxOutputBytes(requested *int64, ceiling int64) int64 {
	if requested == nil {
		return ceiling
	}

	resolved := clampInt64(*requested, 1000, 10000000)
	if resolved > ceiling {
		resolved = ceiling
	}

	return resolved
}

func clampInt64(v, min, max int64) int64 {
	switch {
	case v < min:
		return min
	case v > max:
		return max
	default:
		return v
	}
}

func formatDenial(result engine.PolicyCheckResult, norm engine.NormalizedRequest) string {
	ruleLabel := "allow"
	if result.RuleType == engine.RuleTypeDeny {
		ruleLabel = "deny"
	}

	msg := fmt.Sprintf("Denied by policy: %s\n\nReason: %s", norm.EffectiveCommandLine, result.Reason)

	if result.MatchedRule != "" {
		msg += fmt.Sprintf("\nMatched %s rule: /%s/", ruleLabel, result.MatchedRule)
	}

	msg += fmt.Sprintf("\n\nOriginal command: %s", norm.OriginalCommandLine)

	if norm.Wrapper.IsWrapper {
		msg += fmt.Sprintf("\nUnwrapped command: %s", norm.EffectiveCommandLine)
	}

	return msg
}

// decodeArguments round-trips request.GetArguments() through JSON into out,
// since mcp-go's typed accessors don't cover arbitrary nested objects.
func decodeArguments(request mcp.CallToolRequest, out any) error {
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return fmt.Errorf("marshaling tool arguments: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding tool arguments: %w", err)
	}

	return nil
}
