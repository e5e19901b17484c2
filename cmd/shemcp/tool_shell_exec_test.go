package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shemcp/shemcp/internal/engine"
)

func newTestServer(t *testing.T, sandboxRoot string) *Server {
	t.Helper()

	cfg := Config{Policy: engine.DefaultPolicyConfig(sandboxRoot)}
	cfg.Policy.AllowPatterns = append(cfg.Policy.AllowPatterns, `^sh\s`)

	srv, err := NewServer(sandboxRoot, cfg, t.TempDir(), map[string]string{
		"PATH": "/usr/bin:/bin",
		"HOME": t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	return srv
}

func callTool(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func firstPageCursor() map[string]any {
	return map[string]any{
		"page": map[string]any{
			"cursor": map[string]any{"cursor_type": "bytes", "offset": 0},
		},
	}
}

func TestHandleShellExec_SimpleCommand(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	args := map[string]any{
		"cmd": "echo",
		"args": []any{"hello"},
	}
	for k, v := range firstPageCursor() {
		args[k] = v
	}

	result, err := srv.handleShellExec(context.Background(), callTool(args))
	if err != nil {
		t.Fatalf("handleShellExec: %v", err)
	}

	text := resultText(t, result)

	var resp shellExecResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (%s)", err, text)
	}

	if resp.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", resp.ExitCode)
	}

	if !strings.Contains(resp.StdoutChunk, "hello") {
		t.Errorf("StdoutChunk = %q, want to contain hello", resp.StdoutChunk)
	}
}

func TestHandleShellExec_DeniedByPolicy(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	args := map[string]any{
		"cmd": "rm",
		"args": []any{"-rf", "/"},
	}
	for k, v := range firstPageCursor() {
		args[k] = v
	}

	result, err := srv.handleShellExec(context.Background(), callTool(args))
	if err != nil {
		t.Fatalf("handleShellExec: %v", err)
	}

	if !result.IsError {
		t.Fatal("expected an error result for a denied command")
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Denied by policy") {
		t.Errorf("error text = %q, want to contain denial banner", text)
	}
}

func TestHandleShellExec_RejectsAbsoluteCwd(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	args := map[string]any{
		"cmd": "echo",
		"cwd": "/etc",
	}
	for k, v := range firstPageCursor() {
		args[k] = v
	}

	result, err := srv.handleShellExec(context.Background(), callTool(args))
	if err != nil {
		t.Fatalf("handleShellExec: %v", err)
	}

	if !result.IsError {
		t.Fatal("expected an error result for an absolute cwd")
	}
}

func TestHandleShellExec_RequiresPage(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	result, err := srv.handleShellExec(context.Background(), callTool(map[string]any{"cmd": "echo"}))
	if err != nil {
		t.Fatalf("handleShellExec: %v", err)
	}

	if !result.IsError {
		t.Fatal("expected an error result when page is missing")
	}
}

// newLargeOutputTestServer builds a server whose policy additionally allows
// "head", used by the tests below to produce deterministic, large output
// without a shell wrapper or a pipeline.
func newLargeOutputTestServer(t *testing.T) *Server {
	t.Helper()

	sandboxRoot := t.TempDir()
	cfg := Config{Policy: engine.DefaultPolicyConfig(sandboxRoot)}
	cfg.Policy.AllowPatterns = append(cfg.Policy.AllowPatterns, `^head\s`)

	srv, err := NewServer(sandboxRoot, cfg, t.TempDir(), map[string]string{
		"PATH": "/usr/bin:/bin",
		"HOME": t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	return srv
}

func TestHandleShellExec_Truncate(t *testing.T) {
	srv := newLargeOutputTestServer(t)

	args := map[string]any{
		"cmd":             "head",
		"args":            []any{"-c", "100000", "/dev/zero"},
		"on_large_output": "truncate",
	}
	args["page"] = map[string]any{
		"cursor":      map[string]any{"cursor_type": "bytes", "offset": 0},
		"limit_bytes": 100,
	}

	result, err := srv.handleShellExec(context.Background(), callTool(args))
	if err != nil {
		t.Fatalf("handleShellExec: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	var resp shellExecResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if !resp.Truncated {
		t.Error("Truncated = false, want true for output over limit_bytes in truncate mode")
	}
	if resp.NextCursor != nil {
		t.Errorf("NextCursor = %#v, want nil in truncate mode", resp.NextCursor)
	}
	if resp.StdoutSpillURI != "" {
		t.Errorf("StdoutSpillURI = %q, want empty in truncate mode", resp.StdoutSpillURI)
	}
	if len(resp.StdoutChunk) != 100 {
		t.Errorf("len(StdoutChunk) = %d, want 100", len(resp.StdoutChunk))
	}
}

func TestHandleShellExec_ErrorMode(t *testing.T) {
	srv := newLargeOutputTestServer(t)

	args := map[string]any{
		"cmd":             "head",
		"args":            []any{"-c", "100000", "/dev/zero"},
		"on_large_output": "error",
	}
	args["page"] = map[string]any{
		"cursor":      map[string]any{"cursor_type": "bytes", "offset": 0},
		"limit_bytes": 100,
	}

	result, err := srv.handleShellExec(context.Background(), callTool(args))
	if err != nil {
		t.Fatalf("handleShellExec: %v", err)
	}

	if !result.IsError {
		t.Fatal("expected an error result for output exceeding limit_bytes in error mode")
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Output too large") {
		t.Errorf("error text = %q, want to contain %q", text, "Output too large")
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}

	textContent, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("content[0] is not text: %#v", result.Content[0])
	}

	return textContent.Text
}
