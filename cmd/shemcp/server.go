package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shemcp/shemcp/internal/engine"
)

// Server holds the process-lifetime state shared across tool calls: the
// immutable policy, the sandbox root, the worktree registry (which grows
// the session allowlist), the spill store, and the debug logger.
type Server struct {
	SandboxRoot string
	Config      Config
	Policy      *engine.Policy
	Worktrees   *engine.WorktreeRegistry
	Spill       *engine.SpillStore
	Debug       *DebugLogger
	Env         map[string]string
}

// NewServer wires an *engine.Policy and the supporting registries from cfg,
// ready to back MCP tool handlers.
func NewServer(sandboxRoot string, cfg Config, spillDir string, env map[string]string, debug *DebugLogger) (*Server, error) {
	policy, err := cfg.Policy.BuildPolicy()
	if err != nil {
		return nil, err
	}

	return &Server{
		SandboxRoot: sandboxRoot,
		Config:      cfg,
		Policy:      policy,
		Worktrees:   engine.NewWorktreeRegistry(),
		Spill:       engine.NewSpillStore(spillDir),
		Debug:       debug,
		Env:         env,
	}, nil
}

// BuildMCPServer registers the three tools against a fresh *server.MCPServer.
func (s *Server) BuildMCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer("shemcp", formatVersion())

	mcpServer.AddTool(shellExecTool(), s.handleShellExec)
	mcpServer.AddTool(shellInfoTool(), s.handleShellInfo)
	mcpServer.AddTool(readFileChunkTool(), s.handleReadFileChunk)

	return mcpServer
}

// cursorSchema is the JSON-Schema fragment for shell_exec's page.cursor.
// read_file_chunk declares the same two cursor properties inline, without
// the required list.
var cursorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"cursor_type": map[string]any{"type": "string", "enum": []string{"bytes"}},
		"offset":      map[string]any{"type": "number", "minimum": 0},
	},
	"required": []string{"cursor_type", "offset"},
}

func shellExecTool() mcp.Tool {
	return mcp.NewTool("shell_exec",
		mcp.WithDescription("Run a command inside the sandbox and return a paginated chunk of its output."),
		mcp.WithString("cmd", mcp.Required(), mcp.Description("The command to run.")),
		mcp.WithArray("args", mcp.Description("Arguments to the command."), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("cwd", mcp.Description("Working directory, relative to the sandbox root. Absolute paths are rejected.")),
		mcp.WithNumber("timeout_ms", mcp.Description("Legacy timeout in milliseconds, 1..300000.")),
		mcp.WithNumber("timeout_seconds", mcp.Description("Timeout in seconds, 1..300.")),
		mcp.WithNumber("max_output_bytes", mcp.Description("Per-stream output ceiling, 1000..10000000.")),
		mcp.WithObject("page", mcp.Required(), mcp.Description("Pagination cursor and limits."),
			mcp.Properties(map[string]any{
				"cursor":      cursorSchema,
				"limit_bytes": map[string]any{"type": "number", "minimum": 1, "maximum": engine.MaxLimitBytes},
				"limit_lines": map[string]any{"type": "number", "minimum": 1, "maximum": engine.MaxLimitLines},
			}),
		),
		mcp.WithString("on_large_output", mcp.Enum("spill", "truncate", "error"), mcp.DefaultString("spill")),
	)
}

func shellInfoTool() mcp.Tool {
	return mcp.NewTool("shell_info",
		mcp.WithDescription("Return the sandbox root, server version, and compiled command policy."),
	)
}

func readFileChunkTool() mcp.Tool {
	return mcp.NewTool("read_file_chunk",
		mcp.WithDescription("Read a paginated chunk from a spill file produced by shell_exec."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("A mcp://tmp/... spill file URI.")),
		mcp.WithObject("cursor", mcp.Description("Pagination cursor."),
			mcp.Properties(map[string]any{
				"cursor_type": map[string]any{"type": "string", "enum": []string{"bytes"}},
				"offset":      map[string]any{"type": "number", "minimum": 0},
			}),
		),
		mcp.WithNumber("limit_bytes", mcp.Description("Bytes to return, 1..40000, default 40000.")),
	)
}
