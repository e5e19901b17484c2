package main

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) handleShellInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := shellInfoResponse{
		SandboxRoot:   s.SandboxRoot,
		ServerVersion: formatVersion(),
		CommandPolicy: commandPolicyJSON{
			Allow: s.Config.Policy.AllowPatterns,
			Deny:  s.Config.Policy.DenyPatterns,
		},
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError("marshaling shell_info response: " + err.Error()), nil
	}

	return mcp.NewToolResultText(string(body)), nil
}
