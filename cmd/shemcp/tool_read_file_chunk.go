package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shemcp/shemcp/internal/engine"
)

func (s *Server) handleReadFileChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args readFileChunkArgs

	if err := decodeArguments(request, &args); err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	if args.URI == "" {
		return mcp.NewToolResultError("Error: uri is required"), nil
	}

	path, err := s.Spill.PathForURI(args.URI)
	if err != nil {
		return mcp.NewToolResultError("Error: " + err.Error()), nil
	}

	var offset int64
	if args.Cursor != nil {
		cursorBytes, err := json.Marshal(args.Cursor)
		if err != nil {
			return mcp.NewToolResultError("Error: invalid cursor"), nil
		}

		cursor, err := engine.ParseCursor(cursorBytes)
		if err != nil {
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}

		offset = cursor.Offset
	}

	limitBytes := engine.ResolveLimitBytesClamped(args.LimitBytes)

	data, total, err := engine.ReadRange(path, offset, offset+limitBytes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: spill file not found or unreadable: %s", args.URI)), nil
	}

	bytesEnd := offset + int64(len(data))

	resp := readFileChunkResponse{
		Data:       string(data),
		BytesStart: offset,
		BytesEnd:   bytesEnd,
		TotalBytes: total,
		MIME:       engine.SniffMIME(data),
	}

	if bytesEnd < total {
		resp.NextCursor = &cursorJSON{CursorType: "bytes", Offset: bytesEnd}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError("marshaling read_file_chunk response: " + err.Error()), nil
	}

	return mcp.NewToolResultText(string(body)), nil
}
