package main

// rawCursorJSON mirrors the cursor object shape on the wire; it is
// marshaled back to JSON and handed to engine.ParseCursor so there is a
// single point of cursor validation.
type rawCursorJSON struct {
	CursorType *string  `json:"cursor_type,omitempty"`
	Offset     *float64 `json:"offset,omitempty"`
}

type pageJSON struct {
	Cursor     *rawCursorJSON `json:"cursor"`
	LimitBytes *int64         `json:"limit_bytes,omitempty"`
	LimitLines *int64         `json:"limit_lines,omitempty"`
}

type shellExecArgs struct {
	Cmd            string    `json:"cmd"`
	Args           []string  `json:"args,omitempty"`
	Cwd            string    `json:"cwd,omitempty"`
	TimeoutMs      *int64    `json:"timeout_ms,omitempty"`
	TimeoutSeconds *int64    `json:"timeout_seconds,omitempty"`
	MaxOutputBytes *int64    `json:"max_output_bytes,omitempty"`
	Page           *pageJSON `json:"page"`
	OnLargeOutput  string    `json:"on_large_output,omitempty"`
}

type readFileChunkArgs struct {
	URI        string         `json:"uri"`
	Cursor     *rawCursorJSON `json:"cursor,omitempty"`
	LimitBytes *int64         `json:"limit_bytes,omitempty"`
}

// shellExecResponse is the full "Execution result" shape from the data
// model, serialized as the tool's structured response body.
type shellExecResponse struct {
	ExitCode                int         `json:"exit_code"`
	Signal                  string      `json:"signal,omitempty"`
	DurationMs              int64       `json:"duration_ms"`
	StdoutChunk             string      `json:"stdout_chunk"`
	StderrChunk             string      `json:"stderr_chunk"`
	BytesStart              int64       `json:"bytes_start"`
	BytesEnd                int64       `json:"bytes_end"`
	TotalBytes              int64       `json:"total_bytes"`
	Truncated               bool        `json:"truncated"`
	NextCursor              *cursorJSON `json:"next_cursor,omitempty"`
	StdoutSpillURI          string      `json:"stdout_spill_uri,omitempty"`
	StderrSpillURI          string      `json:"stderr_spill_uri,omitempty"`
	MIME                    string      `json:"mime"`
	LineCount               int         `json:"line_count"`
	StderrLineCount         int         `json:"stderr_line_count"`
	Cmdline                 string      `json:"cmdline"`
	EffectiveCmdline        string      `json:"effective_cmdline"`
	Cwd                     string      `json:"cwd"`
	EffectiveTimeoutMs      int64       `json:"effective_timeout_ms"`
	EffectiveMaxOutputBytes int64       `json:"effective_max_output_bytes"`
}

type cursorJSON struct {
	CursorType string `json:"cursor_type"`
	Offset     int64  `json:"offset"`
}

type shellInfoResponse struct {
	SandboxRoot   string            `json:"sandbox_root"`
	ServerVersion string            `json:"server_version"`
	CommandPolicy commandPolicyJSON `json:"command_policy"`
}

type commandPolicyJSON struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

type readFileChunkResponse struct {
	Data       string      `json:"data"`
	BytesStart int64       `json:"bytes_start"`
	BytesEnd   int64       `json:"bytes_end"`
	TotalBytes int64       `json:"total_bytes"`
	NextCursor *cursorJSON `json:"next_cursor,omitempty"`
	MIME       string      `json:"mime"`
}
