package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/mark3labs/mcp-go/server"

	"github.com/shemcp/shemcp/internal/engine"
)

// shemcpExecutableName is the canonical name of the shemcp binary, used in
// usage text and error prefixes.
const shemcpExecutableName = "shemcp"

// Run is the main entry point that isolates the entire logic from global
// state like stdin/stdout/stderr and env. Returns the process exit code.
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string) int {
	flags := flag.NewFlagSet(shemcpExecutableName, flag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() {}
	flags.SetOutput(&strings.Builder{})

	flagHelp := flags.BoolP("help", "h", false, "Show help")
	flagVersion := flags.BoolP("version", "v", false, "Show version and exit")
	flagDebug := flags.Bool("debug", false, "Append request/policy tracing to the debug log")
	flagConfig := flags.StringP("config", "c", "", "Use specified config `file`")
	flagSandboxRoot := flags.StringP("sandbox-root", "C", "", "Override the sandbox root (default: nearest .git ancestor of cwd)")

	err := flags.Parse(args[1:])
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printUsage(stderr)

		return 1
	}

	if *flagVersion {
		fprintf(stdout, "%s\n", formatVersion())

		return 0
	}

	if *flagHelp {
		printUsage(stdout)

		return 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		fprintError(stderr, fmt.Errorf("resolving working directory: %w", err))

		return 1
	}

	sandboxRoot := *flagSandboxRoot
	if sandboxRoot == "" {
		sandboxRoot, err = engine.ResolveSandboxRoot(env, cwd)
		if err != nil {
			fprintError(stderr, err)

			return 1
		}
	}

	cfg, err := LoadConfig(LoadConfigInput{
		SandboxRoot: sandboxRoot,
		ConfigPath:  *flagConfig,
		EnvVars:     env,
	})
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	var debug *DebugLogger
	if *flagDebug {
		logFile, openErr := openDebugLogFile(env)
		if openErr != nil {
			fprintError(stderr, openErr)

			return 1
		}
		defer logFile.Close()

		debug = NewDebugLogger(logFile)
		debug.Section("shemcp " + formatVersion())
	}

	debugConfigLoading(debug, &cfg)
	debugPolicy(debug, &cfg)

	spillDir := filepath.Join(userStateDir(env), "tmp")
	if err := os.MkdirAll(spillDir, 0o700); err != nil {
		fprintError(stderr, fmt.Errorf("creating spill directory: %w", err))

		return 1
	}

	srv, err := NewServer(sandboxRoot, cfg, spillDir, env, debug)
	if err != nil {
		fprintError(stderr, fmt.Errorf("building policy: %w", err))

		return 1
	}

	mcpServer := srv.BuildMCPServer()

	if err := server.ServeStdio(mcpServer); err != nil && err != context.Canceled {
		fprintError(stderr, fmt.Errorf("serving stdio: %w", err))

		return 1
	}

	return 0
}

const usageHelp = `shemcp - sandboxed shell execution over the Model Context Protocol

Usage: shemcp [flags]

Reads MCP JSON-RPC requests from stdin and writes responses to stdout.
Exposes three tools: shell_exec, shell_info, read_file_chunk.

Flags:
  -h, --help                 Show help
  -v, --version               Show version and exit
  -c, --config <file>         Use specified config file
  -C, --sandbox-root <dir>    Override the sandbox root
      --debug                 Append request/policy tracing to the debug log

Examples:
  shemcp
  shemcp --sandbox-root /home/me/project
  shemcp --config ./shemcp.toml --debug`

func printUsage(output io.Writer) {
	fprintln(output, usageHelp)
}

func fprintln(out io.Writer, a ...any) {
	_, _ = fmt.Fprintln(out, a...)
}

func fprintf(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}

func fprintError(out io.Writer, err error) {
	if isTerminal() {
		fprintln(out, "\033[31mshemcp: error:\033[0m", err)
	} else {
		fprintln(out, "shemcp: error:", err)
	}
}

func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

// userStateDir returns $HOME/.shemcp, creating it is the caller's
// responsibility.
func userStateDir(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		home = "."
	}

	return filepath.Join(home, ".shemcp")
}

func openDebugLogFile(env map[string]string) (*os.File, error) {
	dir := userStateDir(env)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating debug log directory: %w", err)
	}

	path := filepath.Join(dir, "debug.log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening debug log %q: %w", path, err)
	}

	return f, nil
}
