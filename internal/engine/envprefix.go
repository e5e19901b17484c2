package engine

import (
	"errors"
	"strings"
)

// ErrNoCommandAfterEnvPrefix is returned when every leading token in the
// invocation is an environment variable assignment, leaving no command.
var ErrNoCommandAfterEnvPrefix = errors.New("no command found after environment variable assignments")

// EnvPrefixResult is the outcome of separating leading KEY=value pairs from
// the rest of an invocation.
type EnvPrefixResult struct {
	// EnvPairs preserves assignment order as "KEY=value" strings, so that
	// EnvPairs + [Cmd] + Args reconstructs the original token list exactly.
	EnvPairs []string
	EnvVars  map[string]string
	Cmd      string
	Args     []string
}

// StripEnvPrefix extracts leading "KEY=value" assignments from cmd+args.
//
// A token is an env assignment iff it contains '=' and does not start with
// '-' (this preserves "--flag=value" as an argument rather than an
// assignment). The first token that is not an assignment becomes the
// returned Cmd; everything after it is Args.
func StripEnvPrefix(cmd string, args []string) (EnvPrefixResult, error) {
	all := make([]string, 0, len(args)+1)
	all = append(all, cmd)
	all = append(all, args...)

	i := 0
	for i < len(all) && isEnvAssignment(all[i]) {
		i++
	}

	if i == len(all) {
		return EnvPrefixResult{}, ErrNoCommandAfterEnvPrefix
	}

	result := EnvPrefixResult{
		EnvPairs: append([]string(nil), all[:i]...),
		EnvVars:  make(map[string]string, i),
		Cmd:      all[i],
		Args:     append([]string(nil), all[i+1:]...),
	}

	for _, pair := range result.EnvPairs {
		key, value, _ := strings.Cut(pair, "=")
		result.EnvVars[key] = value
	}

	return result, nil
}

// isEnvAssignment reports whether token looks like a leading "KEY=value"
// environment variable assignment rather than a command or flag.
func isEnvAssignment(token string) bool {
	return strings.Contains(token, "=") && !strings.HasPrefix(token, "-")
}

// ReconstructTokens rebuilds the original token list from an EnvPrefixResult,
// i.e. EnvPairs + [Cmd] + Args.
func (r EnvPrefixResult) ReconstructTokens() []string {
	tokens := make([]string, 0, len(r.EnvPairs)+1+len(r.Args))
	tokens = append(tokens, r.EnvPairs...)
	tokens = append(tokens, r.Cmd)
	tokens = append(tokens, r.Args...)

	return tokens
}
