package engine

import (
	"errors"
	"fmt"
)

// ErrMissingCommandFlag is returned when a shell wrapper invocation has no
// "-c" flag at all, so there is no embedded command string to extract.
var ErrMissingCommandFlag = errors.New("missing -c command string")

// ErrMissingCommandString is returned when "-c" is present but nothing
// follows it.
var ErrMissingCommandString = errors.New("missing command string after -c")

// ErrEmptyCommandString is returned when the string following "-c" tokenizes
// to nothing (e.g. it was empty or only spaces).
var ErrEmptyCommandString = errors.New("empty command string")

// shellWrapperExecutables lists the executables recognized as shell wrappers
// subject to "-c <command>" unwrapping. Anything else is treated as a plain
// command even if its first argument happens to start with '-'.
var shellWrapperExecutables = map[string]bool{
	"bash": true,
	"sh":   true,
}

// WrapperParseResult is the outcome of inspecting an invocation for the
// "shell -c 'command'" pattern.
type WrapperParseResult struct {
	IsWrapper bool

	// Shell is the wrapper executable ("bash" or "sh"); empty when IsWrapper
	// is false.
	Shell string

	// ShouldUseLogin reports whether a login-shell flag ("-l") was present.
	// It is consumed, never re-emitted in FlagsBeforeCommand.
	ShouldUseLogin bool

	// CommandString is the raw string following "-c", before tokenization.
	CommandString string

	// FlagsBeforeCommand re-emits the non-"-c", non-"-l" flags that preceded
	// the command string, in the order encountered (e.g. "-x" from "-xc").
	FlagsBeforeCommand []string

	// ExecutableToCheck is the command that policy and CWD checks should
	// actually evaluate: Tokenize(CommandString)[0] for a wrapper, or the
	// original command for a non-wrapper.
	ExecutableToCheck string

	// ArgsAfterCommandIndex is the index into the original args slice of
	// the first trailing positional parameter after the command string
	// (len(args) if there are none).
	ArgsAfterCommandIndex int
}

// ParseShellWrapper inspects cmd+args for the "bash -c '...'" / "sh -c '...'"
// pattern used to invoke a shell with an inline command string.
//
// Only bash and sh are recognized, and only when the first argument starts
// with '-' (a flag cluster or a long flag). Flag clusters are parsed
// char-by-char: 'l' marks a login shell and is consumed silently, 'c' always
// demands the next token as the command string (even when "-c" is not the
// cluster's last letter), any other letter is re-emitted individually in
// FlagsBeforeCommand. Long "--flags" are preserved verbatim and do not
// trigger "-c" handling (GNU "--command" is not recognized, matching the
// reference shells' own getopt behavior).
//
// Invocations that don't match the wrapper shape (including non-flag first
// arguments) report IsWrapper=false with no error.
func ParseShellWrapper(cmd string, args []string) (WrapperParseResult, error) {
	if !shellWrapperExecutables[cmd] || len(args) == 0 || len(args[0]) == 0 || args[0][0] != '-' {
		return WrapperParseResult{
			IsWrapper:         false,
			ExecutableToCheck: cmd,
		}, nil
	}

	result := WrapperParseResult{
		IsWrapper: true,
		Shell:     cmd,
	}

	foundCFlag := false

	for i := 0; i < len(args); i++ {
		token := args[i]

		if len(token) >= 2 && token[0] == '-' && token[1] == '-' {
			result.FlagsBeforeCommand = append(result.FlagsBeforeCommand, token)
			continue
		}

		if len(token) < 2 || token[0] != '-' {
			// Positional argument encountered before "-c" was resolved;
			// not a recognized wrapper shape for our purposes.
			continue
		}

		consumedByC := false

		for j := 1; j < len(token); j++ {
			switch token[j] {
			case 'l':
				result.ShouldUseLogin = true
			case 'c':
				foundCFlag = true

				if i+1 >= len(args) {
					return WrapperParseResult{}, ErrMissingCommandString
				}

				result.CommandString = args[i+1]
				result.ArgsAfterCommandIndex = i + 2
				consumedByC = true
			case 'o':
				result.FlagsBeforeCommand = append(result.FlagsBeforeCommand, "-o")

				if i+1 < len(args) {
					result.FlagsBeforeCommand = append(result.FlagsBeforeCommand, args[i+1])
					i++
				}
			default:
				result.FlagsBeforeCommand = append(result.FlagsBeforeCommand, fmt.Sprintf("-%c", token[j]))
			}

			if consumedByC {
				break
			}
		}

		if consumedByC {
			break
		}
	}

	if !foundCFlag {
		return WrapperParseResult{}, ErrMissingCommandFlag
	}

	tokens := Tokenize(result.CommandString)
	if len(tokens) == 0 {
		return WrapperParseResult{}, ErrEmptyCommandString
	}

	result.ExecutableToCheck = tokens[0]

	if result.ArgsAfterCommandIndex > len(args) {
		result.ArgsAfterCommandIndex = len(args)
	}

	return result, nil
}
