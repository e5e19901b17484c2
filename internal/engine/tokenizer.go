package engine

import "strings"

// Tokenize splits s on ASCII space, honoring single quotes, double quotes,
// and backslash escapes:
//
//   - Single quotes: literal until the next unescaped single quote.
//   - Double quotes: literal until the next unescaped double quote; a
//     backslash inside double quotes still consumes the following char.
//   - Backslash outside quotes consumes and emits the next character
//     verbatim.
//   - Whitespace outside quotes separates tokens.
//
// Empty or whitespace-only input yields an empty (nil) slice. Unbalanced
// quotes are tolerated: the in-progress token is emitted at end of input.
// This is deliberately a purpose-built splitter rather than a call out to a
// real shell, so that the policy pipeline's notion of "the command" can
// never drift from what actually gets tokenized.
func Tokenize(s string) []string {
	var (
		tokens  []string
		current strings.Builder
		haveTok bool
	)

	const (
		none = iota
		single
		double
	)

	quote := none

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch quote {
		case single:
			if r == '\'' {
				quote = none
			} else {
				current.WriteRune(r)
			}

			continue
		case double:
			if r == '\\' && i+1 < len(runes) {
				i++
				current.WriteRune(runes[i])

				continue
			}

			if r == '"' {
				quote = none
			} else {
				current.WriteRune(r)
			}

			continue
		}

		switch {
		case r == '\'':
			quote = single
			haveTok = true
		case r == '"':
			quote = double
			haveTok = true
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			haveTok = true
		case r == ' ':
			if haveTok {
				tokens = append(tokens, current.String())
				current.Reset()
				haveTok = false
			}
		default:
			current.WriteRune(r)
			haveTok = true
		}
	}

	if haveTok {
		tokens = append(tokens, current.String())
	}

	return tokens
}
