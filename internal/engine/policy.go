package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleType identifies which list of a Policy matched. The zero value means
// no rule matched: PolicyCheckResult.MatchedRule is empty in that case too.
type RuleType string

const (
	RuleTypeDeny  RuleType = "deny"
	RuleTypeAllow RuleType = "allow"
)

// PolicyCheckResult is the outcome of evaluating a reconstructed command
// line against a Policy.
type PolicyCheckResult struct {
	Allowed     bool
	Reason      string
	MatchedRule string
	RuleType    RuleType
}

// Policy holds compiled allow/deny regular expressions. Patterns are
// case-insensitive and compiled once at construction time; a Policy is
// immutable and safe for concurrent use for the remainder of the process
// lifetime.
type Policy struct {
	denyPatterns  []*regexp.Regexp
	denySource    []string
	allowPatterns []*regexp.Regexp
	allowSource   []string
}

// NewPolicy compiles denyPatterns and allowPatterns as case-insensitive
// regular expressions. Patterns are matched against the reconstructed
// command line (see ReconstructCommandLine), not against individual tokens.
func NewPolicy(denyPatterns, allowPatterns []string) (*Policy, error) {
	p := &Policy{
		denySource:  append([]string(nil), denyPatterns...),
		allowSource: append([]string(nil), allowPatterns...),
	}

	for _, pattern := range denyPatterns {
		compiled, err := compileCaseInsensitive(pattern)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid deny pattern %q: %w", pattern, err)
		}
		p.denyPatterns = append(p.denyPatterns, compiled)
	}

	for _, pattern := range allowPatterns {
		compiled, err := compileCaseInsensitive(pattern)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid allow pattern %q: %w", pattern, err)
		}
		p.allowPatterns = append(p.allowPatterns, compiled)
	}

	return p, nil
}

func compileCaseInsensitive(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Check evaluates commandLine against the policy: deny rules are checked
// first, in order, and a match short-circuits with Allowed=false; then
// allow rules are checked in order, and the first match short-circuits with
// Allowed=true; if nothing matches, the command is denied by default.
func (p *Policy) Check(commandLine string) PolicyCheckResult {
	for i, re := range p.denyPatterns {
		if re.MatchString(commandLine) {
			return PolicyCheckResult{
				Allowed:     false,
				Reason:      fmt.Sprintf("command matches deny rule %q", p.denySource[i]),
				MatchedRule: p.denySource[i],
				RuleType:    RuleTypeDeny,
			}
		}
	}

	for i, re := range p.allowPatterns {
		if re.MatchString(commandLine) {
			return PolicyCheckResult{
				Allowed:     true,
				Reason:      fmt.Sprintf("command matches allow rule %q", p.allowSource[i]),
				MatchedRule: p.allowSource[i],
				RuleType:    RuleTypeAllow,
			}
		}
	}

	return PolicyCheckResult{
		Allowed: false,
		Reason:  "command matches no allow rule (default deny)",
	}
}

// ReconstructCommandLine joins cmd and args with single spaces, the same
// shape the policy's regular expressions are written against.
func ReconstructCommandLine(cmd string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, cmd)
	parts = append(parts, args...)

	return strings.Join(parts, " ")
}
