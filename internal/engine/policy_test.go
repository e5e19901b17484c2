package engine

import "testing"

func TestPolicy_DenyWinsOverAllow(t *testing.T) {
	p, err := NewPolicy([]string{`rm\s+-rf`}, []string{`.*`})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	got := p.Check("rm -rf /")
	if got.Allowed {
		t.Error("Allowed = true, want false (deny should win)")
	}
	if got.RuleType != RuleTypeDeny {
		t.Errorf("RuleType = %q, want deny", got.RuleType)
	}
}

func TestPolicy_AllowMatchInOrder(t *testing.T) {
	p, err := NewPolicy(nil, []string{`^git `, `^echo `})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	got := p.Check("git status")
	if !got.Allowed {
		t.Fatalf("Allowed = false, want true")
	}
	if got.MatchedRule != `^git ` {
		t.Errorf("MatchedRule = %q, want %q", got.MatchedRule, `^git `)
	}
}

func TestPolicy_DefaultDeny(t *testing.T) {
	p, err := NewPolicy(nil, []string{`^git `})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	got := p.Check("curl https://example.com")
	if got.Allowed {
		t.Error("Allowed = true, want false (default deny)")
	}
	if got.RuleType != "" {
		t.Errorf("RuleType = %q, want empty (no matched_rule on default deny)", got.RuleType)
	}
	if got.MatchedRule != "" {
		t.Errorf("MatchedRule = %q, want empty", got.MatchedRule)
	}
}

func TestPolicy_CaseInsensitive(t *testing.T) {
	p, err := NewPolicy(nil, []string{`^GIT `})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	got := p.Check("git status")
	if !got.Allowed {
		t.Error("Allowed = false, want true (case-insensitive match)")
	}
}

func TestPolicy_InvalidPatternErrors(t *testing.T) {
	_, err := NewPolicy([]string{"(unclosed"}, nil)
	if err == nil {
		t.Fatal("expected error for invalid deny pattern")
	}
}

func TestReconstructCommandLine(t *testing.T) {
	got := ReconstructCommandLine("git", []string{"commit", "-m", "msg"})
	want := "git commit -m msg"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
