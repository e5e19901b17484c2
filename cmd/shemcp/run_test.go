package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_ShowsHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := Run(strings.NewReader(""), &stdout, &stderr, []string{"shemcp", "--help"}, map[string]string{})

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	if !strings.Contains(stdout.String(), "shemcp - sandboxed shell execution") {
		t.Errorf("stdout = %q, missing usage banner", stdout.String())
	}
}

func TestRun_ShowsVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := Run(strings.NewReader(""), &stdout, &stderr, []string{"shemcp", "--version"}, map[string]string{})

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	if !strings.Contains(stdout.String(), "shemcp") {
		t.Errorf("stdout = %q, missing version banner", stdout.String())
	}
}

func TestRun_RejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := Run(strings.NewReader(""), &stdout, &stderr, []string{"shemcp", "--not-a-real-flag"}, map[string]string{})

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}

	if !strings.Contains(stderr.String(), "shemcp: error:") {
		t.Errorf("stderr = %q, missing error prefix", stderr.String())
	}
}
