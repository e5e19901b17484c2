package main

import "fmt"

// version, commit, and date are set via -ldflags at release build time;
// they default to development placeholders for `go run`/`go build` without
// explicit flags.
var (
	version = "source"
	commit  = "none"
	date    = "unknown"
)

func formatVersion() string {
	if version == "source" {
		return fmt.Sprintf("shemcp (built from source, %s)", date)
	}

	return fmt.Sprintf("shemcp %s (%s, %s)", version, commit, date)
}
