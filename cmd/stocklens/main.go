package main

import (
	"github.com/stocklens/stocklens/internal/cmd"
	"github.com/stocklens/stocklens/internal/observability"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2025-10-28"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCode(observability.Logger(), cmd.ExitCodeFor(err), "Command failed", err)
	}
}
