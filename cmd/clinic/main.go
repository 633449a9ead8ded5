// Package main is the entry point for the clinic scheduling service.
package main

import (
	"fmt"
	"os"

	"github.com/polyclinic/scheduler/internal/obs"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	obs.Version, obs.Commit = version, commit

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
