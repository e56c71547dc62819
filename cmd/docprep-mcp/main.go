package main

import (
	"os"

	"github.com/ironsheep/docprep-mcp/cmd/docprep-mcp/cmd"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	root := cmd.NewRootCommand(cmd.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
