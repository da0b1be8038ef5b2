package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/junerver/MCP2Skills/internal/cli"
)

// version is injected via ldflags at build time.
var version = "dev"

func main() {
	root := cli.NewRootCommand(version)
	if err := root.Execute(); err != nil {
		if errors.Is(err, cli.ErrInterrupted) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "mcp2skills: %v\n", err)
		os.Exit(1)
	}
}
