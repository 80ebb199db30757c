// Command rootcause analyzes log files with LLM assistance.
package main

import (
	"os"

	"github.com/rootcauseai/rootcause/cmd"
)

func main() {
	// Cobra prints the error itself, the exit code is all that is left.
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
