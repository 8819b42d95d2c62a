// The main package for the harvester executable.
package main

import (
	"os"

	"github.com/JakeFAU/paste-harvester/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
