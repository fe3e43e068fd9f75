// The main package for the passrate-feed executable.
package main

import (
	"github.com/JakeFAU/passrate-feed/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
