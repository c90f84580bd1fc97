// The main package for the pollination-guides executable.
package main

import (
	"github.com/pollination/guides/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
