// The main package for the jobradar executable.
package main

import (
	"github.com/jobradar/jobradar/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
