// Package main is the entry point for the jobradar binary.
package main

import "github.com/jobradar/jobradar/cmd"

func main() {
	cmd.Execute()
}
