// Package main is the entry point for the hostcost CLI.
package main

import (
	"os"

	"hostcost/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
