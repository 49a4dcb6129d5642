// Package main is the entry point for the pricelens command.
package main

import (
	"os"

	"github.com/pricelens/pricelens/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
