// Package main provides the entry point for the weft CLI.
package main

import (
	"os"

	"github.com/randalmurphal/weft/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
