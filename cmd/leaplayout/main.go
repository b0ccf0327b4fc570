// Package main provides the leaplayout command.
package main

import (
	"os"

	"github.com/leapstack-labs/leaplayout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
