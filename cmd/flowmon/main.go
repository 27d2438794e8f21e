// Package main provides the flowmon CLI.
package main

import (
	"os"

	"github.com/flowmon-io/flowmon/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
