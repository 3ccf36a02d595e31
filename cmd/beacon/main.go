// Package main is the entry point for the Beacon CLI.
package main

import (
	"os"

	"github.com/chainlog/beacon/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
