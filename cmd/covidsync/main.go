// Package main is the covidsync entry point.
package main

import (
	"os"

	"github.com/covidmx-labs/covidsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
