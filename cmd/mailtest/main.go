/*
Package main provides the mailtest CLI entry point.
*/
package main

import (
	"os"

	"github.com/keyxmakerx/mailcraft/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
