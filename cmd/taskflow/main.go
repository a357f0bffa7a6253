// Package main is the entry point for the taskflow binary.
package main

import (
	"os"

	"taskflow/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
