package main

import (
	"os"

	"github.com/deevus/carbon-tui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
