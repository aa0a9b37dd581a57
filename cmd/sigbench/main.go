package main

import (
	"os"

	"github.com/rustyeddy/sigbench/cmd/sigbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
