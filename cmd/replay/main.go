package main

import (
	"os"

	"github.com/rustyeddy/replay/cmd/replay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
