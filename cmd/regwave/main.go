package main

import (
	"os"

	"github.com/regwave/regwave/cmd/regwave/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
