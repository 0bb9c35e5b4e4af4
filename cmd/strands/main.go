package main

import (
	"os"

	"github.com/strands-agents/sdk-go/cmd/strands/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
