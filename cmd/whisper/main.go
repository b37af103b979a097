package main

import (
	"os"

	"whisper/cmd/whisper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
