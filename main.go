package main

import (
	"os"

	"github.com/evolutia/examgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
