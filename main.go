package main

import (
	"os"

	"github.com/conneroisu/shelfsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
