package main

import (
	"os"

	"github.com/belmiro-kunga/certquest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
