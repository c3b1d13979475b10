package main

import (
	"os"

	"github.com/fedutinova/meshgen/cmd/img2mesh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
