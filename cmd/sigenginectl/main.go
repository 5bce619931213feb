package main

import (
	"os"

	"github.com/driftwood-labs/sigengine/cmd/sigenginectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
