package main

import (
	"os"

	"github.com/bnema/pacer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
