// Package main is the entry point for the mock marketplace API.
package main

import (
	"os"

	"github.com/donaldgifford/auto-marketplace/cmd/marketplace-mock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
