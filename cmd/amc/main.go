// Package main is the entry point for the amc CLI client.
package main

import (
	"os"

	"github.com/donaldgifford/auto-marketplace/cmd/amc/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
