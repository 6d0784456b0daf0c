// Package cmd implements the CLI commands for marketplace-mock.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "marketplace-mock",
	Short: "Run a mock of the car marketplace API",
	Long: "A local stand-in for the car marketplace API backed by an in-memory\n" +
		"store with demo users, listings, and favorites.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
