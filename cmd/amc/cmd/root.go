// Package cmd implements the amc CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/auto-marketplace/internal/api/client"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, apiclient.ErrNotAuthenticated) {
			fmt.Fprintln(os.Stderr, "not signed in, run amc login")
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "amc",
		Short: "CLI client for the car marketplace",
		Long: "amc is a command-line client for the car marketplace API.\n" +
			"It lets you browse and publish listings, manage favorites,\n" +
			"and get recommendations from the terminal.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML)")
	flags.String("server", "", "API base URL (default from config, http://localhost:8000/api/)")
	flags.StringP("output", "o", "table", "output format (table, json)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	cobra.CheckErr(v.BindPFlag("config", flags.Lookup("config")))
	cobra.CheckErr(v.BindPFlag("server", flags.Lookup("server")))
	cobra.CheckErr(v.BindPFlag("output", flags.Lookup("output")))
	cobra.CheckErr(v.BindPFlag("log_level", flags.Lookup("log-level")))

	root.AddCommand(
		registerCmd(v),
		loginCmd(v),
		logoutCmd(v),
		whoamiCmd(v),
		profileCmd(v),
		listingsCmd(v),
		mineCmd(v),
		favoritesCmd(v),
		recommendCmd(v),
		calcCmd(v),
		versionCmd(),
	)
	return root
}

// initConfig loads .env into the environment and binds AMC_* variables.
// A missing .env file is not an error.
func initConfig(v *viper.Viper) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	v.SetEnvPrefix("AMC")
	v.AutomaticEnv()

	switch out := v.GetString("output"); out {
	case formatTable, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", out)
	}
	return nil
}

// Root returns a fresh root command for documentation generation.
func Root() *cobra.Command {
	return newRootCmd()
}
