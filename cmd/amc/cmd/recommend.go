package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func recommendCmd(v *viper.Viper) *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show recommended listings",
		Long: "Show listings recommended from your favorites and browsing\n" +
			"history. Without --algorithm the server picks one.",
		Example: `  amc recommend
  amc recommend --algorithm content`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				var (
					listings []domain.Listing
					err      error
				)
				if algorithm == "" {
					listings, err = a.client.RecommendationsForYou(ctx)
				} else {
					listings, err = a.client.RecommendationsByAlgorithm(ctx, algorithm)
				}
				if err != nil {
					return err
				}
				return a.printListings(ctx, listings, "No recommendations yet.")
			})
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "collaborative, content, or hybrid")
	return cmd
}
