package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/auto-marketplace/internal/api/client"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func favoritesCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite listings",
	}

	root.AddCommand(
		favoritesListCmd(v),
		favoritesToggleCmd(v),
		favoritesHasCmd(v),
	)
	return root
}

func favoritesListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your favorite listings",
		Long: "Fetch your favorites from the server, load each listing, and\n" +
			"refresh the local favorite cache. Listings that fail to load\n" +
			"are skipped.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				if !a.client.Authenticated() {
					return apiclient.ErrNotAuthenticated
				}
				r, err := a.favorites(ctx)
				if err != nil {
					return err
				}
				return a.printListings(ctx, r.Resolve(ctx), "No favorites yet.")
			})
		},
	}
}

func favoritesToggleCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Add a listing to favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				r, err := a.favorites(ctx)
				if err != nil {
					return err
				}
				added, err := r.Toggle(ctx, id)
				if err != nil {
					return err
				}

				kind := domain.InteractionUnfavorite
				msg := "Removed listing %d from favorites.\n"
				if added {
					kind = domain.InteractionFavorite
					msg = "Added listing %d to favorites.\n"
				}
				a.client.RecordInteraction(ctx, domain.Interaction{ListingID: id, Type: kind})

				if a.json {
					return outputJSON(a.out, map[string]any{"id": id, "favorite": added})
				}
				fmt.Fprintf(a.out, msg, id)
				return nil
			})
		},
	}
}

func favoritesHasCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "has ID",
		Short: "Check the local favorite cache for a listing",
		Long: "Report whether a listing is a favorite according to the local\n" +
			"cache. No request is made; run 'amc favorites list' to refresh.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				r, err := a.favorites(ctx)
				if err != nil {
					return err
				}
				has := r.Cache().HasListing(id)
				if a.json {
					return outputJSON(a.out, map[string]any{"id": id, "favorite": has})
				}
				if has {
					fmt.Fprintf(a.out, "Listing %d is a favorite.\n", id)
				} else {
					fmt.Fprintf(a.out, "Listing %d is not a favorite.\n", id)
				}
				return nil
			})
		},
	}
}
