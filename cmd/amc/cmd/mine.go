package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/donaldgifford/auto-marketplace/internal/mylistings"
)

func mineCmd(v *viper.Viper) *cobra.Command {
	var page int

	root := &cobra.Command{
		Use:   "mine",
		Short: "Show your own listings",
		Long: "Collect every listing you own, following the server's pages,\n" +
			"and show one local page of the result.",
		Example: `  amc mine
  amc mine --page 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				progress := func(c *mylistings.Collection) {
					if c.PageCount() > 1 {
						fmt.Fprintf(a.errOut, "loading %d pages...\n", c.PageCount())
					}
				}
				coll, err := a.aggregator(progress).Aggregate(ctx)
				if err != nil && coll.Len() == 0 {
					return err
				}
				return printCollectionPage(a, coll, page)
			})
		},
	}
	root.Flags().IntVar(&page, "page", 1, "local page to show")
	root.AddCommand(mineDeleteCmd(v))
	return root
}

func mineDeleteCmd(v *viper.Viper) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your listings and show the updated page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				coll, err := a.aggregator(nil).Aggregate(ctx)
				if err != nil && coll.Len() == 0 {
					return err
				}
				if err := a.client.DeleteListing(ctx, id); err != nil {
					return err
				}
				page = coll.Remove(id, page)
				fmt.Fprintf(a.out, "Deleted listing %d.\n\n", id)
				return printCollectionPage(a, coll, page)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "local page currently shown")
	return cmd
}

func printCollectionPage(a *app, coll *mylistings.Collection, page int) error {
	listings := coll.Page(page)
	if a.json {
		return outputJSON(a.out, map[string]any{
			"page":     page,
			"pages":    coll.PageCount(),
			"count":    coll.Len(),
			"results":  listings,
			"complete": coll.StoppedAt != mylistings.StopError,
		})
	}
	if coll.Len() == 0 {
		fmt.Fprintln(a.out, "You have no listings.")
		return nil
	}
	fmt.Fprintf(a.out, "Page %d of %d (%d listings)\n\n", page, coll.PageCount(), coll.Len())
	if err := printListingsTable(a.out, listings); err != nil {
		return err
	}
	if coll.StoppedAt == mylistings.StopError {
		fmt.Fprintln(a.out, "\nSome pages failed to load; the list may be incomplete.")
	}
	return nil
}
