package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apiclient "github.com/donaldgifford/auto-marketplace/internal/api/client"
	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func listingsCmd(v *viper.Viper) *cobra.Command {
	listingsRoot := &cobra.Command{
		Use:   "listings",
		Short: "Browse and manage car listings",
	}

	listingsRoot.AddCommand(
		listingsListCmd(v),
		listingsGetCmd(v),
		listingsCreateCmd(v),
		listingsUpdateCmd(v),
		listingsDeleteCmd(v),
		listingsSimilarCmd(v),
		listingsUserCmd(v),
	)

	return listingsRoot
}

func listingsListCmd(v *viper.Viper) *cobra.Command {
	var (
		p            apiclient.ListListingsParams
		fuel         string
		transmission string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listings with optional filters",
		Example: `  # Newest listings
  amc listings list

  # Diesel BMWs under 30,000, cheapest first
  amc listings list --brand BMW --fuel diesel --max-price 30000 --order price

  # Second page of a search
  amc listings list --search golf --page 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.FuelType = domain.FuelType(fuel)
			p.Transmission = domain.Transmission(transmission)
			return run(cmd, v, func(ctx context.Context, a *app) error {
				page, err := a.client.ListListings(ctx, &p)
				if err != nil {
					return err
				}
				a.annotate(ctx, page.Results)

				if a.json {
					return outputJSON(a.out, page)
				}
				if len(page.Results) == 0 {
					fmt.Fprintln(a.out, "No listings found.")
					return nil
				}
				fmt.Fprintf(a.out, "Showing %d of %d listings\n\n", len(page.Results), page.Count)
				if err := printListingsTable(a.out, page.Results); err != nil {
					return err
				}
				if page.HasNext() {
					fmt.Fprintln(a.out, "\nMore results available, use --page.")
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Search, "search", "", "free-text search")
	f.StringVar(&p.Brand, "brand", "", "exact brand")
	f.StringVar(&p.Model, "model", "", "model substring")
	f.StringVar(&fuel, "fuel", "", "fuel type (benzina, diesel, electric, hibrid_benzina, hibrid_diesel, GPL)")
	f.StringVar(&transmission, "transmission", "", "transmission (manuala, automata, semi-automata)")
	f.IntVar(&p.MinPrice, "min-price", 0, "minimum price")
	f.IntVar(&p.MaxPrice, "max-price", 0, "maximum price")
	f.IntVar(&p.MinYear, "min-year", 0, "minimum year of manufacture")
	f.IntVar(&p.MaxYear, "max-year", 0, "maximum year of manufacture")
	f.IntVar(&p.MaxMileage, "max-mileage", 0, "maximum mileage")
	f.StringVar(&p.Ordering, "order", "", "ordering (price, -price, mileage, year_of_manufacture, -created_at)")
	f.IntVar(&p.Page, "page", 0, "page number")
	f.IntVar(&p.Limit, "limit", 0, "page size")

	return cmd
}

func listingsGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				var l *domain.Listing
				if r, ferr := a.favorites(ctx); ferr == nil {
					l, err = r.Listing(ctx, id)
				} else {
					a.log.Debug("favorite cache unavailable", "err", ferr)
					l, err = a.client.GetListing(ctx, id)
				}
				if err != nil {
					return err
				}
				a.client.RecordInteraction(ctx, domain.Interaction{
					ListingID: id,
					Type:      domain.InteractionView,
				})

				if a.json {
					return outputJSON(a.out, l)
				}
				return printListingDetail(a.out, l)
			})
		},
	}
}

func listingsCreateCmd(v *viper.Viper) *cobra.Command {
	var (
		file   string
		images []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new listing",
		Long: "Publish a listing described by a YAML or JSON file. Images are\n" +
			"uploaded with it; the first becomes the main image.",
		Example: `  amc listings create --file golf.yaml --image front.jpg --image back.jpg`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := &domain.ListingInput{}
			if err := readListingFile(file, in); err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				uploads, done, err := openUploads(images)
				if err != nil {
					return err
				}
				defer done()

				l, err := a.client.CreateListing(ctx, in, uploads...)
				if err != nil {
					return err
				}
				if a.json {
					return outputJSON(a.out, l)
				}
				fmt.Fprintf(a.out, "Created listing %d.\n", l.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "listing file (YAML or JSON)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image to upload (repeatable)")
	cobra.CheckErr(cmd.MarkFlagRequired("file"))
	return cmd
}

func listingsUpdateCmd(v *viper.Viper) *cobra.Command {
	var (
		file         string
		price        int
		images       []string
		deleteImages []int64
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update one of your listings",
		Long: "Update a listing. Fields from --file and --price are applied on\n" +
			"top of the current values; images can be added and removed.",
		Example: `  amc listings update 12 --price 18500
  amc listings update 12 --image interior.jpg --delete-image 31`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				current, err := a.client.GetListing(ctx, id)
				if err != nil {
					return err
				}
				in := listingInput(current)
				if file != "" {
					if err := readListingFile(file, in); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("price") {
					in.Price = price
				}

				uploads, done, err := openUploads(images)
				if err != nil {
					return err
				}
				defer done()

				l, err := a.client.UpdateListing(ctx, id, in, uploads, deleteImages)
				if err != nil {
					return err
				}
				if a.json {
					return outputJSON(a.out, l)
				}
				fmt.Fprintf(a.out, "Updated listing %d.\n", l.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "listing fields to change (YAML or JSON)")
	cmd.Flags().IntVar(&price, "price", 0, "new price")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image to add (repeatable)")
	cmd.Flags().Int64SliceVar(&deleteImages, "delete-image", nil, "image ID to remove (repeatable)")
	return cmd
}

func listingsDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				if err := a.client.DeleteListing(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted listing %d.\n", id)
				return nil
			})
		},
	}
}

func listingsSimilarCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "similar ID",
		Short: "Show listings similar to one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				listings, err := a.client.SimilarListings(ctx, id)
				if err != nil {
					return err
				}
				return a.printListings(ctx, listings, "No similar listings.")
			})
		},
	}
}

func listingsUserCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "user USER_ID",
		Short: "Show the public listings of a seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, v, func(ctx context.Context, a *app) error {
				listings, err := a.client.UserListings(ctx, id)
				if err != nil {
					return err
				}
				return a.printListings(ctx, listings, "This seller has no listings.")
			})
		},
	}
}

// printListings annotates listings from the favorite cache and renders
// them in the selected format.
func (a *app) printListings(ctx context.Context, listings []domain.Listing, empty string) error {
	a.annotate(ctx, listings)
	if a.json {
		return outputJSON(a.out, listings)
	}
	if len(listings) == 0 {
		fmt.Fprintln(a.out, empty)
		return nil
	}
	return printListingsTable(a.out, listings)
}

// annotate fills unset favorite flags from the cache. A cache that cannot
// be opened leaves the listings as they are.
func (a *app) annotate(ctx context.Context, listings []domain.Listing) {
	r, err := a.favorites(ctx)
	if err != nil {
		a.log.Debug("favorite cache unavailable", "err", err)
		return
	}
	for i := range listings {
		r.Cache().Annotate(&listings[i])
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// readListingFile decodes a YAML or JSON listing file onto in. Fields the
// file leaves out keep their current values.
func readListingFile(path string, in *domain.ListingInput) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from trusted CLI flag
	if err != nil {
		return fmt.Errorf("reading listing file: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing listing file: %w", err)
	}
	// Round-trip through JSON so the wire field names apply.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding listing file: %w", err)
	}
	if err := json.Unmarshal(raw, in); err != nil {
		return fmt.Errorf("decoding listing file: %w", err)
	}
	return nil
}

func listingInput(l *domain.Listing) *domain.ListingInput {
	return &domain.ListingInput{
		Title:             l.Title,
		Brand:             l.Brand,
		Model:             l.Model,
		YearOfManufacture: l.YearOfManufacture,
		Mileage:           l.Mileage,
		Power:             l.Power,
		EngineCapacity:    l.EngineCapacity,
		Color:             l.Color,
		ConditionState:    l.ConditionState,
		FuelType:          l.FuelType,
		EmissionStandard:  l.EmissionStandard,
		Transmission:      l.Transmission,
		DriveType:         l.DriveType,
		BodyType:          l.BodyType,
		Location:          l.Location,
		Price:             l.Price,
		Description:       l.Description,
		Features:          l.Features,
	}
}

// openUploads opens every image path. The returned func closes them.
func openUploads(paths []string) ([]apiclient.Upload, func(), error) {
	uploads := make([]apiclient.Upload, 0, len(paths))
	files := make([]*os.File, 0, len(paths))
	done := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, p := range paths {
		u, f, err := apiclient.OpenUpload(p)
		if err != nil {
			done()
			return nil, nil, err
		}
		uploads = append(uploads, u)
		files = append(files, f)
	}
	return uploads, done, nil
}
