package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/auto-marketplace/internal/api/handlers"
	"github.com/donaldgifford/auto-marketplace/internal/config"
	"github.com/donaldgifford/auto-marketplace/internal/mockapi"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
)

var (
	port           int
	favoritesShape string
	myListingsMode string
	noSeed         bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock API server",
	Example: `  marketplace-mock serve
  marketplace-mock serve --port 9000 --favorites-shape nested --my-listings-mode raw`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (overrides mock.port)")
	serveCmd.Flags().
		StringVar(&favoritesShape, "favorites-shape", "", "favorites payload shape: bare, wrapped, nested, listings")
	serveCmd.Flags().
		StringVar(&myListingsMode, "my-listings-mode", "", "my-listings response: paginated, raw")
	serveCmd.Flags().BoolVar(&noSeed, "no-seed", false, "start with an empty store")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if port != 0 {
		cfg.Mock.Port = port
	}
	if favoritesShape != "" {
		cfg.Mock.FavoritesShape = favoritesShape
	}
	if myListingsMode != "" {
		cfg.Mock.MyListingsMode = myListingsMode
	}
	if !handlers.ValidShape(cfg.Mock.FavoritesShape) {
		return fmt.Errorf("unknown favorites shape %q", cfg.Mock.FavoritesShape)
	}
	if cfg.Mock.MyListingsMode != config.MyListingsPaginated && cfg.Mock.MyListingsMode != config.MyListingsRaw {
		return fmt.Errorf("unknown my-listings mode %q", cfg.Mock.MyListingsMode)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := store.NewMemoryStore()
	if !noSeed {
		if err := store.Seed(ctx, s); err != nil {
			return fmt.Errorf("seeding store: %w", err)
		}
	}

	srv := mockapi.New(s, mockapi.Config{
		JWTSecret:      cfg.Mock.JWTSecret,
		AccessTTL:      cfg.Mock.AccessTTL,
		RefreshTTL:     cfg.Mock.RefreshTTL,
		FavoritesShape: cfg.Mock.FavoritesShape,
		RawMyListings:  cfg.Mock.MyListingsMode == config.MyListingsRaw,
		ReadTimeout:    cfg.Mock.ReadTimeout,
		WriteTimeout:   cfg.Mock.WriteTimeout,
		Version:        Version,
	}, log)

	sch, err := mockapi.NewScheduler(s, cfg.Mock.PruneInterval, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sch.Start()
	defer func() { <-sch.Stop().Done() }()

	addr := fmt.Sprintf("%s:%d", cfg.Mock.Host, cfg.Mock.Port)
	log.Info("starting server",
		"addr", addr,
		"favorites_shape", cfg.Mock.FavoritesShape,
		"my_listings_mode", cfg.Mock.MyListingsMode,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
