package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/auto-marketplace/internal/api/client"
	"github.com/donaldgifford/auto-marketplace/internal/config"
	"github.com/donaldgifford/auto-marketplace/internal/favorites"
	"github.com/donaldgifford/auto-marketplace/internal/mylistings"
	"github.com/donaldgifford/auto-marketplace/internal/session"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// app holds the dependencies one command invocation needs.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	out    io.Writer
	errOut io.Writer
	json   bool
	creds  *session.Store
	events *session.Events
	client *apiclient.Client

	rdb      *redis.Client
	resolver *favorites.Resolver

	unsubscribe func()
	watcher     sync.WaitGroup
}

// newApp loads configuration and wires the client for cmd. Callers must
// defer close.
func newApp(cmd *cobra.Command, v *viper.Viper) (*app, error) {
	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if server := v.GetString("server"); server != "" {
		cfg.API.BaseURL = server
	}
	if level := v.GetString("log_level"); level != "" {
		cfg.Logging.Level = level
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	creds, err := session.NewStore(cfg.Session.CredentialsPath())
	if err != nil {
		return nil, fmt.Errorf("opening credentials: %w", err)
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		json:   v.GetString("output") == formatJSON,
		creds:  creds,
		events: session.NewEvents(),
	}
	a.watchSession(a.errOut)

	a.client = apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithRateLimit(cfg.API.RateLimit.PerSecond, cfg.API.RateLimit.Burst),
		apiclient.WithCredentials(creds),
		apiclient.WithSessionEvents(a.events),
		apiclient.WithLogger(log),
	)
	return a, nil
}

// watchSession prints a single re-login prompt however many calls in this
// invocation fail on authorization.
func (a *app) watchSession(w io.Writer) {
	ch, unsubscribe := a.events.Subscribe()
	a.unsubscribe = unsubscribe

	a.watcher.Add(1)
	go func() {
		defer a.watcher.Done()
		prompted := false
		for ev := range ch {
			if prompted {
				continue
			}
			prompted = true
			a.log.Debug("session event", "path", ev.Path, "status", ev.StatusCode, "code", ev.Code)
			fmt.Fprintln(w, "session expired, run amc login")
		}
	}()
}

func (a *app) close() {
	a.unsubscribe()
	a.watcher.Wait()
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("closing redis", "err", err)
		}
	}
}

// favorites lazily opens the favorite cache and returns the resolver.
func (a *app) favorites(ctx context.Context) (*favorites.Resolver, error) {
	if a.resolver != nil {
		return a.resolver, nil
	}

	var backend favorites.Backend
	switch a.cfg.Favorites.Backend {
	case config.BackendRedis:
		rc := a.cfg.Favorites.Redis
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		backend = favorites.NewRedisBackend(a.rdb, rc.KeyPrefix+a.username())
	default:
		backend = favorites.NewFileBackend(a.cfg.Session.FavoritesPath())
	}

	cache, err := favorites.NewCache(ctx, backend, favorites.WithCacheLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.resolver = favorites.NewResolver(a.client, cache,
		favorites.WithConcurrency(a.cfg.Favorites.Concurrency),
		favorites.WithLogger(a.log),
	)
	return a.resolver, nil
}

func (a *app) username() string {
	c := a.creds.Credentials()
	if c.User == nil || c.User.Username == "" {
		return "anonymous"
	}
	return c.User.Username
}

func (a *app) aggregator(onFirstPage func(*mylistings.Collection)) *mylistings.Aggregator {
	opts := []mylistings.Option{
		mylistings.WithPageSize(a.cfg.Listings.PageSize),
		mylistings.WithFallbackLimit(a.cfg.Listings.FallbackLimit),
		mylistings.WithLogger(a.log),
	}
	if onFirstPage != nil {
		opts = append(opts, mylistings.WithOnFirstPage(onFirstPage))
	}
	return mylistings.New(a.client, opts...)
}

// run builds the app for cmd, calls fn, and tears the app down.
func run(cmd *cobra.Command, v *viper.Viper, fn func(context.Context, *app) error) error {
	a, err := newApp(cmd, v)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}
