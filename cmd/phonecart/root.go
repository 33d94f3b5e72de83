package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/huyndq/phonecart/internal/api"
	"github.com/huyndq/phonecart/internal/auth"
	"github.com/huyndq/phonecart/internal/config"
	"github.com/huyndq/phonecart/internal/controller"
	"github.com/huyndq/phonecart/internal/events"
	"github.com/huyndq/phonecart/internal/guestcart"
	"github.com/huyndq/phonecart/internal/kv"
	"github.com/huyndq/phonecart/internal/reconcile"
	"github.com/spf13/cobra"
)

type app struct {
	cfg        *config.Config
	store      kv.Store
	bus        *events.Bus
	creds      *auth.CredentialStore
	client     *api.Client
	guest      *guestcart.Store
	reconciler *reconcile.Reconciler
	ctrl       *controller.Controller

	shutdownTracing func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	var (
		store kv.Store
		err   error
	)

	switch cfg.LocalStore.Backend {
	case "redis":
		store, err = kv.NewRedisStoreFromConfig(ctx, &cfg.RedisConnect)
	default:
		store, err = kv.NewFileStore(cfg.LocalStore.Dir)
	}

	if err != nil {
		return nil, fmt.Errorf("initializing local store: %w", err)
	}

	bus := events.NewBus()

	creds := auth.NewCredentialStore(store, bus, logger)
	creds.Load(ctx)

	client := api.NewClient(&cfg.API, creds, logger)
	guest := guestcart.NewStore(store, logger)

	a := &app{
		cfg:        cfg,
		store:      store,
		bus:        bus,
		creds:      creds,
		client:     client,
		guest:      guest,
		reconciler: reconcile.NewReconciler(guest, client, bus, logger),
		ctrl:       controller.New(client, guest, creds, bus, logger),
	}

	// The storage-change notification: another process touching the local
	// store only triggers a resync signal, never a direct state patch. The
	// watcher does not distinguish this process's writes from external
	// ones; signals carry no payload, so a duplicate wakeup costs one
	// extra refetch and nothing else.
	if fs, ok := store.(*kv.FileStore); ok && cfg.LocalStore.Watch {
		err := fs.Watch(func(key string) {
			switch key {
			case kv.GuestCartKey:
				bus.EmitCartChanged()
			case kv.AuthTokenKey:
				creds.Load(context.Background())
				bus.EmitAuthChanged()
			}
		})
		if err != nil {
			logger.Warn("local store watcher unavailable", slog.String("error", err.Error()))
		}
	}

	if cfg.Tracing.OTLPEndpoint != "" {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			logger.Warn("tracing unavailable", slog.String("error", err.Error()))
		} else {
			a.shutdownTracing = shutdown
		}
	}

	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}

	if err := a.store.Close(); err != nil {
		slog.Warn("local store close failed", slog.String("error", err.Error()))
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phonecart",
		Short: "Shopping cart client for the phone store API",
		Long: `phonecart is the cart client of the phone retailer storefront.

Unauthenticated visitors get a durable local guest cart; after login the
server cart is the single source of truth and the guest cart is merged into
it once, best-effort.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		cartCmd(),
		syncCmd(),
	)

	return cmd
}
