package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"fridgechef/internal/api"
	"fridgechef/internal/config"
	"fridgechef/internal/logging"
	"fridgechef/internal/recipe"
	"fridgechef/internal/recommend"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fridgechef",
		Short: "Recommends recipes from the contents of a fridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $CONFIG_PATH or ./config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Seed the store if empty and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})

	var force bool
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the seed document into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), configPath, force)
		},
	}
	seedCmd.Flags().BoolVar(&force, "force", false, "Delete existing data before seeding")
	rootCmd.AddCommand(seedCmd)

	return rootCmd
}

// setup loads config, initializes logging and opens the store.
func setup(configPath string) (*config.Config, recipe.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	sqlStore, err := recipe.NewSQLStore(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating store: %w", err)
	}
	if cfg.Cache.Size == 0 {
		return cfg, sqlStore, nil
	}

	cached, err := recipe.NewCachedStore(sqlStore, cfg.Cache.Size)
	if err != nil {
		_ = sqlStore.Close()
		return nil, nil, err
	}
	return cfg, cached, nil
}

func loadSeed(cfg *config.Config) (*recipe.Seed, error) {
	if cfg.Seed.Path == "" {
		return recipe.DefaultSeed()
	}
	return recipe.ReadSeedFile(cfg.Seed.Path)
}

func seedStore(ctx context.Context, cfg *config.Config, store recipe.Store) error {
	seed, err := loadSeed(cfg)
	if err != nil {
		return err
	}
	created, err := store.LoadSeed(ctx, seed)
	if err != nil {
		return err
	}
	if created {
		logging.Info().Msg("database created")
	} else {
		logging.Info().Msg("database already exists")
	}
	return nil
}

func runSeed(ctx context.Context, configPath string, force bool) error {
	cfg, store, err := setup(configPath)
	if err != nil {
		logging.Err(err).Msg("startup failed")
		return err
	}
	defer store.Close()

	if force {
		if err := store.Reset(ctx); err != nil {
			logging.Err(err).Msg("reset failed")
			return err
		}
	}
	if err := seedStore(ctx, cfg, store); err != nil {
		logging.Err(err).Msg("seed failed")
		return err
	}
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, store, err := setup(configPath)
	if err != nil {
		logging.Err(err).Msg("startup failed")
		return err
	}
	defer store.Close()

	if err := seedStore(ctx, cfg, store); err != nil {
		logging.Err(err).Msg("seed failed")
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(recommend.NewEngine(store), store)
	handler.DefaultWindow = cfg.Recommend.Window
	handler.DefaultCount = cfg.Recommend.PopularCount
	handler.MaxBodyBytes = cfg.Server.MaxBodyBytes

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
