// Package main provides the photorate server binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"photo-rating/internal/app"
	"photo-rating/internal/config"
	"photo-rating/internal/db"
	"photo-rating/internal/logging"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "photorate"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

// setup loads configuration and builds the logger. A --log-level flag wins
// over LOG_LEVEL and the config file.
func (f *globalFlags) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := flags.setup(cmd)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context(), cfg, logger)
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Photo rating API server",
		Long: `Photorate serves a photo rating API. Users upload photos, rate
other users' photos to earn points and spend their balance to keep
their own photos visible.`,
		SilenceUsage: true,
		RunE:         serve,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  serve,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg, logger)
		},
	})

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate needs the postgres store, got %q", cfg.Store)
	}
	conn, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn.SQL); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}
