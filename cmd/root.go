// Package cmd holds the casos-api command line
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases"
)

var version = "0.1.0-dev"

type rootFlags struct {
	configPath string
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "casos-api",
		Short:         "Case registry for victims of institutional violence",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("CASOS_CONFIG"), "YAML config file (environment variables override it)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newAnniversariesCmd(flags),
		newMemberCmd(flags),
	)
	return rootCmd
}

// withDatabase loads the config, connects to mongo and calls fn
func withDatabase(ctx context.Context, flags *rootFlags, fn func(*config.Config, databases.DatabaseHelper) error) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := databases.NewClient(conf)
	if err != nil {
		return fmt.Errorf("creating database client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	return fn(conf, databases.NewDatabase(conf, client))
}
