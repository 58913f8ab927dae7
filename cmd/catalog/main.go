// Package main provides the entry point for the catalog CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

var (
	version          = "0.1.0-dev"
	globalConfigPath string
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "A searchable catalog of companies, investors, funds and people",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalConfigPath, "config", "c", config.DefaultConfigFile, "Path to the config file")

	rootCmd.AddCommand(
		newInitCmd(),
		newLoadCmd(),
		newServeCmd(),
		newSearchCmd(),
		newRepairCmd(),
		newStatusCmd(),
	)

	return rootCmd
}
