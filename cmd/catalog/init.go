package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long:  "Creates a catalog.yaml (or the file given with --config) with the default configuration.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	if config.Exists(globalConfigPath) {
		return fmt.Errorf("config already exists: %s", globalConfigPath)
	}

	if err := config.WriteDefault(globalConfigPath); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", globalConfigPath)
	return nil
}
