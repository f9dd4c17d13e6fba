package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"fireproof/internal/app"
	"fireproof/internal/config"
	"fireproof/internal/logger"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "fireproofctl",
		Short:         "FireProof administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		migrateCmd(),
		seedCmd(),
		tenantCmd(),
		userCmd(),
		importCmd(),
		verifyChainCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withContainer loads configuration, wires the service graph and runs fn.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Environment)

	ctx := cmd.Context()
	c, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}
