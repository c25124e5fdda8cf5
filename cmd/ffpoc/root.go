package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/ffpoc/config"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// commandContext carries what every subcommand shares: the configuration,
// loaded once before the command runs.
type commandContext struct {
	cfg       *config.Config
	assetBase string
	logLevel  string
}

func (c *commandContext) load(stderr bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.assetBase != "" {
		cfg.AssetBaseURL = c.assetBase
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := logger.Setup(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, Stderr: stderr}); err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	c.cfg = cfg
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "ffpoc",
		Short:         "Extract or compress the audio track of a video with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.assetBase, "asset-base", "", "Base URL of ffmpeg-core.js and ffmpeg-core.wasm")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCommand(ctx))
	for _, cmd := range newActionCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ffpoc %s\n", version)
		},
	}
}
