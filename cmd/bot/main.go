package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"channel-chatter/internal/config"
	"channel-chatter/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "channel-chatter",
		Short:        "Chat bot that joins channel conversations through a local language model",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading configuration.")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDumpCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newOperatorsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// setup loads the env file and configuration and installs the default
// logger. serving requires platform credentials.
func setup(cmd *cobra.Command, serving bool) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	envErr := godotenv.Load(envFile)

	load := config.Load
	if serving {
		load = config.New
	}
	cfg, err := load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("env file not loaded", "path", envFile, "err", envErr)
	}
	return cfg, logger, nil
}
