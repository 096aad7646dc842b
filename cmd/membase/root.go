package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// cliOptions holds the persistent flags shared by every command.
type cliOptions struct {
	LogLevel  string
	LogFormat string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	cli := &cliOptions{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Load records into an indexed in-memory store and query them",
		Long: `membase loads JSON or YAML records into an in-memory store with
named secondary indexes, evaluates AND/OR queries against them and can
watch records expire under a timed policy.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			cli.logger = setupLogger(cmd.ErrOrStderr(), cli.LogLevel, cli.LogFormat)
			slog.SetDefault(cli.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cli.LogLevel, "log-level",
		getEnv("MEMBASE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: MEMBASE_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&cli.LogFormat, "log-format",
		getEnv("MEMBASE_LOG_FORMAT", "text"),
		"Log format: json, text (env: MEMBASE_LOG_FORMAT)")

	root.AddCommand(
		newQueryCmd(cli),
		newWatchCmd(cli),
		newValidateCmd(),
	)

	return root
}

func (c *cliOptions) validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, c.LogFormat) {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
