package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile     string
	accountsFile   string
	proxiesFile    string
	userAgentsFile string
	logLevel       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "farmer",
		Short:         "Keeps a set of mini app accounts logged in and claiming rewards",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(opts.logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", envOrDefault("CONFIG_FILE", "config.yaml"), "config file")
	flags.StringVar(&opts.accountsFile, "accounts", envOrDefault("ACCOUNTS_FILE", "accounts.yaml"), "accounts file")
	flags.StringVar(&opts.proxiesFile, "proxies", os.Getenv("PROXIES_FILE"), "proxies pool file, one proxy per line")
	flags.StringVar(&opts.userAgentsFile, "user-agents", os.Getenv("USER_AGENTS_FILE"), "user agents pool file, one per line")
	flags.StringVar(&opts.logLevel, "log-level", envOrDefault("LOG_LEVEL", "debug"), "debug, info, warn or error")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
	)

	return rootCmd
}

func setupLogger(level string) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	slogHandler := slog.NewTextHandler(
		os.Stdout,
		&slog.HandlerOptions{Level: slogLevel},
	)
	slog.SetDefault(slog.New(slogHandler))
	return nil
}

func envOrDefault(key string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
