package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"farmer/app/pkg/assert"
	"farmer/app/pkg/farmer"
	"farmer/app/pkg/utils/pathx"
	"farmer/app/pkg/utils/randx"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var statusLogPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start one worker per account and farm until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			randGen := randx.New()
			loaded := loadAssets(opts, randGen)

			statusLogFile, err := os.OpenFile(
				pathx.FromCwd(statusLogPath),
				os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666,
			)
			assert.NoError(err, "status log file must be created to start the farmer", assert.AssertData{"path": statusLogPath})
			defer statusLogFile.Close()

			settings := farmer.SettingsFromConfig(&loaded.config)
			stats := make([]*farmer.AccountStats, 0, len(loaded.accounts))
			for _, acc := range loaded.accounts {
				stats = append(stats, farmer.NewAccountStats(acc.Session))
			}

			go farmer.LogStatusLoop(
				ctx,
				stats,
				time.Duration(loaded.config.Core.StatusLogSeconds)*time.Second,
				statusLogFile,
			)

			slog.Info("Starting farmer", "accounts", len(loaded.accounts))

			launcher := &farmer.Launcher{
				Settings:     settings,
				NewMessenger: messengerFactory(&loaded.config),
				NewBackend:   backendFactory(&loaded.config),
				Stats:        stats,
				Rand:         randGen,
			}
			launcher.Run(ctx, loaded.accounts)

			return nil
		},
	}

	cmd.Flags().StringVar(&statusLogPath, "status-log", envOrDefault("STATUS_LOG_FILE", "status.log"), "status log file")

	return cmd
}
