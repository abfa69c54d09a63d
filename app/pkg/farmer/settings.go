package farmer

import (
	"context"
	"time"

	assetshandler "farmer/app/pkg/assets-handler"
	"farmer/app/pkg/utils/randx"
)

// Status fetches are attempted at most this many times per cycle when the
// backend embeds an authorization error in the response.
const statusAttempts = 2

// Settings is built once at startup and shared read-only by the launcher and
// every account worker.
type Settings struct {
	SleepTime     randx.Range[time.Duration]
	StartDelay    randx.Range[time.Duration]
	TokenLifetime randx.Range[time.Duration]
	ErrorBackoff  randx.Range[time.Duration]
	RetryDelay    randx.Range[time.Duration]

	// AuthErrorDelay is the pause after a failed token acquisition and
	// before the retry of an unauthorized status fetch.
	AuthErrorDelay time.Duration

	WarmupRequests bool
	WarmupPause    time.Duration

	RefID               string
	FallbackRefID       string
	RefIDWeight         int
	FallbackRefIDWeight int

	BotUsername  string
	AppShortName string
	Platform     string

	ProxyCheckUrl     string
	ProxyCheckTimeout time.Duration
}

func SettingsFromConfig(cfg *assetshandler.Config) *Settings {
	return &Settings{
		SleepTime:           cfg.Core.SleepTime.Duration(),
		StartDelay:          cfg.Core.StartDelay.Duration(),
		TokenLifetime:       cfg.Core.TokenLifetime.Duration(),
		ErrorBackoff:        cfg.Core.ErrorBackoff.Duration(),
		RetryDelay:          cfg.Core.RetryDelay.Duration(),
		AuthErrorDelay:      time.Duration(cfg.Core.AuthErrorDelay) * time.Second,
		WarmupRequests:      cfg.Http.WarmupRequests,
		WarmupPause:         time.Second,
		RefID:               cfg.Core.RefID,
		FallbackRefID:       cfg.Core.FallbackRefID,
		RefIDWeight:         cfg.Core.RefIDWeight,
		FallbackRefIDWeight: cfg.Core.FallbackRefIDWeight,
		BotUsername:         cfg.Messaging.BotUsername,
		AppShortName:        cfg.Messaging.AppShortName,
		Platform:            cfg.Messaging.Platform,
		ProxyCheckUrl:       cfg.Http.ProxyCheckUrl,
		ProxyCheckTimeout:   time.Duration(cfg.Http.ProxyCheckTimeout) * time.Second,
	}
}

// SleepFunc pauses for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
