package farmer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	assetshandler "farmer/app/pkg/assets-handler"
	customerrors "farmer/app/pkg/custom-types/custom-errors"
	"farmer/app/pkg/messaging"
	"farmer/app/pkg/utils/randx"
)

// WorkerResult is the outcome of one account worker.
// Started is false when the launcher stopped before reaching the account.
type WorkerResult struct {
	Session string
	Started bool
	Err     error
}

// Launcher starts one AccountWorker per account with a jittered stagger and
// waits for all of them. A worker failure never touches its siblings: there
// is no shared context cancellation between workers.
type Launcher struct {
	Settings *Settings

	// NewMessenger returns a fresh messaging client bound to the account identity.
	NewMessenger func(acc assetshandler.Account) (messaging.Client, error)

	// NewBackend returns a backend client with its own cookie jar and proxy.
	NewBackend func(acc assetshandler.Account) (Backend, error)

	// Stats, when set, must hold one entry per account in the same order.
	Stats []*AccountStats

	Rand  *rand.Rand
	Sleep SleepFunc
	Now   func() time.Time
	Log   *slog.Logger
}

func (l *Launcher) setDefaults(accountsAmount int) {
	if l.Rand == nil {
		l.Rand = randx.New()
	}
	if l.Sleep == nil {
		l.Sleep = SleepContext
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.Log == nil {
		l.Log = slog.Default()
	}
	if len(l.Stats) != accountsAmount {
		l.Stats = make([]*AccountStats, 0, accountsAmount)
	}
}

func (l *Launcher) newWorker(id int, acc assetshandler.Account, stats *AccountStats) (*AccountWorker, error) {
	messenger, err := l.NewMessenger(acc)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	backendClient, err := l.NewBackend(acc)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	return &AccountWorker{
		ID:        id,
		Account:   acc,
		Messenger: messenger,
		Backend:   backendClient,
		Settings:  l.Settings,
		Stats:     stats,
		// math/rand generators are not safe for concurrent use: one per worker
		Rand:  rand.New(rand.NewSource(l.Rand.Int63())),
		Sleep: l.Sleep,
		Now:   l.Now,
		Log:   l.Log,
	}, nil
}

// Run returns once every started worker has returned. Results follow the
// accounts order.
func (l *Launcher) Run(ctx context.Context, accounts []assetshandler.Account) []WorkerResult {
	l.setDefaults(len(accounts))
	if len(l.Stats) == 0 {
		for _, acc := range accounts {
			l.Stats = append(l.Stats, NewAccountStats(acc.Session))
		}
	}

	results := make([]WorkerResult, len(accounts))
	for i, acc := range accounts {
		results[i].Session = acc.Session
	}

	var wg sync.WaitGroup

launch:
	for i, acc := range accounts {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(accounts); j++ {
				results[j].Err = err
			}
			break launch
		}

		wk, err := l.newWorker(i+1, acc, l.Stats[i])
		if err != nil {
			results[i].Err = customerrors.NewSessionError(acc.Session, err)
			l.Stats[i].setState(StateTerminated)
			l.Log.Error("Could not create worker", "session", acc.Session, "error", err)
		} else {
			results[i].Started = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i].Err = wk.Run(ctx)
			}()
		}

		if i == len(accounts)-1 {
			break
		}

		delay := randx.Duration(l.Rand, l.Settings.StartDelay)
		l.Log.Info(fmt.Sprintf("Next account starts in %.1fs", delay.Seconds()), "next", accounts[i+1].Session)
		if err := l.Sleep(ctx, delay); err != nil {
			for j := i + 1; j < len(accounts); j++ {
				results[j].Err = err
			}
			break launch
		}
	}

	l.Log.Info("All account workers launched")
	wg.Wait()

	for _, res := range results {
		switch {
		case !res.Started:
		case customerrors.IsFatal(res.Err):
			l.Log.Error("Worker finished with invalid session", "session", res.Session, "error", res.Err)
		case res.Err != nil:
			l.Log.Info("Worker finished", "session", res.Session, "reason", res.Err)
		}
	}

	return results
}
