package farmer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	assetshandler "farmer/app/pkg/assets-handler"
	"farmer/app/pkg/backend"
	customerrors "farmer/app/pkg/custom-types/custom-errors"
	"farmer/app/pkg/messaging"
	"farmer/app/pkg/utils/randx"
)

// Time given to a disconnect that runs after the worker context is done.
const releaseTimeout = 5 * time.Second

// errRestartCycle abandons the current cycle without the error backoff.
var errRestartCycle = errors.New("restart cycle")

// Backend is the part of the backend client an account worker depends on.
type Backend interface {
	Login(ctx context.Context, initData backend.InitData, inviterUserId string) (backend.LoginResponse, error)
	Warmup(ctx context.Context, pause func(context.Context) error) error
	Summary(ctx context.Context) (backend.Snapshot, error)
	ClaimFirstReward(ctx context.Context) (bool, error)
	CheckProxy(ctx context.Context, checkUrl string, timeout time.Duration) (string, error)
}

// AccountWorker drives one account forever:
// ensure a valid token, login, fetch the status, claim when needed, sleep.
// It owns its token, messaging client and backend client exclusively.
type AccountWorker struct {
	ID      int
	Account assetshandler.Account

	Messenger messaging.Client
	Backend   Backend
	Settings  *Settings
	Stats     *AccountStats

	Rand  *rand.Rand
	Sleep SleepFunc
	Now   func() time.Time
	Log   *slog.Logger

	log        *slog.Logger
	token      *AuthorizationToken
	startParam string
}

// Run returns only when ctx is done or the account identity became unusable.
// The returned error of the latter wraps customerrors.ErrInvalidSession.
func (wk *AccountWorker) Run(ctx context.Context) (err error) {
	wk.setDefaults()

	defer func() {
		if r := recover(); r != nil {
			err = customerrors.NewSessionError(wk.Account.Session, fmt.Errorf("recover panic: %v", r))
			wk.log.Error("Worker crashed", "error", err)
		}
		wk.release()
		wk.Stats.setState(StateTerminated)
	}()

	if wk.Account.Proxy != nil {
		wk.checkProxy(ctx)
	}
	wk.Stats.setState(StateUnauthenticated)

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			wk.log.Info("Worker stopped", "reason", ctxErr)
			return ctxErr
		}

		sleepTime := randx.Duration(wk.Rand, wk.Settings.SleepTime)

		err := wk.cycle(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			continue
		case customerrors.IsFatal(err):
			wk.log.Error("Invalid session, worker terminated", "error", err)
			return customerrors.NewSessionError(wk.Account.Session, err)
		case errors.Is(err, errRestartCycle):
			continue
		default:
			backoff := randx.Duration(wk.Rand, wk.Settings.ErrorBackoff)
			wk.recordError(err)
			wk.log.Error("Unknown error", "error", err, "backoff", backoff)
			_ = wk.Sleep(ctx, backoff)
			continue
		}

		wk.Stats.setState(StateSleeping)
		wk.log.Info(fmt.Sprintf("Sleep %.1f min", sleepTime.Minutes()))
		_ = wk.Sleep(ctx, sleepTime)
	}
}

func (wk *AccountWorker) setDefaults() {
	if wk.Sleep == nil {
		wk.Sleep = SleepContext
	}
	if wk.Now == nil {
		wk.Now = time.Now
	}
	if wk.Rand == nil {
		wk.Rand = randx.New()
	}
	if wk.Stats == nil {
		wk.Stats = NewAccountStats(wk.Account.Session)
	}
	if wk.Log == nil {
		wk.Log = slog.Default()
	}
	wk.log = wk.Log.With("worker", wk.ID, "session", wk.Account.Session)
}

func (wk *AccountWorker) cycle(ctx context.Context) error {
	wk.Stats.update(func(s *AccountStats) {
		s.cycles++
		s.lastCycleAt = wk.Now()
	})

	if wk.token.Expired(wk.Now()) {
		wk.Stats.setState(StateAuthenticating)

		token, err := wk.acquireToken(ctx)
		if err != nil {
			wk.token = nil
			wk.Stats.setState(StateUnauthenticated)
			if customerrors.IsFatal(err) || ctx.Err() != nil {
				return err
			}

			wk.recordError(err)
			wk.log.Error("Unknown error during Authorization", "error", err)
			_ = wk.Sleep(ctx, wk.Settings.AuthErrorDelay)
			return errRestartCycle
		}

		wk.token = token
		wk.Stats.update(func(s *AccountStats) {
			s.acquisitions++
			s.state = StateAuthenticated
		})
		wk.log.Info("Authorization token acquired", "lifetime", token.Lifetime)
	}

	inviterID, err := DecodeInviterID(wk.startParam)
	if err != nil {
		return fmt.Errorf("inviter id: %w", err)
	}

	login, err := wk.Backend.Login(ctx, wk.token.Data, inviterID)
	if err != nil {
		return err
	}
	if !login.Success {
		rejected := fmt.Errorf("%w: %s", customerrors.ErrLoginRejected, login.Msg)
		wk.token = nil
		wk.Stats.update(func(s *AccountStats) {
			s.loginRejections++
			s.lastError = rejected.Error()
			s.state = StateUnauthenticated
		})
		wk.log.Warn("Error while logging in", "error", rejected)
		_ = wk.Sleep(ctx, randx.Duration(wk.Rand, wk.Settings.RetryDelay))
		return errRestartCycle
	}
	wk.Stats.update(func(s *AccountStats) { s.logins++ })

	snapshot, err := wk.fetchStatus(ctx)
	if err != nil {
		return err
	}

	balance, err := strconv.ParseFloat(snapshot.AvailableAmount.String(), 64)
	if err != nil {
		return fmt.Errorf("%w: available amount %q", customerrors.ErrMalformedResponse, snapshot.AvailableAmount.String())
	}
	wk.Stats.update(func(s *AccountStats) { s.balance = balance })
	wk.log.Info("Balance", "coins", snapshot.AvailableAmount.String())

	if snapshot.NeedToCheck {
		claimed, err := wk.Backend.ClaimFirstReward(ctx)
		if err != nil {
			return err
		}
		if claimed {
			wk.Stats.update(func(s *AccountStats) { s.claims++ })
			wk.log.Info("Init reward claimed!")
		}
	}

	return nil
}

// acquireToken runs the web view flow on the messaging connection and always
// tears the connection down before returning.
func (wk *AccountWorker) acquireToken(ctx context.Context) (*AuthorizationToken, error) {
	defer wk.release()

	if !wk.Messenger.IsConnected() {
		if err := wk.Messenger.Connect(ctx, wk.Account.Proxy); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}

	peer, err := wk.Messenger.ResolvePeer(ctx, wk.Settings.BotUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve peer: %w", err)
	}

	authUrl, err := wk.Messenger.RequestAppWebView(ctx, messaging.WebViewRequest{
		Peer:         peer,
		Platform:     wk.Settings.Platform,
		ShortName:    wk.Settings.AppShortName,
		WriteAllowed: true,
		StartParam:   ChooseRefLink(wk.Rand, wk.Settings),
	})
	if err != nil {
		return nil, fmt.Errorf("request web view: %w", err)
	}

	data, err := ParseWebAppData(authUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", customerrors.ErrNoWebData, err)
	}
	wk.startParam = data.StartParam

	return newToken(wk.Rand, wk.Settings.TokenLifetime, wk.Now(), data), nil
}

// fetchStatus retries once when the backend reports an embedded authorization error.
func (wk *AccountWorker) fetchStatus(ctx context.Context) (backend.Snapshot, error) {
	var lastErr error

	for attempt := 1; attempt <= statusAttempts; attempt++ {
		if wk.Settings.WarmupRequests {
			err := wk.Backend.Warmup(ctx, func(ctx context.Context) error {
				return wk.Sleep(ctx, wk.Settings.WarmupPause)
			})
			if err != nil {
				return backend.Snapshot{}, err
			}
		}

		snapshot, err := wk.Backend.Summary(ctx)
		if err == nil {
			return snapshot, nil
		}
		if !errors.Is(err, customerrors.ErrStatusUnauthorized) {
			return backend.Snapshot{}, err
		}

		lastErr = err
		if attempt < statusAttempts {
			wk.log.Debug("Status unauthorized, retrying", "attempt", attempt)
			if err := wk.Sleep(ctx, wk.Settings.AuthErrorDelay); err != nil {
				return backend.Snapshot{}, err
			}
		}
	}

	return backend.Snapshot{}, lastErr
}

func (wk *AccountWorker) checkProxy(ctx context.Context) {
	ip, err := wk.Backend.CheckProxy(ctx, wk.Settings.ProxyCheckUrl, wk.Settings.ProxyCheckTimeout)
	if err != nil {
		wk.log.Error("Proxy check failed", "proxy", wk.Account.Proxy.Redacted(), "error", err)
		return
	}
	wk.log.Info("Proxy IP", "ip", ip)
}

// release closes the messaging connection if it is still open. It keeps working
// after ctx cancellation so shutdown never leaks a connection.
func (wk *AccountWorker) release() {
	if wk.Messenger == nil || !wk.Messenger.IsConnected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := wk.Messenger.Disconnect(ctx); err != nil {
		wk.log.Warn("Error disconnecting messaging client", "error", err)
	}
}

func (wk *AccountWorker) recordError(err error) {
	wk.Stats.update(func(s *AccountStats) {
		s.softErrors++
		s.lastError = err.Error()
	})
}
