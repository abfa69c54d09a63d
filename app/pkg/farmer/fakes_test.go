package farmer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	assetshandler "farmer/app/pkg/assets-handler"
	"farmer/app/pkg/backend"
	customerrors "farmer/app/pkg/custom-types/custom-errors"
	"farmer/app/pkg/messaging"
	"farmer/app/pkg/utils/randx"
)

const (
	testSleepTime    = time.Hour
	testErrorBackoff = 2 * time.Hour
	testRetryDelay   = 5 * time.Second
	testAuthDelay    = 3 * time.Second
	testWarmupPause  = time.Second
)

func fixedRange(d time.Duration) randx.Range[time.Duration] {
	return randx.Range[time.Duration]{Min: d, Max: d}
}

func testSettings() *Settings {
	return &Settings{
		SleepTime:           fixedRange(testSleepTime),
		StartDelay:          randx.Range[time.Duration]{Min: 5 * time.Second, Max: 20 * time.Second},
		TokenLifetime:       fixedRange(10 * time.Hour),
		ErrorBackoff:        fixedRange(testErrorBackoff),
		RetryDelay:          fixedRange(testRetryDelay),
		AuthErrorDelay:      testAuthDelay,
		WarmupPause:         testWarmupPause,
		RefID:               assetshandler.DefaultRefID,
		FallbackRefID:       assetshandler.DefaultRefID,
		RefIDWeight:         40,
		FallbackRefIDWeight: 60,
		BotUsername:         "xkucoinbot",
		AppShortName:        "kucoinminiapp",
		Platform:            "android",
		ProxyCheckUrl:       "https://ipinfo.io/ip",
		ProxyCheckTimeout:   10 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is advanced by the recorded sleeps only.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sleepRecorder advances the clock and cancels the run after stopAfter sleeps
// of the stopOn duration.
type sleepRecorder struct {
	clock     *fakeClock
	cancel    context.CancelFunc
	stopOn    time.Duration
	stopAfter int

	mu     sync.Mutex
	sleeps []time.Duration
	hits   int
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	if d == r.stopOn {
		r.hits++
		if r.hits >= r.stopAfter {
			r.cancel()
		}
	}
	r.mu.Unlock()

	r.clock.Advance(d)
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func testAuthUrl(session string, startParam string) string {
	user, _ := json.Marshal(map[string]any{"id": 1000, "first_name": session})
	inner := "user=" + url.QueryEscape(string(user)) +
		"&chat_instance=-4200&chat_type=sender" +
		"&start_param=" + url.QueryEscape(startParam) +
		"&auth_date=1717243200" +
		"&hash=hash-" + session
	return "https://www.kucoin.com/miniapp/tap-game#tgWebAppData=" + url.QueryEscape(inner) +
		"&tgWebAppVersion=7.10&tgWebAppPlatform=android"
}

type fakeMessenger struct {
	session string
	revoked atomic.Bool

	mu              sync.Mutex
	connected       bool
	resolveFailures int
	connects        int
	resolves        int
	webViews        int
	disconnects     int
	startParams     []string
	proxies         []*url.URL
}

func newFakeMessenger(session string) *fakeMessenger {
	return &fakeMessenger{session: session}
}

func (m *fakeMessenger) Session() string { return m.session }

func (m *fakeMessenger) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *fakeMessenger) Connect(ctx context.Context, proxy *url.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connects++
	m.proxies = append(m.proxies, proxy)
	if m.revoked.Load() {
		return fmt.Errorf("gateway: connect: %w", customerrors.ErrInvalidSession)
	}
	m.connected = true
	return nil
}

func (m *fakeMessenger) ResolvePeer(ctx context.Context, username string) (messaging.Peer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolves++
	if !m.connected {
		return messaging.Peer{}, errors.New("not connected")
	}
	if m.resolveFailures > 0 {
		m.resolveFailures--
		return messaging.Peer{}, errors.New("flood wait")
	}
	return messaging.Peer{ID: 42, Username: username}, nil
}

func (m *fakeMessenger) RequestAppWebView(ctx context.Context, req messaging.WebViewRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.webViews++
	m.startParams = append(m.startParams, req.StartParam)
	return testAuthUrl(m.session, req.StartParam), nil
}

func (m *fakeMessenger) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		m.disconnects++
	}
	m.connected = false
	return nil
}

func (m *fakeMessenger) counts() (connects, webViews, disconnects int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects, m.webViews, m.disconnects
}

type summaryResult struct {
	snapshot backend.Snapshot
	err      error
}

// fakeBackend belongs to one account and flags any login carrying another
// account's token.
type fakeBackend struct {
	session string

	mu            sync.Mutex
	loginResults  []bool
	summaries     []summaryResult
	defaultNeed   bool
	panicOnStatus bool
	events        []string
	foreignTokens int
	inviters      []string
	proxyChecks   int
	warmups       int
}

func newFakeBackend(session string) *fakeBackend {
	return &fakeBackend{session: session}
}

func (b *fakeBackend) Login(ctx context.Context, initData backend.InitData, inviterUserId string) (backend.LoginResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, "login")
	b.inviters = append(b.inviters, inviterUserId)
	if initData.Hash != "hash-"+b.session {
		b.foreignTokens++
	}

	ok := true
	if len(b.loginResults) > 0 {
		ok = b.loginResults[0]
		b.loginResults = b.loginResults[1:]
	}
	if !ok {
		return backend.LoginResponse{Success: false, Msg: "invalid hash"}, nil
	}
	return backend.LoginResponse{Success: true, Msg: "success"}, nil
}

func (b *fakeBackend) Warmup(ctx context.Context, pause func(context.Context) error) error {
	b.mu.Lock()
	b.warmups++
	b.mu.Unlock()

	if err := pause(ctx); err != nil {
		return err
	}
	return pause(ctx)
}

func (b *fakeBackend) Summary(ctx context.Context) (backend.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, "summary")
	if b.panicOnStatus {
		panic("unexpected summary shape")
	}
	if len(b.summaries) > 0 {
		res := b.summaries[0]
		b.summaries = b.summaries[1:]
		return res.snapshot, res.err
	}
	return backend.Snapshot{AvailableAmount: json.Number("100"), NeedToCheck: b.defaultNeed}, nil
}

func (b *fakeBackend) ClaimFirstReward(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, "claim")
	return true, nil
}

func (b *fakeBackend) CheckProxy(ctx context.Context, checkUrl string, timeout time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.proxyChecks++
	return "203.0.113.10", nil
}

func (b *fakeBackend) recorded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func (b *fakeBackend) count(event string) int {
	n := 0
	for _, e := range b.recorded() {
		if e == event {
			n++
		}
	}
	return n
}

func unauthorizedSummary() summaryResult {
	return summaryResult{err: fmt.Errorf("summary: %w", customerrors.ErrStatusUnauthorized)}
}

func okSummary(amount string, need bool) summaryResult {
	return summaryResult{snapshot: backend.Snapshot{AvailableAmount: json.Number(amount), NeedToCheck: need}}
}
