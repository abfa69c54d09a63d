package farmer

import (
	"sync"
	"time"
)

type WorkerState string

const (
	StateStarting        WorkerState = "starting"
	StateUnauthenticated WorkerState = "unauthenticated"
	StateAuthenticating  WorkerState = "authenticating"
	StateAuthenticated   WorkerState = "authenticated"
	StateSleeping        WorkerState = "sleeping"
	StateTerminated      WorkerState = "terminated"
)

// AccountStats belongs to a single worker. Only that worker writes it; the
// status loop reads copies through Snapshot.
type AccountStats struct {
	Session string

	mu              sync.Mutex
	state           WorkerState
	cycles          int
	acquisitions    int
	logins          int
	loginRejections int
	claims          int
	softErrors      int
	balance         float64
	lastError       string
	lastCycleAt     time.Time
}

type StatsSnapshot struct {
	Session         string
	State           WorkerState
	Cycles          int
	Acquisitions    int
	Logins          int
	LoginRejections int
	Claims          int
	SoftErrors      int
	Balance         float64
	LastError       string
	LastCycleAt     time.Time
}

func NewAccountStats(session string) *AccountStats {
	return &AccountStats{Session: session, state: StateStarting}
}

func (s *AccountStats) update(fn func(s *AccountStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *AccountStats) setState(state WorkerState) {
	s.update(func(s *AccountStats) { s.state = state })
}

func (s *AccountStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatsSnapshot{
		Session:         s.Session,
		State:           s.state,
		Cycles:          s.cycles,
		Acquisitions:    s.acquisitions,
		Logins:          s.logins,
		LoginRejections: s.loginRejections,
		Claims:          s.claims,
		SoftErrors:      s.softErrors,
		Balance:         s.balance,
		LastError:       s.lastError,
		LastCycleAt:     s.lastCycleAt,
	}
}
