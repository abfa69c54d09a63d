package farmer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"farmer/app/pkg/utils/slicex"
)

// FormatStatus renders one status block for the status log file.
func FormatStatus(now time.Time, snapshots []StatsSnapshot) string {
	var b strings.Builder

	balances := make([]float64, 0, len(snapshots))
	cycles := make([]int, 0, len(snapshots))
	alive := 0
	for _, s := range snapshots {
		balances = append(balances, s.Balance)
		cycles = append(cycles, s.Cycles)
		if s.State != StateTerminated {
			alive++
		}
	}

	fmt.Fprintf(&b, "%s STATUS\n", now.Format("2006-01-02 15:04:05.0"))
	fmt.Fprintf(&b, "Accounts: %d, Alive: %d, TotalBalance: %.2f, AvgCycles: %.2f\n",
		len(snapshots), alive, slicex.Sum(balances), slicex.Avg(cycles))

	for _, s := range snapshots {
		fmt.Fprintf(&b,
			"%s [%s] Cycles: %d, Tokens: %d, Logins: %d (rejected %d), Claims: %d, Errors: %d, Balance: %.2f",
			s.Session, s.State, s.Cycles, s.Acquisitions, s.Logins, s.LoginRejections,
			s.Claims, s.SoftErrors, s.Balance,
		)
		if s.LastError != "" {
			fmt.Fprintf(&b, ", LastError: %s", s.LastError)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	return b.String()
}

// LogStatusLoop writes a status block every interval until ctx is done.
// A failing writer is reported once, and again after it recovered and failed anew.
func LogStatusLoop(ctx context.Context, stats []*AccountStats, interval time.Duration, out io.Writer) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	writeFailing := false

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			snapshots := make([]StatsSnapshot, 0, len(stats))
			for _, s := range stats {
				snapshots = append(snapshots, s.Snapshot())
			}
			_, err := io.WriteString(out, FormatStatus(now, snapshots))
			switch {
			case err != nil && !writeFailing:
				writeFailing = true
				slog.Error("Error writing status log", "error", err)
			case err == nil:
				writeFailing = false
			}
		}
	}
}
