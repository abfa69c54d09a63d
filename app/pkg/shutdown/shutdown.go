package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// HandleSIGTERM cancels the root context on the first interrupt so every
// account worker can stop at its next suspension point and release its
// messaging connection. A second interrupt exits immediately.
func HandleSIGTERM(cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	cancel()
	slog.Warn("Interrupt received (SIGTERM): stopping all account workers...")

	<-c
	slog.Error("Second interrupt received: forcing exit.")
	Shutdown()
}

func Shutdown() {
	time.Sleep(250 * time.Millisecond)
	os.Exit(1)
}
