package safews

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SafeConn serializes request/response exchanges on a websocket connection:
// one JSON frame written, one JSON frame read, under the same lock.
type SafeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewSafeConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// Exchange writes req and decodes the next frame into resp.
// The exchange is bounded by the ctx deadline, if any, and aborted when ctx is done.
func (sc *SafeConn) Exchange(ctx context.Context, req any, resp any) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	deadline, _ := ctx.Deadline()
	stop := context.AfterFunc(ctx, func() {
		_ = sc.conn.UnderlyingConn().SetDeadline(time.Now())
	})
	defer stop()

	err := sc.exchange(req, resp, deadline)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (sc *SafeConn) exchange(req any, resp any, deadline time.Time) error {
	if err := sc.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := sc.conn.WriteJSON(req); err != nil {
		return err
	}
	if err := sc.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	return sc.conn.ReadJSON(resp)
}

func (sc *SafeConn) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	_ = sc.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return sc.conn.Close()
}
