// Package gateway implements messaging.Client on top of a session gateway: a
// sidecar process that owns the messaging sessions and exposes them through a
// JSON request/response protocol over a websocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	customerrors "farmer/app/pkg/custom-types/custom-errors"
	"farmer/app/pkg/messaging"
	safews "farmer/app/pkg/safe-ws"

	"github.com/gorilla/websocket"
)

const (
	opConnect        = "connect"
	opResolvePeer    = "resolve_peer"
	opRequestWebView = "request_app_web_view"
	opDisconnect     = "disconnect"
)

var errNotConnected = errors.New("gateway: not connected")

// Error codes reported by the gateway when the identity cannot be used anymore.
var invalidSessionCodes = map[string]bool{
	"AUTH_KEY_UNREGISTERED": true,
	"AUTH_KEY_INVALID":      true,
	"SESSION_REVOKED":       true,
	"SESSION_EXPIRED":       true,
	"USER_DEACTIVATED":      true,
	"USER_DEACTIVATED_BAN":  true,
	"UNAUTHORIZED":          true,
}

type request struct {
	ID      uint64 `json:"id"`
	Op      string `json:"op"`
	Session string `json:"session"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	ID     uint64          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is a failure reported by the gateway.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if invalidSessionCodes[e.Code] {
		return customerrors.ErrInvalidSession
	}
	return nil
}

type connectParams struct {
	Proxy string `json:"proxy,omitempty"`
}

type resolvePeerParams struct {
	Username string `json:"username"`
}

type webViewResult struct {
	Url string `json:"url"`
}

// Client is bound to one session. It is not shared between accounts.
type Client struct {
	url     string
	session string

	Dialer *websocket.Dialer
	Header http.Header

	// RequestTimeout bounds every exchange whose context has no deadline.
	// Zero means no bound.
	RequestTimeout time.Duration

	mu     sync.Mutex
	conn   *safews.SafeConn
	nextID atomic.Uint64
}

func New(gatewayUrl string, session string) *Client {
	return &Client{
		url:     gatewayUrl,
		session: session,
		Dialer: &websocket.Dialer{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (c *Client) Session() string {
	return c.session
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Connect(ctx context.Context, proxy *url.URL) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Session", c.session)

	wsConn, _, err := c.Dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("gateway: dial %s: %w", c.url, err)
	}
	conn := safews.NewSafeConn(wsConn)

	params := connectParams{}
	if proxy != nil {
		params.Proxy = proxy.String()
	}
	if _, err := c.call(ctx, conn, opConnect, params); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	return nil
}

func (c *Client) ResolvePeer(ctx context.Context, username string) (messaging.Peer, error) {
	var peer messaging.Peer

	raw, err := c.do(ctx, opResolvePeer, resolvePeerParams{Username: username})
	if err != nil {
		return peer, err
	}
	if err := json.Unmarshal(raw, &peer); err != nil {
		return peer, fmt.Errorf("gateway: decode peer: %w", err)
	}
	return peer, nil
}

func (c *Client) RequestAppWebView(ctx context.Context, req messaging.WebViewRequest) (string, error) {
	raw, err := c.do(ctx, opRequestWebView, req)
	if err != nil {
		return "", err
	}

	var result webViewResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("gateway: decode web view: %w", err)
	}
	if result.Url == "" {
		return "", errors.New("gateway: empty web view url")
	}
	return result.Url, nil
}

// Disconnect closes the session upstream and the websocket. It is a no-op when
// the client is not connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil

	_, callErr := c.call(ctx, conn, opDisconnect, nil)
	closeErr := conn.Close()
	if callErr != nil {
		return callErr
	}
	return closeErr
}

func (c *Client) do(ctx context.Context, op string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, errNotConnected
	}
	return c.call(ctx, conn, op, params)
}

func (c *Client) call(ctx context.Context, conn *safews.SafeConn, op string, params any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok && c.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
	}

	req := request{
		ID:      c.nextID.Add(1),
		Op:      op,
		Session: c.session,
		Params:  params,
	}

	var resp response
	if err := conn.Exchange(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("gateway: %s: %w", op, err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("gateway: %s: response id %d does not match request id %d", op, resp.ID, req.ID)
	}
	if !resp.OK {
		if resp.Error == nil {
			resp.Error = &Error{Code: "UNKNOWN", Message: "request failed"}
		}
		return nil, fmt.Errorf("gateway: %s: %w", op, resp.Error)
	}

	return resp.Result, nil
}
