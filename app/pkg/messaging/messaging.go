// Package messaging describes the capability an account worker needs from the
// messaging network: open a connection for one identity, resolve the bot peer
// and request the web view authorization URL of its mini app.
package messaging

import (
	"context"
	"net/url"
)

// Peer is an opaque handle to a resolved messaging peer.
type Peer struct {
	ID         int64  `json:"id"`
	AccessHash int64  `json:"access_hash"`
	Username   string `json:"username,omitempty"`
}

type WebViewRequest struct {
	Peer         Peer   `json:"peer"`
	Platform     string `json:"platform"`
	ShortName    string `json:"short_name"`
	WriteAllowed bool   `json:"write_allowed"`
	StartParam   string `json:"start_param"`
}

// Client is bound to exactly one account identity. Implementations return an
// error wrapping customerrors.ErrInvalidSession when the identity is revoked,
// deactivated or unauthorized.
type Client interface {
	// Session returns the identity handle the client is bound to.
	Session() string
	IsConnected() bool
	// Connect opens the connection, routing it through proxy when not nil.
	Connect(ctx context.Context, proxy *url.URL) error
	ResolvePeer(ctx context.Context, username string) (Peer, error)
	// RequestAppWebView returns the authorization URL of the mini app.
	RequestAppWebView(ctx context.Context, req WebViewRequest) (string, error)
	Disconnect(ctx context.Context) error
}
