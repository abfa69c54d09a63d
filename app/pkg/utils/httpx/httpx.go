package httpx

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

const dialTimeout = 5 * time.Second

// ClientOptions describes the HTTP context owned by a single account.
type ClientOptions struct {
	// Jar keeps the account cookies across requests. Required.
	Jar http.CookieJar

	// Proxy is optional. http, https, socks5 and socks5h schemes are accepted.
	Proxy *url.URL

	// ClientHello selects the TLS fingerprint used for https requests.
	// When nil the standard library TLS stack is used.
	ClientHello *utls.ClientHelloID

	// Timeout bounds a whole request. Zero keeps the transport defaults.
	Timeout time.Duration
}

func BuildRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
	headers http.Header,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for k, values := range headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	return req, nil
}

// NewClient builds the http.Client of one account.
//
// With a ClientHello the returned client only speaks HTTP2 over https, because the
// fingerprinted connection is handed straight to an http2.Transport. Plain http
// targets always go through a standard transport.
func NewClient(opts ClientOptions) *http.Client {
	std := &http.Transport{
		Proxy:             http.ProxyURL(opts.Proxy),
		ForceAttemptHTTP2: true,
	}

	var transport http.RoundTripper = std
	if opts.ClientHello != nil {
		transport = &fingerprintTransport{
			plain: std,
			h2: &http2.Transport{
				DialTLSContext: func(ctx context.Context, network string, addr string, _ *tls.Config) (net.Conn, error) {
					return dialWithUTLS(ctx, addr, opts.Proxy, opts.ClientHello)
				},
			},
		}
	}

	return &http.Client{
		Transport: transport,
		Jar:       opts.Jar,
		Timeout:   opts.Timeout,
	}
}

type fingerprintTransport struct {
	plain http.RoundTripper
	h2    http.RoundTripper
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" {
		return t.h2.RoundTrip(req)
	}
	return t.plain.RoundTrip(req)
}

func dialRaw(ctx context.Context, targetAddr string, proxyUrl *url.URL) (net.Conn, error) {
	baseDialer := &net.Dialer{Timeout: dialTimeout}

	if proxyUrl == nil {
		return baseDialer.DialContext(ctx, "tcp", targetAddr)
	}

	switch proxyUrl.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyUrl, baseDialer)
		if err != nil {
			return nil, fmt.Errorf("failed to build socks5 dialer: %w", err)
		}
		if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
			return ctxDialer.DialContext(ctx, "tcp", targetAddr)
		}
		return dialer.Dial("tcp", targetAddr)
	default:
		return dialConnect(ctx, baseDialer, targetAddr, proxyUrl)
	}
}

// dialConnect opens a tunnel to targetAddr through an http proxy using the CONNECT method.
func dialConnect(ctx context.Context, baseDialer *net.Dialer, targetAddr string, proxyUrl *url.URL) (net.Conn, error) {
	conn, err := baseDialer.DialContext(ctx, "tcp", proxyUrl.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to open TCP connection to proxy: %w", err)
	}

	release := guardConn(ctx, conn)

	fmt.Fprintf(conn, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n", targetAddr, targetAddr)
	if proxyUrl.User != nil {
		password, _ := proxyUrl.User.Password()
		proxyAuth := fmt.Sprintf("%s:%s", proxyUrl.User.Username(), password)
		encodedAuth := base64.StdEncoding.EncodeToString([]byte(proxyAuth))
		fmt.Fprintf(conn, "Proxy-Authorization: Basic %s\r\n", encodedAuth)
	}
	fmt.Fprint(conn, "\r\n")

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to read proxy CONNECT response: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to read proxy CONNECT response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy refused CONNECT to %s: %s", targetAddr, resp.Status)
	}

	if err := release(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT to %s: %w", targetAddr, err)
	}
	return conn, nil
}

// guardConn interrupts every read and write on conn once ctx is done, until
// release is called. release clears the deadline, or returns the ctx error if ctx ended first.
func guardConn(ctx context.Context, conn net.Conn) (release func() error) {
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})

	return func() error {
		if !stop() {
			return ctx.Err()
		}
		return conn.SetDeadline(time.Time{})
	}
}

func dialWithUTLS(ctx context.Context, targetAddr string, proxyUrl *url.URL, utlsProfile *utls.ClientHelloID) (net.Conn, error) {
	conn, err := dialRaw(ctx, targetAddr, proxyUrl)
	if err != nil {
		return nil, err
	}

	// Remove the port from targetAddr to use it as ServerName
	tlsConfig := &utls.Config{ServerName: strings.Split(targetAddr, ":")[0]}
	utlsConn := utls.UClient(conn, tlsConfig, *utlsProfile)

	release := guardConn(ctx, conn)
	if err := utlsConn.HandshakeContext(ctx); err != nil {
		utlsConn.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	if err := release(); err != nil {
		utlsConn.Close()
		return nil, fmt.Errorf("TLS handshake: %w", err)
	}

	if proto := utlsConn.ConnectionState().NegotiatedProtocol; proto != http2.NextProtoTLS {
		utlsConn.Close()
		return nil, fmt.Errorf("server negotiated %q instead of h2", proto)
	}

	return utlsConn, nil
}
