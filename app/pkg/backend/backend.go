// Package backend is the client of the mini app HTTP API. Every method performs
// exactly one logical call; pacing and retries belong to the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	customerrors "farmer/app/pkg/custom-types/custom-errors"
	"farmer/app/pkg/utils/httpx"
)

const (
	loginPath    = "/_api/platform-telebot/game/login"
	summaryPath  = "/_api/platform-telebot/game/summary"
	obtainPath   = "/_api/platform-telebot/game/obtain"
	userInfoPath = "/_api/ucenter/user-info"
	currencyPath = "/_api/currency/transfer-currencies"
	ratesPath    = "/_api/currency/rates"

	FirstRewardTask = "FIRST_REWARD"

	claimSuccessMsg       = "success"
	unauthorizedEmbedCode = "401"
)

// InitData are the web app auth fields forwarded to the login call.
type InitData struct {
	AuthDate     string `json:"auth_date"`
	ChatInstance string `json:"chat_instance"`
	ChatType     string `json:"chat_type"`
	Hash         string `json:"hash"`
	StartParam   string `json:"start_param"`
	User         string `json:"user"`
	Via          string `json:"via"`
}

type LoginRequest struct {
	ExtInfo       InitData `json:"extInfo"`
	InviterUserId string   `json:"inviterUserId"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// Snapshot is the account state read at every cycle.
type Snapshot struct {
	AvailableAmount json.Number `json:"availableAmount"`
	NeedToCheck     bool        `json:"needToCheck"`
}

type summaryResponse struct {
	Code    string    `json:"code"`
	Msg     string    `json:"msg"`
	Success bool      `json:"success"`
	Data    *Snapshot `json:"data"`
}

type obtainResponse struct {
	Msg string `json:"msg"`
}

type Client struct {
	BaseUrl string
	Lang    string
	HTTP    *http.Client
	Headers http.Header
}

func New(baseUrl string, lang string, httpClient *http.Client, headers http.Header) *Client {
	return &Client{
		BaseUrl: strings.TrimRight(baseUrl, "/"),
		Lang:    lang,
		HTTP:    httpClient,
		Headers: headers,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if c.Lang != "" {
		query.Set("lang", c.Lang)
	}
	if len(query) == 0 {
		return c.BaseUrl + path
	}
	return c.BaseUrl + path + "?" + query.Encode()
}

func (c *Client) do(ctx context.Context, method string, endpoint string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := httpx.BuildRequest(ctx, method, endpoint, body, c.Headers)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, customerrors.InferHttpError(resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method string, endpoint string, payload any, out any) error {
	resp, err := c.do(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	if err := httpx.DecodeJSON(resp, out); err != nil {
		return fmt.Errorf("%w: %v", customerrors.ErrMalformedResponse, err)
	}
	return nil
}

// Login authenticates with the web app init data. The session cookies set by
// the response are kept by the cookie jar of the http client.
func (c *Client) Login(ctx context.Context, initData InitData, inviterUserId string) (LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, c.endpoint(loginPath, nil), LoginRequest{
		ExtInfo:       initData,
		InviterUserId: inviterUserId,
	}, &out)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

// Warmup issues the page load requests the web app performs before showing the
// game summary. pause is called between groups of requests.
func (c *Client) Warmup(ctx context.Context, pause func(context.Context) error) error {
	groups := [][]string{
		{c.endpoint(userInfoPath, nil)},
		{
			c.endpoint(currencyPath, url.Values{"flat": {"1"}, "currencyType": {"2"}}),
			c.endpoint(ratesPath, url.Values{"base": {"USD"}, "targets": {""}}),
		},
	}

	for _, group := range groups {
		for _, endpoint := range group {
			resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return fmt.Errorf("warmup: %w", err)
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if err := pause(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Summary fetches the account snapshot. A body carrying code "401" is reported
// as customerrors.ErrStatusUnauthorized even though the HTTP status is 200.
func (c *Client) Summary(ctx context.Context) (Snapshot, error) {
	var out summaryResponse
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(summaryPath, nil), nil, &out); err != nil {
		return Snapshot{}, fmt.Errorf("summary: %w", err)
	}
	if out.Code == unauthorizedEmbedCode {
		return Snapshot{}, fmt.Errorf("summary: %w: %s", customerrors.ErrStatusUnauthorized, out.Msg)
	}
	if out.Data == nil {
		return Snapshot{}, fmt.Errorf("summary: %w: missing data", customerrors.ErrMalformedResponse)
	}
	return *out.Data, nil
}

// ClaimFirstReward reports true only when the backend answers with the success marker.
func (c *Client) ClaimFirstReward(ctx context.Context) (bool, error) {
	var out obtainResponse
	// the task type travels in the query string, the body stays empty
	endpoint := c.BaseUrl + obtainPath + "?" + url.Values{"taskType": {FirstRewardTask}}.Encode()
	if err := c.doJSON(ctx, http.MethodPost, endpoint, nil, &out); err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	return out.Msg == claimSuccessMsg, nil
}

// CheckProxy returns the public IP seen by checkUrl, bounded by timeout.
func (c *Client) CheckProxy(ctx context.Context, checkUrl string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.do(ctx, http.MethodGet, checkUrl, nil)
	if err != nil {
		return "", fmt.Errorf("proxy check: %w", err)
	}
	body, err := httpx.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("proxy check: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
