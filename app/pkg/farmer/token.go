package farmer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"farmer/app/pkg/backend"
	"farmer/app/pkg/utils/randx"
)

const (
	webAppDataKey    = "tgWebAppData="
	webAppVersionKey = "&tgWebAppVersion"
	inviterMarker    = "UserId%3D"
	viaMiniApp       = "miniApp"
)

// AuthorizationToken is the short lived credential obtained through the web
// view flow. A worker replaces it on every acquisition, never mutates it.
type AuthorizationToken struct {
	IssuedAt time.Time
	Lifetime time.Duration
	Data     backend.InitData
}

// Expired reports whether a new token must be acquired. A nil token is expired.
func (t *AuthorizationToken) Expired(now time.Time) bool {
	if t == nil {
		return true
	}
	return now.Sub(t.IssuedAt) >= t.Lifetime
}

func newToken(randGen *rand.Rand, lifetime randx.Range[time.Duration], now time.Time, data backend.InitData) *AuthorizationToken {
	return &AuthorizationToken{
		IssuedAt: now,
		Lifetime: randx.Duration(randGen, lifetime),
		Data:     data,
	}
}

// ChooseRefLink picks the start parameter sent with the web view request:
// RefID with weight RefIDWeight, FallbackRefID with weight FallbackRefIDWeight.
func ChooseRefLink(randGen *rand.Rand, s *Settings) string {
	return randx.Weighted(
		randGen,
		[]string{s.RefID, s.FallbackRefID},
		[]int{s.RefIDWeight, s.FallbackRefIDWeight},
	)
}

// ParseWebAppData extracts the auth fields carried by the web view URL fragment.
//
// The tgWebAppData value is itself an url encoded query string whose values are
// url encoded once more, so the fragment is unescaped, split on '&', and every
// value unescaped again.
func ParseWebAppData(authUrl string) (backend.InitData, error) {
	var data backend.InitData

	_, raw, found := strings.Cut(authUrl, webAppDataKey)
	if !found {
		return data, errors.New("auth url has no web app data")
	}
	raw, _, _ = strings.Cut(raw, webAppVersionKey)

	inner, err := url.PathUnescape(raw)
	if err != nil {
		return data, fmt.Errorf("unescape web app data: %w", err)
	}

	fields := make(map[string]string, 6)
	for _, part := range strings.Split(inner, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		decoded, err := url.PathUnescape(value)
		if err != nil {
			return data, fmt.Errorf("unescape %s: %w", key, err)
		}
		fields[key] = decoded
	}

	for _, key := range []string{"user", "chat_instance", "chat_type", "start_param", "auth_date", "hash"} {
		if fields[key] == "" {
			return data, fmt.Errorf("web app data misses %q", key)
		}
	}

	data = backend.InitData{
		AuthDate:     fields["auth_date"],
		ChatInstance: fields["chat_instance"],
		ChatType:     fields["chat_type"],
		Hash:         fields["hash"],
		StartParam:   fields["start_param"],
		User:         fields["user"],
		Via:          viaMiniApp,
	}
	return data, nil
}

// DecodeInviterID reverses the base64 encoding of a start parameter and returns
// the inviter user id embedded in the referral route.
func DecodeInviterID(startParam string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(startParam), "=")
	if trimmed == "" {
		return "", errors.New("empty start param")
	}

	decoded, err := base64.RawStdEncoding.DecodeString(trimmed)
	if err != nil {
		var urlErr error
		decoded, urlErr = base64.RawURLEncoding.DecodeString(trimmed)
		if urlErr != nil {
			return "", fmt.Errorf("decode start param: %w", err)
		}
	}

	return InviterFromLink(string(decoded))
}

// InviterFromLink slices the user id out of an url encoded referral route,
// e.g. "route=%2Ftap-game%3FinviterUserId%3D12345%26rcode%3D..." gives "12345".
func InviterFromLink(link string) (string, error) {
	_, rest, found := strings.Cut(link, inviterMarker)
	if !found {
		return "", fmt.Errorf("no inviter id in %q", link)
	}
	id, _, _ := strings.Cut(rest, "%")
	if id == "" {
		return "", fmt.Errorf("empty inviter id in %q", link)
	}
	return id, nil
}
