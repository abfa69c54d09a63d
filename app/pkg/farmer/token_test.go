package farmer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetshandler "farmer/app/pkg/assets-handler"
	"farmer/app/pkg/backend"
)

const (
	refInviter12345 = "cm91dGU9JTJGdGFwLWdhbWUlM0ZpbnZpdGVyVXNlcklkJTNEMTIzNDUlMjZyY29kZSUzREFCQ0RFRkdI"
	refInviter67890 = "cm91dGU9JTJGdGFwLWdhbWUlM0ZpbnZpdGVyVXNlcklkJTNENjc4OTAlMjZyY29kZSUzRFpZWFdWVVRT"
)

func TestDecodeInviterID(t *testing.T) {
	tests := []struct {
		name       string
		startParam string
		want       string
		wantErr    bool
	}{
		{name: "unpadded", startParam: refInviter12345, want: "12345"},
		{name: "padded", startParam: refInviter67890 + "=", want: "67890"},
		{name: "default ref", startParam: assetshandler.DefaultRefID, want: "342952117"},
		{name: "empty", startParam: "", wantErr: true},
		{name: "not base64", startParam: "!!!", wantErr: true},
		{name: "no inviter", startParam: "cm91dGU9JTJGdGFwLWdhbWU", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInviterID(tt.startParam)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInviterFromLink(t *testing.T) {
	id, err := InviterFromLink("route=%2Ftap-game%3FinviterUserId%3D12345%26rcode%3DX")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	id, err = InviterFromLink("inviterUserId%3D777")
	require.NoError(t, err)
	assert.Equal(t, "777", id)

	_, err = InviterFromLink("inviterUserId%3D%26")
	assert.Error(t, err)
}

func TestParseWebAppData(t *testing.T) {
	data, err := ParseWebAppData(testAuthUrl("alice", refInviter12345))
	require.NoError(t, err)

	assert.Equal(t, "1717243200", data.AuthDate)
	assert.Equal(t, "-4200", data.ChatInstance)
	assert.Equal(t, "sender", data.ChatType)
	assert.Equal(t, "hash-alice", data.Hash)
	assert.Equal(t, refInviter12345, data.StartParam)
	assert.JSONEq(t, `{"id":1000,"first_name":"alice"}`, data.User)
	assert.Equal(t, "miniApp", data.Via)
}

func TestParseWebAppDataErrors(t *testing.T) {
	_, err := ParseWebAppData("https://www.kucoin.com/miniapp/tap-game#tgWebAppVersion=7.10")
	assert.Error(t, err)

	_, err = ParseWebAppData("https://x#tgWebAppData=user%3D1%26hash%3Dh&tgWebAppVersion=7.10")
	assert.ErrorContains(t, err, "misses")

	_, err = ParseWebAppData("https://x#tgWebAppData=%zz&tgWebAppVersion=7.10")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	var nilToken *AuthorizationToken
	assert.True(t, nilToken.Expired(time.Now()))

	issued := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	token := &AuthorizationToken{IssuedAt: issued, Lifetime: time.Hour}

	assert.False(t, token.Expired(issued))
	assert.False(t, token.Expired(issued.Add(time.Hour-time.Nanosecond)))
	assert.True(t, token.Expired(issued.Add(time.Hour)))
	assert.True(t, token.Expired(issued.Add(2*time.Hour)))
}

func TestNewTokenLifetimeWithinRange(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	lifetime := testSettings().TokenLifetime
	lifetime.Min, lifetime.Max = 3500*time.Second, 3600*time.Second

	for range 500 {
		token := newToken(r, lifetime, time.Now(), backend.InitData{Hash: "h"})
		assert.GreaterOrEqual(t, token.Lifetime, lifetime.Min)
		assert.LessOrEqual(t, token.Lifetime, lifetime.Max)
	}
}

func TestChooseRefLinkWeights(t *testing.T) {
	s := testSettings()
	s.RefID, s.FallbackRefID = refInviter12345, refInviter67890

	r := rand.New(rand.NewSource(11))
	const trials = 20000

	primary := 0
	for range trials {
		switch ChooseRefLink(r, s) {
		case refInviter12345:
			primary++
		case refInviter67890:
		default:
			t.Fatal("unknown ref link")
		}
	}

	assert.InDelta(t, 0.40, float64(primary)/trials, 0.02)
}

func TestChooseRefLinkSingleWeight(t *testing.T) {
	s := testSettings()
	s.RefID, s.FallbackRefID = refInviter12345, refInviter67890
	s.RefIDWeight, s.FallbackRefIDWeight = 0, 1

	r := rand.New(rand.NewSource(1))
	for range 100 {
		assert.Equal(t, refInviter67890, ChooseRefLink(r, s))
	}
}
