package assetshandler

import (
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"

	"farmer/app/pkg/assert"

	"gopkg.in/yaml.v3"
)

// Account is one automated identity. It is never mutated once loaded.
type Account struct {
	// Session is the identity handle understood by the messaging gateway.
	Session string

	UserAgent string

	// Proxy is nil when the account connects directly.
	Proxy *url.URL
}

type accountsFile struct {
	Accounts []accountEntry `yaml:"accounts"`
}

type accountEntry struct {
	Session   string `yaml:"session"`
	UserAgent string `yaml:"user_agent"`
	Proxy     string `yaml:"proxy"`
}

// AccountsAssets are the optional pools used to complete accounts entries.
type AccountsAssets struct {
	// Proxies are bound in order to the accounts that have none.
	Proxies []*url.URL

	// UserAgents are picked at random for the accounts that have none.
	UserAgents []string
}

// ParseAccounts decodes the accounts file and fills the missing user agents and
// proxies from assets. Sessions must be unique: one worker owns one account.
func ParseAccounts(data []byte, assets AccountsAssets, randGen *rand.Rand) ([]Account, error) {
	var file accountsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", err)
	}
	if len(file.Accounts) == 0 {
		return nil, errors.New("no accounts found")
	}

	seen := make(map[string]bool, len(file.Accounts))
	accounts := make([]Account, 0, len(file.Accounts))
	nextProxy := 0

	for idx, entry := range file.Accounts {
		session := strings.TrimSpace(entry.Session)
		if session == "" {
			return nil, fmt.Errorf("account #%d: session cannot be empty", idx+1)
		}
		if seen[session] {
			return nil, fmt.Errorf("account #%d: duplicate session %q", idx+1, session)
		}
		seen[session] = true

		acc := Account{Session: session, UserAgent: strings.TrimSpace(entry.UserAgent)}

		if acc.UserAgent == "" {
			if len(assets.UserAgents) == 0 {
				return nil, fmt.Errorf("account %q: no user agent and no user agents pool", session)
			}
			acc.UserAgent = assets.UserAgents[randGen.Intn(len(assets.UserAgents))]
		}

		switch {
		case entry.Proxy != "":
			proxy, err := ParseProxy(entry.Proxy)
			if err != nil {
				return nil, fmt.Errorf("account %q: %w", session, err)
			}
			acc.Proxy = proxy
		case nextProxy < len(assets.Proxies):
			acc.Proxy = assets.Proxies[nextProxy]
			nextProxy++
		}

		accounts = append(accounts, acc)
	}

	return accounts, nil
}

func GetAccountsFromFile(path string, assets AccountsAssets, randGen *rand.Rand) []Account {
	assert.Assert(path != "", "accounts file path cannot be empty", assert.AssertData{"path": path})

	data, err := os.ReadFile(path)
	assert.NoError(err, "error reading accounts file", assert.AssertData{"path": path})

	accounts, err := ParseAccounts(data, assets, randGen)
	assert.NoError(err, "invalid accounts file", assert.AssertData{"path": path})

	return accounts
}
