package main

import (
	"fmt"
	"math/rand"
	"net/http/cookiejar"
	"time"

	assetshandler "farmer/app/pkg/assets-handler"
	"farmer/app/pkg/backend"
	"farmer/app/pkg/farmer"
	"farmer/app/pkg/messaging"
	"farmer/app/pkg/messaging/gateway"
	"farmer/app/pkg/utils/httpx"
	"farmer/app/pkg/utils/mapx"
	"farmer/app/pkg/utils/pathx"
)

type assets struct {
	config   assetshandler.Config
	accounts []assetshandler.Account
}

func loadAssets(opts *rootOptions, randGen *rand.Rand) assets {
	config := assetshandler.GetConfigFromFile(pathx.FromCwd(opts.configFile))

	var pools assetshandler.AccountsAssets
	if opts.proxiesFile != "" {
		pools.Proxies = assetshandler.GetProxiesFromFile(pathx.FromCwd(opts.proxiesFile))
	}
	if opts.userAgentsFile != "" {
		pools.UserAgents = assetshandler.GetUAsFromFile(pathx.FromCwd(opts.userAgentsFile))
	}

	accounts := assetshandler.GetAccountsFromFile(pathx.FromCwd(opts.accountsFile), pools, randGen)

	return assets{config: config, accounts: accounts}
}

// backendFactory gives every account its own cookie jar, proxy and TLS fingerprint.
func backendFactory(config *assetshandler.Config) func(acc assetshandler.Account) (farmer.Backend, error) {
	extraHeaders := mapx.ToHeader(config.Http.Headers)
	timeout := time.Duration(config.Http.Timeout) * time.Second

	return func(acc assetshandler.Account) (farmer.Backend, error) {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}

		httpClient := httpx.NewClient(httpx.ClientOptions{
			Jar:         jar,
			Proxy:       acc.Proxy,
			ClientHello: httpx.ClientHelloFor(acc.UserAgent),
			Timeout:     timeout,
		})
		headers := backend.MergeHeaders(
			backend.BaseHeaders(acc.UserAgent, config.Backend.BaseUrl),
			extraHeaders,
		)

		return backend.New(config.Backend.BaseUrl, config.Backend.Lang, httpClient, headers), nil
	}
}

func messengerFactory(config *assetshandler.Config) func(acc assetshandler.Account) (messaging.Client, error) {
	return func(acc assetshandler.Account) (messaging.Client, error) {
		return gateway.New(config.Messaging.GatewayUrl, acc.Session), nil
	}
}
