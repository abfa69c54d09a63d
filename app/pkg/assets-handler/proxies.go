package assetshandler

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"farmer/app/pkg/assert"
)

// ParseProxy accepts a proxy descriptor in one of these shapes:
//
//	scheme://[user:pass@]host:port
//	[user:pass@]host:port
//	host:port
//	host:port:user:pass
//
// Descriptors without a scheme default to http.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty proxy descriptor")
	}

	var proxy string
	if strings.Contains(raw, "://") {
		proxy = raw
	} else if strings.Contains(raw, "@") {
		proxy = "http://" + raw
	} else {
		proxyDataSlice := strings.Split(raw, ":")

		switch len(proxyDataSlice) {
		case 2:
			proxy = fmt.Sprintf("http://%s:%s", proxyDataSlice[0], proxyDataSlice[1])
		case 4:
			proxy = fmt.Sprintf(
				"http://%s@%s:%s",
				url.UserPassword(proxyDataSlice[2], proxyDataSlice[3]).String(),
				proxyDataSlice[0],
				proxyDataSlice[1],
			)
		default:
			return nil, fmt.Errorf("invalid proxy format %q. Should be ip:port or ip:port:username:password", raw)
		}
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("error parsing proxy URL: %w", err)
	}

	switch proxyURL.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
	if proxyURL.Hostname() == "" || proxyURL.Port() == "" {
		return nil, fmt.Errorf("proxy %q must have a host and a port", raw)
	}

	return proxyURL, nil
}

func ReadProxies(path string) ([]*url.URL, error) {
	pFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer pFile.Close()

	scanner := bufio.NewScanner(pFile)
	var proxies []*url.URL

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxyURL, err := ParseProxy(line)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, proxyURL)
	}

	return proxies, scanner.Err()
}

func GetProxiesFromFile(path string) []*url.URL {
	assert.Assert(path != "", "proxies file path cannot be empty", assert.AssertData{"path": path})

	proxies, err := ReadProxies(path)
	assert.NoError(err, "error reading proxies file", assert.AssertData{"path": path})

	return proxies
}
