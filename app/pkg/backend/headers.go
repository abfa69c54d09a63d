package backend

import (
	"net/http"
)

// BaseHeaders returns the header set of the mini app web view running inside
// the messaging client, bound to one account browser identity.
func BaseHeaders(userAgent string, origin string) http.Header {
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	headers.Set("Accept-Language", "en-US,en;q=0.9")
	headers.Set("Content-Type", "application/json")
	headers.Set("Origin", origin)
	headers.Set("Referer", origin+"/miniapp/tap-game?inviterUserId=&rcode=")
	headers.Set("Sec-Ch-Ua-Mobile", "?1")
	headers.Set("Sec-Ch-Ua-Platform", `"Android"`)
	headers.Set("Sec-Fetch-Dest", "empty")
	headers.Set("Sec-Fetch-Mode", "cors")
	headers.Set("Sec-Fetch-Site", "same-origin")
	headers.Set("X-Requested-With", "org.telegram.messenger")
	headers.Set("User-Agent", userAgent)

	return headers
}

// MergeHeaders returns a copy of base where every key of extra replaces the base values.
func MergeHeaders(base http.Header, extra http.Header) http.Header {
	merged := base.Clone()
	if merged == nil {
		merged = http.Header{}
	}
	for k, values := range extra {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), values...)
	}
	return merged
}
