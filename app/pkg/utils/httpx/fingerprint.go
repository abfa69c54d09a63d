package httpx

import (
	"regexp"
	"sort"
	"strconv"

	utls "github.com/refraction-networking/utls"
)

type ClientHelloID = utls.ClientHelloID

var clientHelloIDs = map[string]map[int]*ClientHelloID{
	"Firefox": {
		99:  &utls.HelloFirefox_99,
		102: &utls.HelloFirefox_102,
		105: &utls.HelloFirefox_105,
		120: &utls.HelloFirefox_120,
	},
	"Chrome": {
		83:  &utls.HelloChrome_83,
		87:  &utls.HelloChrome_87,
		96:  &utls.HelloChrome_96,
		102: &utls.HelloChrome_102,
		106: &utls.HelloChrome_106_Shuffle,
		120: &utls.HelloChrome_120,
	},
	"Edge": {
		85:  &utls.HelloEdge_85,
		106: &utls.HelloEdge_106,
	},
	"Safari": {
		16: &utls.HelloSafari_16_0,
	},
}

// order matters: Edge and mobile webviews also advertise Chrome/Safari tokens
var browserPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Edge", regexp.MustCompile(`Edg(?:e|A|iOS)?/(\d+)`)},
	{"Firefox", regexp.MustCompile(`Firefox/(\d+)`)},
	{"Chrome", regexp.MustCompile(`Chrome/(\d+)`)},
	{"Safari", regexp.MustCompile(`Version/(\d+)[.\d]* (?:Mobile/\S+ )?Safari/`)},
}

// ClientHelloFor picks the TLS fingerprint matching the browser announced by userAgent:
// the highest known version not newer than the announced one, or the oldest known
// version when the browser is older than every entry. Unknown browsers get the
// Chrome auto profile.
func ClientHelloFor(userAgent string) *ClientHelloID {
	for _, p := range browserPatterns {
		m := p.re.FindStringSubmatch(userAgent)
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return closestVersion(clientHelloIDs[p.name], version)
	}

	return &utls.HelloChrome_Auto
}

func closestVersion(ids map[int]*ClientHelloID, version int) *ClientHelloID {
	versions := make([]int, 0, len(ids))
	for v := range ids {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	picked := versions[0]
	for _, v := range versions {
		if v > version {
			break
		}
		picked = v
	}
	return ids[picked]
}
