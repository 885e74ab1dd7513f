// Package device classifies user agent strings into coarse device types
// for audience segmentation, plus bot detection so crawler traffic can be
// dropped at ingestion.
package device

import (
	"sync"

	"go.elara.ws/pcre"
)

// Device type values stored on sessions.
const (
	TypeDesktop = "desktop"
	TypeMobile  = "mobile"
	TypeTablet  = "tablet"
	TypeUnknown = "unknown"
)

type rule struct {
	pattern string
	result  string
}

// Order matters: tablet patterns overlap mobile ones, so they run first.
var deviceRules = []rule{
	{`(?i)ipad|tablet|kindle|silk|playbook|(?:android(?!.*mobile))`, TypeTablet},
	{`(?i)mobile|iphone|ipod|android|blackberry|opera mini|windows phone|webos`, TypeMobile},
	{`(?i)windows nt|macintosh|x11|cros|linux`, TypeDesktop},
}

var botPatterns = []string{
	`(?i)bot|crawler|spider|crawling`,
	`(?i)googlebot|bingbot|yandex|baiduspider|duckduckbot`,
	`(?i)slurp|facebookexternalhit|ia_archiver|semrush|ahrefs`,
	`(?i)headless|phantomjs|lighthouse|pingdom|uptimerobot`,
	`(?i)curl/|wget/|python-requests|go-http-client|okhttp`,
}

type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

var cache = &regexCache{compiled: make(map[string]*pcre.Regexp)}

// Type returns the device type for a user agent string.
func Type(userAgent string) string {
	if userAgent == "" {
		return TypeUnknown
	}

	for _, r := range deviceRules {
		regex, err := cache.get(r.pattern)
		if err != nil {
			continue
		}
		if regex.MatchString(userAgent) {
			return r.result
		}
	}
	return TypeUnknown
}

// IsBot reports whether the user agent looks like an automated client.
// An empty user agent is treated as a bot: real browsers always send one.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return true
	}

	for _, pattern := range botPatterns {
		regex, err := cache.get(pattern)
		if err != nil {
			continue
		}
		if regex.MatchString(userAgent) {
			return true
		}
	}
	return false
}
