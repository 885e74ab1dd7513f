package pages

import (
	"net/url"
	"strings"
)

// Click-id style parameters injected by ad platforms.
var trackingParams = map[string]bool{
	"fbclid":    true,
	"gclid":     true,
	"msclkid":   true,
	"ttclid":    true,
	"twclid":    true,
	"li_fat_id": true,
	"mc_eid":    true,
	"igshid":    true,
	"ref":       true,
}

// NormalizeURL canonicalizes a URL for use as a merge key: tracking
// query parameters (click ids and utm_*) are stripped, scheme and host
// are lowercased, and a trailing-slash-only path collapses to the bare
// origin. Unparseable URLs are returned unchanged so one bad record
// cannot abort a whole batch. Idempotent.
func NormalizeURL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	query := parsed.Query()
	for key := range query {
		if trackingParams[key] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	if parsed.Path == "/" {
		parsed.Path = ""
	}
	for strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// GroupByNormalizedURL merges landing page records that share a
// normalized URL. Groups come out in first-seen order; within a group,
// visit counts and unique users sum, the conversion rate recomputes as
// a user-weighted average, the last access takes the maximum, and
// every raw URL folded in is retained in OriginalUrls.
func GroupByNormalizedURL(input []LandingPage) []LandingPage {
	grouped := make([]LandingPage, 0, len(input))
	index := make(map[string]int, len(input))

	for _, page := range input {
		key := NormalizeURL(page.URL)

		at, seen := index[key]
		if !seen {
			merged := page
			merged.NormalizedURL = key
			merged.OriginalUrls = []string{page.URL}
			index[key] = len(grouped)
			grouped = append(grouped, merged)
			continue
		}

		existing := &grouped[at]
		// Weighted average over unique users. When both weights are
		// zero the prior value is retained: averaging nothing is
		// undefined and dividing would poison the JSON with NaN.
		totalUsers := existing.UniqueUsers + page.UniqueUsers
		if totalUsers > 0 {
			existing.ConversionRate = (existing.ConversionRate*float64(existing.UniqueUsers) +
				page.ConversionRate*float64(page.UniqueUsers)) / float64(totalUsers)
		}
		existing.TotalVisits += page.TotalVisits
		existing.UniqueUsers = totalUsers
		if page.LastAccess.After(existing.LastAccess) {
			existing.LastAccess = page.LastAccess
		}
		existing.OriginalUrls = append(existing.OriginalUrls, page.URL)
	}

	return grouped
}
