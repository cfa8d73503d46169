// Package canonical provides canonicalization utilities for listing URLs
// and money amounts. Canonical URLs are part of the listing upsert key, so
// the normalization here must stay stable across releases.
package canonical

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// trackingKeys are query parameters dropped from canonical URLs.
var trackingKeys = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"yclid":        {},
	"mc_eid":       {},
	"mc_cid":       {},
	"igshid":       {},
	"spm":          {},
	"ref":          {},
	"affid":        {},
	"affidname":    {},
}

// trackingPrefixes match whole parameter families (utm_foo, ga_bar, ...).
var trackingPrefixes = []string{"utm", "ga_", "icid", "mkt_"}

var multiSlash = regexp.MustCompile(`/{2,}`)

// URL derives a stable canonical form of a listing URL: https scheme,
// lowercased host without www or default ports, collapsed slashes, no
// fragment, tracking parameters removed, remaining parameters deduplicated
// and sorted. Returns "" when the input cannot be interpreted as a URL.
func URL(raw string) string {
	abs := ensureAbsolute(raw)
	if abs == "" {
		return ""
	}

	u, err := url.Parse(abs)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimSuffix(host, ":80")

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	path = multiSlash.ReplaceAllString(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	query := cleanQuery(u.Query())

	canon := url.URL{Scheme: "https", Host: host, Path: path, RawQuery: query}
	return canon.String()
}

// MerchantDomain extracts the bare host of a URL for merchant attribution.
// Returns "unknown" when the URL has no parsable host.
func MerchantDomain(raw string) string {
	abs := ensureAbsolute(raw)
	if abs == "" {
		return "unknown"
	}
	u, err := url.Parse(abs)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func ensureAbsolute(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "www."):
		return "https://" + raw
	case strings.HasPrefix(raw, "/"):
		// Relative links from search payloads are rooted at the engine's host.
		return "https://www.google.com" + raw
	case !strings.Contains(raw, "://"):
		return "https://" + raw
	}
	return raw
}

func cleanQuery(values url.Values) string {
	type pair struct{ key, value string }

	var pairs []pair
	seen := make(map[pair]struct{})
	for key, vals := range values {
		lower := strings.ToLower(key)
		if _, tracked := trackingKeys[lower]; tracked {
			continue
		}
		if hasTrackingPrefix(lower) {
			continue
		}
		for _, v := range vals {
			if v == "" {
				continue
			}
			p := pair{key: key, value: v}
			sig := pair{key: lower, value: v}
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			pairs = append(pairs, p)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		ki, kj := strings.ToLower(pairs[i].key), strings.ToLower(pairs[j].key)
		if ki != kj {
			return ki < kj
		}
		return pairs[i].value < pairs[j].value
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func hasTrackingPrefix(key string) bool {
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
