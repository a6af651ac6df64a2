// Package frontier holds a crawl run's queue of discovered URLs together
// with URL normalisation and same-site checks.
package frontier

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams never change page content and are dropped from URLs.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"yclid":        {},
	"msclkid":      {},
	"_openstat":    {},
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

var (
	ErrEmptyURL       = errors.New("empty url")
	ErrNotHTTP        = errors.New("url scheme must be http or https")
	ErrMissingURLHost = errors.New("url has no host")
)

// NormalizeURL canonicalises rawURL so that equivalent spellings compare
// equal: scheme and host are lower-cased, default ports and fragments are
// removed, dot-segments resolved, tracking parameters stripped and the
// remaining query sorted. The scheme itself is preserved.
func NormalizeURL(rawURL string) (string, error) {
	u, err := parseHTTP(rawURL)
	if err != nil {
		return "", err
	}

	u.Host = canonicalHost(u)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	u.RawQuery = cleanQuery(u.Query())
	u.Path = cleanPath(u.Path)
	u.RawPath = ""

	return u.String(), nil
}

// SiteKey reduces a host (with optional port) to the form used for
// same-site comparison: lower-cased, default port removed, leading "www."
// dropped.
func SiteKey(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ":80")
	h = strings.TrimSuffix(h, ":443")
	return strings.TrimPrefix(h, "www.")
}

// SameSite reports whether rawURL points at domain.
func SameSite(rawURL, domain string) bool {
	u, err := parseHTTP(rawURL)
	if err != nil {
		return false
	}
	return SiteKey(u.Host) == SiteKey(domain)
}

func parseHTTP(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrNotHTTP
	}
	if u.Host == "" {
		return nil, ErrMissingURLHost
	}
	return u, nil
}

func canonicalHost(u *url.URL) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || defaultPorts[u.Scheme] == port {
		if strings.Contains(hostname, ":") {
			return "[" + hostname + "]"
		}
		return hostname
	}
	if strings.Contains(hostname, ":") {
		return "[" + hostname + "]:" + port
	}
	return hostname + ":" + port
}

func cleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, tracking := trackingParams[strings.ToLower(key)]; !tracking {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, val := range values[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

// cleanPath resolves dot-segments and keeps a meaningful trailing slash.
func cleanPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
