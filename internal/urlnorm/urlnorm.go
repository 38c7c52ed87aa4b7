// Package urlnorm canonicalizes URLs for deduplication.
//
// Two spellings of the same address must normalize to the same canonical
// string so the frontier treats them as one crawl target. Normalization
// resolves relative references, lowercases the scheme and host, strips
// the default port for the scheme, drops fragments, and treats an empty
// path as "/".
//
// Design decision: Normalization is a pure function over net/url values
// with no state, which keeps it trivially testable and lets every
// component (extractor, engine, frontier) agree on the canonical form
// without sharing anything.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrMalformedURL is returned for input that cannot be parsed into
	// an absolute URL with a host.
	ErrMalformedURL = errors.New("malformed url")

	// ErrUnsupportedScheme is returned for schemes other than http and
	// https (mailto:, javascript:, tel:, data:, ftp:, ...).
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// Normalize resolves raw against base (when raw is not absolute) and
// returns the canonical form. base may be nil for absolute input.
func Normalize(base *url.URL, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMalformedURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	switch u.Scheme {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", ErrMalformedURL
	}

	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port != "" && isDefaultPort(u.Scheme, port) {
		u.Host = u.Hostname()
	}

	// Fragments never change the fetched content.
	u.Fragment = ""
	u.RawFragment = ""

	// http://example.com and http://example.com/ are the same target.
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// NormalizeSeed canonicalizes a seed address, defaulting the scheme to
// https for bare hostnames like "example.com".
func NormalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMalformedURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return Normalize(nil, raw)
}

// Host extracts the lowercase hostname (without port) from a canonical
// URL. Returns "" for unparsable input.
func Host(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// AllowedHost reports whether host belongs to the domain allow-list:
// an exact match or a subdomain of an allowed domain. An empty
// allow-list permits every host.
func AllowedHost(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimPrefix(d, "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// isDefaultPort reports whether port is the default for scheme.
func isDefaultPort(scheme, port string) bool {
	switch scheme {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	}
	return false
}
