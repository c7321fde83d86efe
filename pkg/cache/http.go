package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the response carries no expiry
	DefaultTTL = 5 * time.Minute
)

// uncacheable lists the Cache-Control directives that keep a response out
// of the shared cache. Entries are served without revalidation.
var uncacheable = []string{"no-store", "no-cache", "private"}

// Cacheable reports whether a response may be stored.
// Only successful GET responses without no-store, no-cache or private qualify.
func Cacheable(method string, statusCode int, header http.Header) bool {
	if !strings.EqualFold(method, http.MethodGet) {
		return false
	}
	if statusCode < 200 || statusCode > 299 {
		return false
	}
	for _, name := range uncacheable {
		if hasDirective(header, name) {
			return false
		}
	}
	return true
}

// NewEntry builds an Entry from a received response.
// The body slice is stored as is and must not be modified afterwards.
func NewEntry(statusCode int, header http.Header, body []byte) *Entry {
	return &Entry{
		Body:       body,
		StatusCode: statusCode,
		Header:     header.Clone(),
		Expires:    parseExpires(header),
		CachedAt:   time.Now(),
	}
}

// parseExpires returns the expiry of a response: max-age first, then the
// Expires header, then now + DefaultTTL.
func parseExpires(header http.Header) time.Time {
	now := time.Now()

	if maxAge, ok := maxAge(header); ok {
		return now.Add(maxAge)
	}

	expiresStr := header.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}

	// Already expired - use minimal TTL
	if expires.Before(now) {
		return now
	}

	return expires
}

func maxAge(header http.Header) (time.Duration, bool) {
	for _, directive := range directives(header) {
		value, found := strings.CutPrefix(directive, "max-age=")
		if !found {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

// hasDirective matches a directive with or without arguments, so
// private="Set-Cookie" counts as private.
func hasDirective(header http.Header, name string) bool {
	for _, directive := range directives(header) {
		if directive == name || strings.HasPrefix(directive, name+"=") {
			return true
		}
	}
	return false
}

func directives(header http.Header) []string {
	var out []string
	for _, line := range header.Values("Cache-Control") {
		for _, d := range strings.Split(line, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}
