package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// DefaultNamespace prefixes every key unless the Manager is given another.
const DefaultNamespace = "rollingbatch"

// Key identifies a cached response.
type Key struct {
	// Method is the HTTP method, upper case
	Method string

	// Host includes the port when the URL carries one
	Host string

	// Path is the URL path
	Path string

	// Query holds the query parameters
	Query url.Values
}

// KeyFor builds a Key from a method and a raw URL.
func KeyFor(method, rawURL string) (Key, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return Key{}, fmt.Errorf("url %q has no host", rawURL)
	}

	return Key{
		Method: strings.ToUpper(method),
		Host:   strings.ToLower(u.Host),
		Path:   u.EscapedPath(),
		Query:  u.Query(),
	}, nil
}

// String formats the key under DefaultNamespace.
// Format: rollingbatch:METHOD:host/path:q1=v1:q2=v2a,v2b
//
// Example:
//
//	rollingbatch:GET:127.0.0.1:8080/:content=foo:status=200
func (k Key) String() string {
	return k.format(DefaultNamespace)
}

func (k Key) format(namespace string) string {
	parts := []string{namespace, k.Method, k.Host + k.Path}

	// Query params sorted for determinism; repeated values keep their order.
	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Query[name], ",")))
		}
	}

	return strings.Join(parts, ":")
}
