// Package offline is the request-interception engine that keeps the game
// playable without the origin: it routes every request, composes the daily
// page, and owns the lifecycle of the cache generations.
package offline

import (
	"net/url"
	"strconv"
	"strings"
)

// Config names the generation and the origin it fronts.
type Config struct {
	// Origin is the base URL of the static site.
	Origin *url.URL
	// DevHost is the hostname treated as a local development origin; its
	// requests are never served from cache.
	DevHost string
	// StaticVersion tags the static-asset namespace. Exactly one is live.
	StaticVersion string
	// CorpusVersion names the decompressed-corpus namespace.
	CorpusVersion string
	// Manifest lists third-party assets pre-cached on install.
	Manifest []string
}

// PagesNamespace holds the composed per-day pages of this generation.
func (c Config) PagesNamespace() string {
	return c.StaticVersion + "/pages"
}

// LiveNamespaces are the namespaces activation keeps.
func (c Config) LiveNamespaces() []string {
	return []string{c.StaticVersion, c.PagesNamespace(), c.CorpusVersion}
}

func (c Config) isDev(u *url.URL) bool {
	return c.DevHost != "" && strings.EqualFold(u.Hostname(), c.DevHost)
}

func (c Config) sameOrigin(u *url.URL) bool {
	return c.Origin != nil && strings.EqualFold(u.Hostname(), c.Origin.Hostname())
}

// pageBase strips the query and fragment from u.
func pageBase(u *url.URL) *url.URL {
	base := *u
	base.RawQuery = ""
	base.ForceQuery = false
	base.Fragment = ""
	base.RawFragment = ""
	return &base
}

// PageKey is the page cache key for u on dayKey. The corpus version is part
// of the key so a page composed from an older corpus is never served after
// the corpus changes mid-day.
func PageKey(u *url.URL, dayKey int, corpusVersion string) string {
	key := pageBase(u)
	q := url.Values{}
	q.Set("t", strconv.Itoa(dayKey))
	q.Set("v", corpusVersion)
	key.RawQuery = q.Encode()
	return key.String()
}

// ParsePageKey extracts the day key and corpus version from a page key.
func ParsePageKey(key string) (dayKey int, corpusVersion string, ok bool) {
	u, err := url.Parse(key)
	if err != nil {
		return 0, "", false
	}
	q := u.Query()
	dayKey, err = strconv.Atoi(q.Get("t"))
	if err != nil {
		return 0, "", false
	}
	return dayKey, q.Get("v"), true
}
