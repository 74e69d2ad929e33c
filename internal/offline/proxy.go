package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"openbee/internal/cache"
	"openbee/internal/fetch"
)

// ErrUnsupportedScheme is returned for requests the proxy does not handle.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// Route is how the proxy answers a request.
type Route int

const (
	RouteIgnore Route = iota
	RoutePage
	RouteBypass
	RouteCache
)

func (r Route) String() string {
	switch r {
	case RouteIgnore:
		return "ignore"
	case RoutePage:
		return "page"
	case RouteBypass:
		return "bypass"
	case RouteCache:
		return "cache"
	}
	return fmt.Sprintf("Route(%d)", int(r))
}

// Proxy answers every request either from cache, from the composer, or from
// the network.
type Proxy struct {
	cfg      Config
	storage  cache.Storage
	fetcher  fetch.Fetcher
	composer *Composer
	log      *zap.SugaredLogger
}

func NewProxy(cfg Config, s cache.Storage, f fetch.Fetcher, composer *Composer, log *zap.SugaredLogger) *Proxy {
	return &Proxy{cfg: cfg, storage: s, fetcher: f, composer: composer, log: log}
}

// Classify picks the route for u. The checks run in order: scheme, the page
// paths on the origin host, then the development host.
func (p *Proxy) Classify(u *url.URL) Route {
	if u.Scheme != "http" && u.Scheme != "https" {
		return RouteIgnore
	}
	if p.cfg.sameOrigin(u) && (u.Path == "/" || u.Path == "/index.html") {
		return RoutePage
	}
	if p.cfg.sameOrigin(u) && p.cfg.isDev(u) {
		return RouteBypass
	}
	return RouteCache
}

// Serve answers req. Only GET and HEAD requests are cached; anything else
// goes straight to the network.
func (p *Proxy) Serve(ctx context.Context, req *http.Request) (*cache.Entry, Route, error) {
	route := p.Classify(req.URL)
	if route == RouteIgnore {
		return nil, route, fmt.Errorf("%w: %q", ErrUnsupportedScheme, req.URL.Scheme)
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		e, err := p.network(ctx, req)
		return e, RouteBypass, err
	}

	switch route {
	case RoutePage:
		e, err := p.composer.Compose(ctx, req.URL)
		return e, route, err
	case RouteBypass:
		e, err := p.network(ctx, req)
		return e, route, err
	}
	e, err := p.cacheFirst(ctx, req)
	return e, route, err
}

func (p *Proxy) network(ctx context.Context, req *http.Request) (*cache.Entry, error) {
	resp, err := p.fetcher.Fetch(ctx, outbound(ctx, req))
	if err != nil {
		return nil, err
	}
	return fetch.ToEntry(resp)
}

// partialHeaders make the upstream answer with part of a resource or none
// of it. They are stripped before filling the cache.
var partialHeaders = []string{
	"Range",
	"If-Range",
	"If-Match",
	"If-None-Match",
	"If-Modified-Since",
	"If-Unmodified-Since",
}

// cacheFirst serves from the static namespace, filling it on a miss. The
// fill always asks for the full resource and only a 200 is stored.
func (p *Proxy) cacheFirst(ctx context.Context, req *http.Request) (*cache.Entry, error) {
	static, err := p.storage.Open(ctx, p.cfg.StaticVersion)
	if err != nil {
		return nil, fmt.Errorf("open static cache: %w", err)
	}
	key := req.URL.String()
	if e, ok, err := static.Match(ctx, key); err != nil {
		return nil, fmt.Errorf("match static cache: %w", err)
	} else if ok {
		return e, nil
	}

	out := outbound(ctx, req)
	out.Method = http.MethodGet
	for _, h := range partialHeaders {
		out.Header.Del(h)
	}
	e, err := p.network(ctx, out)
	if err != nil {
		return nil, err
	}
	if e.Status != http.StatusOK {
		return e, nil
	}
	if err := static.Put(ctx, key, e); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	p.log.Debugf("Cached %s (%d bytes)", key, len(e.Body))
	return e, nil
}

// outbound copies req for the upstream. Accept-Encoding is dropped so the
// stored body is exactly what the client will be sent.
func outbound(ctx context.Context, req *http.Request) *http.Request {
	out := req.Clone(ctx)
	out.RequestURI = ""
	out.Header.Del("Accept-Encoding")
	out.Header.Del("Connection")
	return out
}
