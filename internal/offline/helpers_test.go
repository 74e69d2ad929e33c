package offline

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"openbee/internal/cache"
	"openbee/internal/corpus"
	"openbee/internal/fetch"
)

const (
	testStatic = "open-spelling-bee-1.4.9"
	testCorpus = "open-spelling-bee-words/en-1.0.0"
	testPage   = `<!doctype html><html><head><title>Bee</title></head>` +
		`<body><letter-buttons id="letters"><span>loading</span></letter-buttons></body></html>`
)

// testNow is 2024-03-15 12:00 UTC; today is 20240215 and yesterday 20240214.
var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func testCorpusData() *corpus.Corpus {
	return &corpus.Corpus{
		Words:       []string{"bore", "bored", "brew", "brewed", "browed", "herb", "howdy"},
		LetterSets:  []string{"Bdehorw"},
		WordIndices: [][]int{{0, 1, 2, 3, 4, 5}},
	}
}

func gzipped(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// upstream is a fake origin that counts requests per URL.
type upstream struct {
	mu     sync.Mutex
	bodies map[string][]byte
	status map[string]int
	hits   map[string]int
}

func newUpstream() *upstream {
	return &upstream{
		bodies: map[string][]byte{},
		status: map[string]int{},
		hits:   map[string]int{},
	}
}

func (u *upstream) set(rawURL string, status int, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[rawURL] = status
	u.bodies[rawURL] = body
}

func (u *upstream) remove(rawURL string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.status, rawURL)
	delete(u.bodies, rawURL)
}

func (u *upstream) count(rawURL string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[rawURL]
}

func (u *upstream) fetcher() fetch.Fetcher {
	return fetch.FetcherFunc(func(_ context.Context, req *http.Request) (*http.Response, error) {
		u.mu.Lock()
		defer u.mu.Unlock()
		key := req.URL.String()
		u.hits[key]++
		status, ok := u.status[key]
		if !ok {
			return nil, fetch.ErrTransport
		}
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Header: http.Header{
				"Content-Type":   []string{"text/html; charset=utf-8"},
				"Content-Length": []string{"123"},
				"Etag":           []string{`"v1-template"`},
				"Last-Modified":  []string{"Thu, 14 Mar 2024 08:00:00 GMT"},
			},
			Body: io.NopCloser(bytes.NewReader(u.bodies[key])),
		}, nil
	})
}

type fixture struct {
	cfg      Config
	storage  *cache.Memory
	upstream *upstream
	loader   *corpus.Loader
	composer *Composer
	proxy    *Proxy
	gen      *Generation
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	return newFixtureAt(t, now, "https://bee.example.com/")
}

// newFixtureAt serves the site from origin. The base page answers on both
// "/" and "/index.html".
func newFixtureAt(t *testing.T, now time.Time, rawOrigin string) *fixture {
	t.Helper()
	origin, err := url.Parse(rawOrigin)
	require.NoError(t, err)
	at := func(path string) string { return origin.ResolveReference(&url.URL{Path: path}).String() }

	cfg := Config{
		Origin:        origin,
		DevHost:       "localhost",
		StaticVersion: testStatic,
		CorpusVersion: testCorpus,
		Manifest:      []string{"https://cdn.example.net/alpine.js"},
	}
	up := newUpstream()
	up.set(at("/"), http.StatusOK, []byte(testPage))
	up.set(at("/index.html"), http.StatusOK, []byte(testPage))
	up.set(at("/words/en.json.gz"), http.StatusOK, gzipped(t, testCorpusData()))
	up.set("https://cdn.example.net/alpine.js", http.StatusOK, []byte("alpine()"))

	log := zap.NewNop().Sugar()
	storage := cache.NewMemory()
	t.Cleanup(func() { storage.Close() })

	loader := corpus.NewLoader(up.fetcher(), storage, corpus.LoaderConfig{
		Namespace: testCorpus,
		Base:      origin,
		Path:      "/words/en",
	}, log)
	clock := func() time.Time { return now }
	composer := NewComposer(cfg, storage, up.fetcher(), loader, clock, log)
	return &fixture{
		cfg:      cfg,
		storage:  storage,
		upstream: up,
		loader:   loader,
		composer: composer,
		proxy:    NewProxy(cfg, storage, up.fetcher(), composer, log),
		gen:      NewGeneration(cfg, storage, up.fetcher(), clock, log),
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
