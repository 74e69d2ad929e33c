package corpus

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"openbee/internal/cache"
	"openbee/internal/fetch"
)

const chunkSize = 32 * 1024

// LoaderConfig locates the corpus artifacts.
type LoaderConfig struct {
	// Namespace is the cache namespace for the decompressed corpus. It is
	// named after the corpus version, so a new corpus gets a fresh namespace.
	Namespace string
	// Base is the origin the corpus path is resolved against.
	Base *url.URL
	// Path is the corpus path without extension, e.g. "/words/en". The
	// compressed artifact is served at Path+".json.gz" and the decompressed
	// copy is cached under Path+".json".
	Path string
}

// Loader fetches and decompresses the corpus at most once per cache
// generation. Later calls are served from the corpus namespace.
type Loader struct {
	fetcher fetch.Fetcher
	storage cache.Storage
	cfg     LoaderConfig
	log     *zap.SugaredLogger

	group   singleflight.Group
	fetches atomic.Int64
}

func NewLoader(f fetch.Fetcher, s cache.Storage, cfg LoaderConfig, log *zap.SugaredLogger) *Loader {
	return &Loader{fetcher: f, storage: s, cfg: cfg, log: log}
}

// PlainURL is the cache key of the decompressed corpus.
func (l *Loader) PlainURL() string {
	return l.cfg.Base.ResolveReference(&url.URL{Path: l.cfg.Path + ".json"}).String()
}

// CompressedURL is where the gzip artifact is fetched from.
func (l *Loader) CompressedURL() string {
	return l.cfg.Base.ResolveReference(&url.URL{Path: l.cfg.Path + ".json.gz"}).String()
}

// Fetches reports how many times the compressed artifact was requested.
func (l *Loader) Fetches() int64 {
	return l.fetches.Load()
}

// Load returns the parsed corpus. Concurrent calls share one load, which
// outlives any single caller: a cancelled caller returns early while the
// others keep waiting on the shared result.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	ch := l.group.DoChan(l.cfg.Namespace, func() (any, error) {
		return l.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Corpus), nil
	}
}

func (l *Loader) load(ctx context.Context) (*Corpus, error) {
	words, err := l.storage.Open(ctx, l.cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("open corpus cache: %w", err)
	}

	key := l.PlainURL()
	if e, ok, err := words.Match(ctx, key); err != nil {
		return nil, fmt.Errorf("match corpus cache: %w", err)
	} else if ok {
		return Parse(e.Body)
	}

	l.fetches.Add(1)
	l.log.Infof("Fetching compressed corpus from %s", l.CompressedURL())
	resp, err := fetch.Get(ctx, l.fetcher, l.CompressedURL())
	if err != nil {
		return nil, err
	}

	text, err := Collect(DecodedChunks(resp.Body))
	if err != nil {
		return nil, err
	}
	c, err := Parse([]byte(text))
	if err != nil {
		return nil, err
	}

	entry := &cache.Entry{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(text),
	}
	if err := words.Put(ctx, key, entry); err != nil {
		return nil, fmt.Errorf("store corpus: %w", err)
	}
	l.log.Infof("Cached corpus with %d words and %d letter sets", len(c.Words), len(c.LetterSets))
	return c, nil
}

// DecodedChunks yields the gzip-decompressed, UTF-8 decoded text of body in
// chunks. The sequence can be ranged over once; body is closed when the
// range finishes, fails, or is abandoned early.
func DecodedChunks(body io.ReadCloser) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer body.Close()

		zr, err := gzip.NewReader(body)
		if err != nil {
			yield("", decompressError(err))
			return
		}
		defer zr.Close()

		r := transform.NewReader(zr, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		buf := make([]byte, chunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 && !yield(string(buf[:n]), nil) {
				return
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", decompressError(err))
				return
			}
		}
	}
}

// Collect concatenates chunks, stopping at the first error.
func Collect(chunks iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range chunks {
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func decompressError(err error) error {
	if errors.Is(err, gzip.ErrHeader) || errors.Is(err, gzip.ErrChecksum) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decompress: %v", ErrMalformed, err)
	}
	return fmt.Errorf("%w: decompress: %v", fetch.ErrTransport, err)
}
