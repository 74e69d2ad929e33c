package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"openbee/internal/cache"
	"openbee/internal/corpus"
	"openbee/internal/fetch"
	"openbee/internal/puzzle"
)

// ErrTemplateMarker means the base page lacks a marker the composer splices
// content at.
var ErrTemplateMarker = errors.New("template marker missing")

const (
	headClose         = "</head>"
	letterButtonsOpen = "<letter-buttons"
	letterButtonsEnd  = "</letter-buttons"
)

// CorpusLoader supplies the corpus.
type CorpusLoader interface {
	Load(ctx context.Context) (*corpus.Corpus, error)
}

// GameData is the object exposed to the page as window.__GAME_DATA__.
type GameData struct {
	Today     puzzle.Descriptor `json:"today"`
	Yesterday puzzle.Descriptor `json:"yesterday"`
}

// Composer builds the daily page from the cached base template.
type Composer struct {
	cfg     Config
	storage cache.Storage
	fetcher fetch.Fetcher
	corpus  CorpusLoader
	now     func() time.Time
	log     *zap.SugaredLogger
}

func NewComposer(cfg Config, s cache.Storage, f fetch.Fetcher, c CorpusLoader, now func() time.Time, log *zap.SugaredLogger) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{cfg: cfg, storage: s, fetcher: f, corpus: c, now: now, log: log}
}

// Puzzles generates today's and yesterday's descriptors.
func (c *Composer) Puzzles(ctx context.Context) (GameData, error) {
	words, err := c.corpus.Load(ctx)
	if err != nil {
		return GameData{}, err
	}
	return generate(words, c.now())
}

func generate(words *corpus.Corpus, now time.Time) (GameData, error) {
	today, err := puzzle.Generate(words, puzzle.Today(now))
	if err != nil {
		return GameData{}, fmt.Errorf("generate today: %w", err)
	}
	yesterday, err := puzzle.Generate(words, puzzle.Yesterday(now))
	if err != nil {
		return GameData{}, fmt.Errorf("generate yesterday: %w", err)
	}
	return GameData{Today: today, Yesterday: yesterday}, nil
}

// Compose returns the page for u with the day's puzzles embedded. A page
// composed earlier today is reused, except for the development host, which
// always gets a freshly fetched template. The composed page is written to the
// page cache before it is returned.
func (c *Composer) Compose(ctx context.Context, u *url.URL) (*cache.Entry, error) {
	now := c.now()
	today := puzzle.Today(now)
	dev := c.cfg.isDev(u)

	pages, err := c.storage.Open(ctx, c.cfg.PagesNamespace())
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	key := PageKey(u, today, c.cfg.CorpusVersion)
	if !dev {
		if e, ok, err := pages.Match(ctx, key); err != nil {
			return nil, fmt.Errorf("match page cache: %w", err)
		} else if ok {
			return e, nil
		}
	}

	var (
		words    *corpus.Corpus
		template *cache.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		words, err = c.corpus.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		template, err = c.template(gctx, u, dev)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := generate(words, now)
	if err != nil {
		return nil, err
	}
	body, err := Inject(template.Body, data)
	if err != nil {
		return nil, err
	}

	header := template.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	// The composed body differs from the template's, so its validators do not apply.
	header.Del("Content-Length")
	header.Del("ETag")
	header.Del("Last-Modified")
	page := &cache.Entry{Status: http.StatusOK, Header: header, Body: body}
	if err := pages.Put(ctx, key, page); err != nil {
		return nil, fmt.Errorf("store composed page: %w", err)
	}
	c.log.Infof("Composed page %s for day %d (center %q, %d words)", key, today, data.Today.CenterLetter, len(data.Today.ValidWords))
	return page, nil
}

// template returns the base page, fetching and caching it when absent.
func (c *Composer) template(ctx context.Context, u *url.URL, dev bool) (*cache.Entry, error) {
	static, err := c.storage.Open(ctx, c.cfg.StaticVersion)
	if err != nil {
		return nil, fmt.Errorf("open static cache: %w", err)
	}
	key := pageBase(u).String()
	if !dev {
		if e, ok, err := static.Match(ctx, key); err != nil {
			return nil, fmt.Errorf("match template: %w", err)
		} else if ok {
			return e, nil
		}
	}

	e, err := fetch.GetEntry(ctx, c.fetcher, key)
	if err != nil {
		return nil, err
	}
	if err := static.Put(ctx, key, e); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}
	return e, nil
}

// Inject splices the game data script before </head> and the letter
// controls into the <letter-buttons> element, replacing whatever it held.
// The rest of the page is left byte for byte as it was.
func Inject(page []byte, data GameData) ([]byte, error) {
	m, err := findMarkers(page)
	if err != nil {
		return nil, err
	}
	script, err := gameDataScript(data)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.Grow(len(page) + len(script) + 512)
	b.Write(page[:m.head])
	b.WriteString(script)
	b.Write(page[m.head:m.buttonsStart])
	b.WriteString(LetterButtons(data.Today))
	b.Write(page[m.buttonsEnd:])
	return b.Bytes(), nil
}

// CheckTemplate reports whether page can be composed.
func CheckTemplate(page []byte) error {
	_, err := findMarkers(page)
	return err
}

type markers struct {
	head         int
	buttonsStart int
	buttonsEnd   int
}

func findMarkers(page []byte) (markers, error) {
	head := bytes.Index(page, []byte(headClose))
	if head < 0 {
		return markers{}, fmt.Errorf("%w: %s", ErrTemplateMarker, headClose)
	}
	open := bytes.Index(page, []byte(letterButtonsOpen))
	if open < 0 {
		return markers{}, fmt.Errorf("%w: %s>", ErrTemplateMarker, letterButtonsOpen)
	}
	if open < head {
		return markers{}, fmt.Errorf("%w: %s> appears inside <head>", ErrTemplateMarker, letterButtonsOpen)
	}
	openEnd := bytes.IndexByte(page[open:], '>')
	if openEnd < 0 {
		return markers{}, fmt.Errorf("%w: unterminated %s", ErrTemplateMarker, letterButtonsOpen)
	}
	start := open + openEnd + 1
	closeOff := bytes.Index(page[start:], []byte(letterButtonsEnd))
	if closeOff < 0 {
		return markers{}, fmt.Errorf("%w: %s>", ErrTemplateMarker, letterButtonsEnd)
	}
	return markers{head: head, buttonsStart: start, buttonsEnd: start + closeOff}, nil
}

func gameDataScript(data GameData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return "<script>window.__GAME_DATA__ = " + string(payload) + ";</script>", nil
}

// LetterButtons renders one button per letter, outer letters first and the
// center letter last.
func LetterButtons(d puzzle.Descriptor) string {
	var b strings.Builder
	for _, letter := range d.Letters() {
		class := "outer"
		if letter == d.CenterLetter {
			class = "center"
		}
		fmt.Fprintf(&b, `<button type="button" class="%s">%s</button>`, class, html.EscapeString(letter))
	}
	return b.String()
}
