package offline

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"openbee/internal/puzzle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestComposeInjectsGameData(t *testing.T) {
	f := newFixture(t, testNow)
	ctx := context.Background()

	page, err := f.composer.Compose(ctx, mustURL(t, "https://bee.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Empty(t, page.Header.Get("Content-Length"))
	assert.Empty(t, page.Header.Get("ETag"))
	assert.Empty(t, page.Header.Get("Last-Modified"))
	assert.Equal(t, "text/html; charset=utf-8", page.Header.Get("Content-Type"))

	body := string(page.Body)
	script := strings.Index(body, "<script>window.__GAME_DATA__ = ")
	head := strings.Index(body, "</head>")
	require.GreaterOrEqual(t, script, 0)
	assert.Less(t, script, head)
	assert.Contains(t, body, `"timestamp":20240215`)
	assert.Contains(t, body, `"timestamp":20240214`)
	assert.Contains(t, body, `"centerLetter":"b"`)
	assert.Contains(t, body, `"outerLetters":["d","e","h","o","r","w"]`)

	wantButtons := `<letter-buttons id="letters">` +
		`<button type="button" class="outer">d</button>` +
		`<button type="button" class="outer">e</button>` +
		`<button type="button" class="outer">h</button>` +
		`<button type="button" class="outer">o</button>` +
		`<button type="button" class="outer">r</button>` +
		`<button type="button" class="outer">w</button>` +
		`<button type="button" class="center">b</button>` +
		`</letter-buttons>`
	assert.Contains(t, body, wantButtons)
	assert.NotContains(t, body, "loading")
	assert.True(t, strings.HasPrefix(body, "<!doctype html><html><head><title>Bee</title>"))
	assert.True(t, strings.HasSuffix(body, "</letter-buttons></body></html>"))
}

func TestComposeReusesTodaysPage(t *testing.T) {
	f := newFixture(t, testNow)
	ctx := context.Background()
	u := mustURL(t, "https://bee.example.com/?utm=x")

	first, err := f.composer.Compose(ctx, u)
	require.NoError(t, err)
	second, err := f.composer.Compose(ctx, u)
	require.NoError(t, err)

	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, 1, f.upstream.count("https://bee.example.com/"))
	assert.Equal(t, int64(1), f.loader.Fetches())

	pages, err := f.storage.Open(ctx, f.cfg.PagesNamespace())
	require.NoError(t, err)
	keys, err := pages.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	day, version, ok := ParsePageKey(keys[0])
	require.True(t, ok)
	assert.Equal(t, 20240215, day)
	assert.Equal(t, testCorpus, version)
}

func TestComposeDevHostRefetchesTemplate(t *testing.T) {
	const origin = "http://localhost:8080/"
	f := newFixtureAt(t, testNow, origin)
	ctx := context.Background()
	u := mustURL(t, origin)

	first, err := f.composer.Compose(ctx, u)
	require.NoError(t, err)
	assert.Contains(t, string(first.Body), "<title>Bee</title>")

	f.upstream.set(origin, http.StatusOK, []byte(strings.Replace(testPage, "<title>Bee</title>", "<title>Bee dev</title>", 1)))
	second, err := f.composer.Compose(ctx, u)
	require.NoError(t, err)
	assert.Contains(t, string(second.Body), "<title>Bee dev</title>")
	assert.Contains(t, string(second.Body), "window.__GAME_DATA__")

	assert.Equal(t, 2, f.upstream.count(origin))
	assert.Equal(t, int64(1), f.loader.Fetches())

	pages, err := f.storage.Open(ctx, f.cfg.PagesNamespace())
	require.NoError(t, err)
	keys, err := pages.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	stored, ok, err := pages.Match(ctx, keys[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.Body, stored.Body)
}

func TestComposeNewDayComposesFreshPage(t *testing.T) {
	f := newFixture(t, testNow)
	ctx := context.Background()
	u := mustURL(t, "https://bee.example.com/")

	_, err := f.composer.Compose(ctx, u)
	require.NoError(t, err)

	next := NewComposer(f.cfg, f.storage, f.upstream.fetcher(), f.loader, func() time.Time { return testNow.AddDate(0, 0, 1) }, f.composer.log)
	page, err := next.Compose(ctx, u)
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), `"timestamp":20240216`)
	assert.Equal(t, 1, f.upstream.count("https://bee.example.com/"), "template comes from the static cache")
}

func TestComposeTemplateFetchFails(t *testing.T) {
	f := newFixture(t, testNow)
	f.upstream.set("https://bee.example.com/", http.StatusServiceUnavailable, nil)

	_, err := f.composer.Compose(context.Background(), mustURL(t, "https://bee.example.com/"))
	require.Error(t, err)

	pages, err := f.storage.Open(context.Background(), f.cfg.PagesNamespace())
	require.NoError(t, err)
	keys, err := pages.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPuzzles(t *testing.T) {
	f := newFixture(t, testNow)
	data, err := f.composer.Puzzles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, puzzle.Today(testNow), data.Today.Timestamp)
	assert.Equal(t, puzzle.Yesterday(testNow), data.Yesterday.Timestamp)
	assert.Equal(t, []string{"bore", "bored", "brew", "brewed", "browed", "herb"}, data.Today.ValidWords)
}

func TestInjectMissingMarkers(t *testing.T) {
	data := GameData{Today: puzzle.Descriptor{CenterLetter: "b", OuterLetters: []string{"d", "e", "h", "o", "r", "w"}}}
	tests := []struct {
		name string
		page string
	}{
		{"no head", `<html><body><letter-buttons></letter-buttons></body></html>`},
		{"no letter buttons", `<html><head></head><body></body></html>`},
		{"unclosed letter buttons", `<html><head></head><body><letter-buttons></body></html>`},
		{"letter buttons in head", `<html><letter-buttons></letter-buttons><head></head></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inject([]byte(tt.page), data)
			assert.ErrorIs(t, err, ErrTemplateMarker)
			assert.ErrorIs(t, CheckTemplate([]byte(tt.page)), ErrTemplateMarker)
		})
	}
	assert.NoError(t, CheckTemplate([]byte(`<html><head></head><body><letter-buttons class="hive"></letter-buttons></body></html>`)))
}

func TestLetterButtonsOrder(t *testing.T) {
	d := puzzle.Descriptor{CenterLetter: "a", OuterLetters: []string{"b", "c", "d", "e", "f", "g"}}
	got := LetterButtons(d)
	assert.True(t, strings.HasSuffix(got, `<button type="button" class="center">a</button>`))
	assert.Equal(t, 6, strings.Count(got, `class="outer"`))
}
