package main

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"openbee/internal/offline"
)

const basePage = `<!doctype html>
<html>
	<head>
		<title>Open Spelling Bee</title>
	</head>
	<body>
		<main>
			<letter-buttons class="hive">
				<span>loading</span>
			</letter-buttons>
		</main>
	</body>
</html>
`

// TestHTMLKeepsComposerMarkers checks the base page is still composable once minified
func TestHTMLKeepsComposerMarkers(t *testing.T) {
	got, err := minifyBytes(newMinifier(), "text/html", []byte(basePage))
	if err != nil {
		t.Fatalf("HTML minification failed: %v", err)
	}
	if err := offline.CheckTemplate(got); err != nil {
		t.Errorf("minified page lost a marker: %v\n%s", err, got)
	}
	if len(got) >= len(basePage) {
		t.Errorf("minified page is %d bytes, input was %d", len(got), len(basePage))
	}
}

// TestCSSMinification checks that CSS is minified as expected
func TestCSSMinification(t *testing.T) {
	input := `
		body {
			color: #fff;
			margin: 0  ;
		}
	`
	got, err := minifyBytes(newMinifier(), "text/css", []byte(input))
	if err != nil {
		t.Fatalf("CSS minification failed: %v", err)
	}
	if string(got) != `body{color:#fff;margin:0}` {
		t.Errorf("CSS minification mismatch: %q", got)
	}
}

// TestJSMinification checks that JavaScript is minified as expected
func TestJSMinification(t *testing.T) {
	input := `
		function add(a, b) {
			return a + b;
		}
	`
	got, err := minifyBytes(newMinifier(), "application/javascript", []byte(input))
	if err != nil {
		t.Fatalf("JS minification failed: %v", err)
	}
	if string(got) != `function add(e,t){return e+t}` {
		t.Errorf("JS minification mismatch: %q", got)
	}
}

func writeSite(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, body, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestMinifySite(t *testing.T) {
	var corpus bytes.Buffer
	zw := gzip.NewWriter(&corpus)
	zw.Write([]byte(`["bore","bored"]`))
	zw.Close()

	src := writeSite(t, map[string][]byte{
		"index.html":       []byte(basePage),
		"app.js":           []byte("function add(a, b) {\n\treturn a + b;\n}\n"),
		"style.css":        []byte("body {\n\tmargin: 0 ;\n}\n"),
		"words/en.json.gz": corpus.Bytes(),
	})
	out := filepath.Join(t.TempDir(), "dist")

	stats, err := minifySite(newMinifier(), src, out, "index.html")
	if err != nil {
		t.Fatalf("minifySite: %v", err)
	}
	if stats.Minified != 3 || stats.Copied != 1 {
		t.Errorf("stats = %+v, want 3 minified, 1 copied", stats)
	}
	if stats.Saved <= 0 {
		t.Errorf("saved = %d bytes", stats.Saved)
	}

	copied, err := os.ReadFile(filepath.Join(out, "words", "en.json.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(copied, corpus.Bytes()) {
		t.Error("gzipped corpus was altered")
	}
	css, err := os.ReadFile(filepath.Join(out, "style.css"))
	if err != nil {
		t.Fatal(err)
	}
	if string(css) != "body{margin:0}" {
		t.Errorf("style.css = %q", css)
	}
}

func TestMinifySiteRejectsBrokenPage(t *testing.T) {
	src := writeSite(t, map[string][]byte{
		"index.html": []byte("<html><head></head><body><p>no hive</p></body></html>"),
	})
	_, err := minifySite(newMinifier(), src, t.TempDir(), "index.html")
	if !errors.Is(err, offline.ErrTemplateMarker) {
		t.Fatalf("minifySite = %v, want ErrTemplateMarker", err)
	}
}

func TestMinifySiteMissingPage(t *testing.T) {
	src := writeSite(t, map[string][]byte{"app.js": []byte("var a = 1;")})
	_, err := minifySite(newMinifier(), src, t.TempDir(), "index.html")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("minifySite = %v, want base page not found", err)
	}
}
