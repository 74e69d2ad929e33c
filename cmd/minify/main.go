// Command minify copies a site directory, minifying its HTML, CSS and
// JavaScript on the way. The base page keeps its document and end tags so
// the offline composer can still find </head> and <letter-buttons>.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"go.uber.org/zap"

	"openbee/internal/offline"
)

var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
}

// Stats counts what a run did.
type Stats struct {
	Minified int
	Copied   int
	Saved    int64
}

func main() {
	var (
		src  = flag.String("src", "site", "Site directory to read")
		out  = flag.String("out", "dist", "Directory to write")
		page = flag.String("page", "index.html", "Base page, relative to -src")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	stats, err := minifySite(newMinifier(), *src, *out, *page)
	if err != nil {
		log.Fatalf("Minify %s: %v", *src, err)
	}
	log.Infof("Minified %d files, copied %d, saved %d bytes", stats.Minified, stats.Copied, stats.Saved)
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	return m
}

// minifySite walks src and mirrors it into out. Files with a known extension
// are minified, everything else (the gzipped corpus included) is copied as is.
func minifySite(m *minify.M, src, out, page string) (Stats, error) {
	var stats Stats
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(out, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}

		input, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			stats.Copied++
			return os.WriteFile(dst, input, 0644)
		}

		output, err := minifyBytes(m, mediaType, input)
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		if filepath.ToSlash(rel) == filepath.ToSlash(page) {
			if err := offline.CheckTemplate(output); err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
		}
		stats.Minified++
		stats.Saved += int64(len(input) - len(output))
		return os.WriteFile(dst, output, 0644)
	})
	if err != nil {
		return stats, err
	}
	if _, err := os.Stat(filepath.Join(src, page)); errors.Is(err, fs.ErrNotExist) {
		return stats, fmt.Errorf("base page %s not found in %s", page, src)
	}
	return stats, nil
}

func minifyBytes(m *minify.M, mediaType string, input []byte) ([]byte, error) {
	var b bytes.Buffer
	b.Grow(len(input))
	if err := m.Minify(mediaType, &b, bytes.NewReader(input)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
