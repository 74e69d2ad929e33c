// Command corpusgen builds the compressed corpus artifact served at
// <corpus-path>.json.gz from a newline delimited word list.
package main

import (
	"bufio"
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"openbee/internal/corpus"
)

// options controls one run.
type options struct {
	words   string
	out     string
	plain   bool
	grouped bool
}

func main() {
	var opts options
	flag.StringVar(&opts.words, "words", "", "Word list, one word per line")
	flag.StringVar(&opts.out, "out", "dist/words/en", "Output path without extension")
	flag.BoolVar(&opts.plain, "plain", false, "Also write the uncompressed .json")
	flag.BoolVar(&opts.grouped, "grouped", false, "Write the grouped encoding instead of the flat one")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if opts.words == "" {
		log.Fatal("Usage: corpusgen -words=<file> [-out=dist/words/en] [-plain] [-grouped]")
	}

	f, err := os.Open(opts.words)
	if err != nil {
		log.Fatalf("Failed to open word list: %v", err)
	}
	defer f.Close()

	c, err := generate(f, opts)
	if err != nil {
		log.Fatalf("Failed to build corpus: %v", err)
	}
	log.Infof("Wrote %s.json.gz: %d words, %d letter sets", opts.out, len(c.Words), len(c.LetterSets))
}

// generate reads the word list from r, builds the corpus and writes the
// artifacts named by opts.
func generate(r io.Reader, opts options) (*corpus.Corpus, error) {
	words, err := readWords(r)
	if err != nil {
		return nil, err
	}
	c := corpus.Build(words)

	var data []byte
	if opts.grouped {
		data, err = c.MarshalGrouped()
	} else {
		data, err = c.MarshalJSON()
	}
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(opts.out), 0755); err != nil {
		return nil, err
	}
	if err := writeGzip(opts.out+".json.gz", data); err != nil {
		return nil, err
	}
	if opts.plain {
		if err := os.WriteFile(opts.out+".json", data, 0644); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}

func writeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := zw.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
