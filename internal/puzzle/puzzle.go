// Package puzzle derives the daily puzzle from the word corpus and scores
// guesses against it. Everything here is a pure function of its inputs.
package puzzle

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/samber/lo"

	"openbee/internal/corpus"
)

// LetterSetSize is the number of letters in every puzzle: one center letter
// plus six outer letters.
const LetterSetSize = 7

var (
	ErrEmptyCorpus        = errors.New("corpus has no letter sets")
	ErrNoCenterLetter     = errors.New("no center letter found")
	ErrMalformedLetterSet = errors.New("malformed letter set")
)

// Descriptor is one day's puzzle as exposed to the client runtime.
type Descriptor struct {
	Timestamp    int      `json:"timestamp"`
	CenterLetter string   `json:"centerLetter"`
	OuterLetters []string `json:"outerLetters"`
	ValidWords   []string `json:"validWords"`
}

// Letters returns the outer letters followed by the center letter, the order
// the letter controls are rendered in.
func (d Descriptor) Letters() []string {
	letters := make([]string, 0, LetterSetSize)
	letters = append(letters, d.OuterLetters...)
	return append(letters, d.CenterLetter)
}

// Generate picks the letter set for dayKey and resolves its valid words.
// A letter set without a center marker means the corpus is corrupt; that is
// returned as an error rather than papered over.
func Generate(c *corpus.Corpus, dayKey int) (Descriptor, error) {
	if c == nil || len(c.LetterSets) == 0 {
		return Descriptor{}, ErrEmptyCorpus
	}

	idx := Index(dayKey, len(c.LetterSets))
	center, outer, err := ParseLetterSet(c.LetterSets[idx])
	if err != nil {
		return Descriptor{}, fmt.Errorf("letter set %d: %w", idx, err)
	}

	var indices []int
	if idx < len(c.WordIndices) {
		indices = c.WordIndices[idx]
	}
	words := make([]string, len(indices))
	for i, wi := range indices {
		if wi < 0 || wi >= len(c.Words) {
			return Descriptor{}, fmt.Errorf("letter set %d: word index %d out of range: %w", idx, wi, corpus.ErrMalformed)
		}
		words[i] = c.Words[wi]
	}

	return Descriptor{
		Timestamp:    dayKey,
		CenterLetter: center,
		OuterLetters: outer,
		ValidWords:   words,
	}, nil
}

// ParseLetterSet splits a marked letter set such as "Bdehorw" into its
// center letter ("b") and outer letters in their original order.
func ParseLetterSet(s string) (string, []string, error) {
	runes := []rune(s)
	if len(runes) != LetterSetSize {
		return "", nil, fmt.Errorf("%w: %q has %d letters", ErrMalformedLetterSet, s, len(runes))
	}

	center := ""
	outer := make([]string, 0, LetterSetSize-1)
	for _, r := range runes {
		if r >= 'A' && r <= 'Z' {
			if center != "" {
				return "", nil, fmt.Errorf("%w: %q marks more than one center letter", ErrMalformedLetterSet, s)
			}
			center = string(unicode.ToLower(r))
			continue
		}
		outer = append(outer, string(r))
	}
	if center == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrNoCenterLetter, s)
	}
	if len(lo.Uniq(append([]string{center}, outer...))) != LetterSetSize {
		return "", nil, fmt.Errorf("%w: %q repeats a letter", ErrMalformedLetterSet, s)
	}
	return center, outer, nil
}
