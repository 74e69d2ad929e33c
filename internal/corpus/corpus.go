// Package corpus holds the word corpus every puzzle is derived from, its
// JSON encodings, and the loader that fetches the compressed artifact once.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// ErrMalformed wraps every failure to interpret corpus content.
var ErrMalformed = errors.New("malformed corpus")

// Corpus is an immutable word list plus the letter sets drawn from it.
// LetterSets[i] is a seven letter string whose single upper-case letter is
// the center letter; WordIndices[i] lists the indices into Words of the
// words that are valid for LetterSets[i].
type Corpus struct {
	Words       []string
	LetterSets  []string
	WordIndices [][]int
}

// Group is the client store's view of the corpus: every letter set sharing
// a center letter, keyed by that letter's offset from 'a'.
type Group struct {
	CenterOffset int
	Options      []Option
}

// Option is one letter set within a Group.
type Option struct {
	Letters string
	Indices []int
}

// Parse decodes a corpus document. Both the flat form
// [words, letterSets, wordIndices] and the grouped form
// [words, [[centerOffset, [[letters, indices], ...]], ...]] are accepted.
func Parse(data []byte) (*Corpus, error) {
	var c Corpus
	if err := json.Unmarshal(data, &c); err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &c, nil
}

func (c *Corpus) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var parsed Corpus
	switch len(parts) {
	case 3:
		if err := json.Unmarshal(parts[0], &parsed.Words); err != nil {
			return fmt.Errorf("%w: words: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal(parts[1], &parsed.LetterSets); err != nil {
			return fmt.Errorf("%w: letter sets: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal(parts[2], &parsed.WordIndices); err != nil {
			return fmt.Errorf("%w: word indices: %v", ErrMalformed, err)
		}
	case 2:
		if err := json.Unmarshal(parts[0], &parsed.Words); err != nil {
			return fmt.Errorf("%w: words: %v", ErrMalformed, err)
		}
		groups, err := decodeGroups(parts[1])
		if err != nil {
			return err
		}
		for _, g := range groups {
			for _, opt := range g.Options {
				letters, err := markCenter(opt.Letters, g.CenterOffset)
				if err != nil {
					return err
				}
				parsed.LetterSets = append(parsed.LetterSets, letters)
				parsed.WordIndices = append(parsed.WordIndices, opt.Indices)
			}
		}
	default:
		return fmt.Errorf("%w: expected 2 or 3 top-level sections, got %d", ErrMalformed, len(parts))
	}

	if err := parsed.check(); err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON writes the flat form.
func (c Corpus) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		nonNil(c.Words),
		nonNil(c.LetterSets),
		nonNilIndices(c.WordIndices),
	})
}

// Grouped returns the letter sets grouped by center letter, groups ordered
// by the first appearance of their center letter.
func (c *Corpus) Grouped() []Group {
	var groups []Group
	pos := map[int]int{}
	for i, letters := range c.LetterSets {
		offset := centerOffset(letters)
		gi, ok := pos[offset]
		if !ok {
			gi = len(groups)
			pos[offset] = gi
			groups = append(groups, Group{CenterOffset: offset})
		}
		var indices []int
		if i < len(c.WordIndices) {
			indices = c.WordIndices[i]
		}
		groups[gi].Options = append(groups[gi].Options, Option{Letters: letters, Indices: nonNil(indices)})
	}
	return groups
}

// MarshalGrouped writes the grouped form.
func (c *Corpus) MarshalGrouped() ([]byte, error) {
	groups := c.Grouped()
	doc := make([]any, len(groups))
	for i, g := range groups {
		opts := make([]any, len(g.Options))
		for j, o := range g.Options {
			opts[j] = []any{o.Letters, o.Indices}
		}
		doc[i] = []any{g.CenterOffset, opts}
	}
	return json.Marshal([]any{nonNil(c.Words), doc})
}

func (c *Corpus) check() error {
	if len(c.LetterSets) != len(c.WordIndices) {
		return fmt.Errorf("%w: %d letter sets but %d index lists", ErrMalformed, len(c.LetterSets), len(c.WordIndices))
	}
	for i, indices := range c.WordIndices {
		for _, wi := range indices {
			if wi < 0 || wi >= len(c.Words) {
				return fmt.Errorf("%w: letter set %d references word %d of %d", ErrMalformed, i, wi, len(c.Words))
			}
		}
	}
	return nil
}

func decodeGroups(raw json.RawMessage) ([]Group, error) {
	var rawGroups [][]json.RawMessage
	if err := json.Unmarshal(raw, &rawGroups); err != nil {
		return nil, fmt.Errorf("%w: groups: %v", ErrMalformed, err)
	}
	groups := make([]Group, 0, len(rawGroups))
	for i, rg := range rawGroups {
		if len(rg) != 2 {
			return nil, fmt.Errorf("%w: group %d has %d fields", ErrMalformed, i, len(rg))
		}
		var g Group
		if err := json.Unmarshal(rg[0], &g.CenterOffset); err != nil {
			return nil, fmt.Errorf("%w: group %d center: %v", ErrMalformed, i, err)
		}
		var rawOpts [][]json.RawMessage
		if err := json.Unmarshal(rg[1], &rawOpts); err != nil {
			return nil, fmt.Errorf("%w: group %d options: %v", ErrMalformed, i, err)
		}
		for j, ro := range rawOpts {
			if len(ro) != 2 {
				return nil, fmt.Errorf("%w: group %d option %d has %d fields", ErrMalformed, i, j, len(ro))
			}
			var opt Option
			if err := json.Unmarshal(ro[0], &opt.Letters); err != nil {
				return nil, fmt.Errorf("%w: group %d option %d letters: %v", ErrMalformed, i, j, err)
			}
			if err := json.Unmarshal(ro[1], &opt.Indices); err != nil {
				return nil, fmt.Errorf("%w: group %d option %d indices: %v", ErrMalformed, i, j, err)
			}
			g.Options = append(g.Options, opt)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// markCenter turns an option's letters into a marked seven letter set. Six
// letters are the outer letters alone; the center is added and the result
// sorted. Seven letters must already mark the group's center.
func markCenter(letters string, offset int) (string, error) {
	if offset < 0 || offset >= 26 {
		return "", fmt.Errorf("%w: center offset %d", ErrMalformed, offset)
	}
	center := rune('a' + offset)
	switch len(letters) {
	case 7:
		if centerOffset(letters) != offset {
			return "", fmt.Errorf("%w: letter set %q does not mark center %q", ErrMalformed, letters, center)
		}
		return letters, nil
	case 6:
		return MarkLetterSet(letters+string(center), center), nil
	default:
		return "", fmt.Errorf("%w: letter set %q", ErrMalformed, letters)
	}
}

// MarkLetterSet sorts letters and upper-cases center, producing the marked
// form stored in Corpus.LetterSets.
func MarkLetterSet(letters string, center rune) string {
	runes := []rune(strings.ToLower(letters))
	slices.Sort(runes)
	for i, r := range runes {
		if r == center {
			runes[i] = unicode.ToUpper(r)
		}
	}
	return string(runes)
}

func centerOffset(letters string) int {
	for _, r := range letters {
		if r >= 'A' && r <= 'Z' {
			return int(r - 'A')
		}
	}
	return -1
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilIndices(s [][]int) [][]int {
	out := make([][]int, len(s))
	for i, v := range s {
		out[i] = nonNil(v)
	}
	return out
}
