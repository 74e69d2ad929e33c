package corpus

import (
	"math/bits"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// MinWordLength is the shortest word kept in a built corpus.
const MinWordLength = 4

// CleanWords lower-cases, de-duplicates and sorts words, dropping anything
// shorter than MinWordLength or containing characters outside a-z.
func CleanWords(words []string) []string {
	cleaned := lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = strings.ToLower(strings.TrimSpace(w))
		if len(w) < MinWordLength {
			return "", false
		}
		for _, r := range w {
			if r < 'a' || r > 'z' {
				return "", false
			}
		}
		return w, true
	})
	cleaned = lo.Uniq(cleaned)
	slices.Sort(cleaned)
	return cleaned
}

// Build derives a corpus from a raw word list. Every distinct seven letter
// alphabet used by some word becomes seven letter sets, one per choice of
// center letter, and each letter set lists the words spelled only from its
// alphabet that include its center.
func Build(words []string) *Corpus {
	cleaned := CleanWords(words)

	byMask := map[uint32][]int{}
	alphabets := map[uint32]struct{}{}
	for i, w := range cleaned {
		m := letterMask(w)
		byMask[m] = append(byMask[m], i)
		if bits.OnesCount32(m) == 7 {
			alphabets[m] = struct{}{}
		}
	}

	masks := lo.Keys(alphabets)
	slices.SortFunc(masks, func(a, b uint32) int {
		return strings.Compare(maskLetters(a), maskLetters(b))
	})

	c := &Corpus{Words: cleaned}
	for _, alpha := range masks {
		subsets := submasks(alpha)
		for _, center := range maskLetters(alpha) {
			centerBit := uint32(1) << (center - 'a')
			var indices []int
			for _, sub := range subsets {
				if sub&centerBit == 0 {
					continue
				}
				indices = append(indices, byMask[sub]...)
			}
			if len(indices) == 0 {
				continue
			}
			slices.Sort(indices)
			c.LetterSets = append(c.LetterSets, MarkLetterSet(maskLetters(alpha), center))
			c.WordIndices = append(c.WordIndices, indices)
		}
	}
	return c
}

func letterMask(w string) uint32 {
	var m uint32
	for _, r := range w {
		m |= 1 << (r - 'a')
	}
	return m
}

func maskLetters(m uint32) string {
	var b strings.Builder
	for i := range 26 {
		if m&(1<<i) != 0 {
			b.WriteByte(byte('a' + i))
		}
	}
	return b.String()
}

// submasks lists every non-empty subset of m.
func submasks(m uint32) []uint32 {
	var out []uint32
	for s := m; s != 0; s = (s - 1) & m {
		out = append(out, s)
	}
	return out
}
