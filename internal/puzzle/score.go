package puzzle

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

const (
	MinWordLength = 4
	PangramBonus  = 7
)

// Reason is why a guess was rejected.
type Reason int

const (
	TooShort Reason = iota + 1
	MissingCenter
	InvalidLetters
	NotInList
	AlreadyFound
)

var reasonMessages = map[Reason]string{
	TooShort:       "Word must be at least 4 letters long.",
	MissingCenter:  "Word must include the center letter.",
	InvalidLetters: "Word must only include the provided letters.",
	NotInList:      "Not a valid word.",
	AlreadyFound:   "You've already guessed that word.",
}

func (r Reason) String() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Invalid guess."
}

// RejectError is returned by Validate for a guess that does not count.
type RejectError struct {
	Word   string
	Reason Reason
}

func (e *RejectError) Error() string {
	return e.Reason.String()
}

// Score is the value of an accepted word.
type Score struct {
	Points    int  `json:"points"`
	IsPangram bool `json:"isPangram"`
}

// Validate checks word against d. Rules are applied in a fixed order and the
// first failing rule decides the reason. accepted holds the words already
// found this session.
func Validate(word string, d Descriptor, accepted []string) error {
	reject := func(r Reason) error { return &RejectError{Word: word, Reason: r} }

	if len([]rune(word)) < MinWordLength {
		return reject(TooShort)
	}
	if d.CenterLetter == "" || !strings.Contains(word, d.CenterLetter) {
		return reject(MissingCenter)
	}
	allowed := d.Letters()
	for _, r := range word {
		if !slices.Contains(allowed, string(r)) {
			return reject(InvalidLetters)
		}
	}
	if !slices.Contains(d.ValidWords, word) {
		return reject(NotInList)
	}
	if slices.Contains(accepted, word) {
		return reject(AlreadyFound)
	}
	return nil
}

// IsValid reports whether word would be accepted with no prior guesses.
func IsValid(word string, d Descriptor) bool {
	return Validate(word, d, nil) == nil
}

// ScoreWord values word under d. Four-letter words are worth a single point;
// longer words are worth their length, plus PangramBonus for a pangram.
func ScoreWord(word string, d Descriptor) Score {
	n := len([]rune(word))
	points := n
	if n <= MinWordLength {
		points = 1
	}
	pangram := IsPangram(word, d)
	if pangram {
		points += PangramBonus
	}
	return Score{Points: points, IsPangram: pangram}
}

// IsPangram reports whether word uses every letter of d's letter set.
// Words shorter than the letter set cannot qualify and are not inspected.
func IsPangram(word string, d Descriptor) bool {
	if len([]rune(word)) < LetterSetSize {
		return false
	}
	distinct := lo.Uniq([]rune(word))
	if len(distinct) != LetterSetSize {
		return false
	}
	letters := d.Letters()
	return lo.EveryBy(distinct, func(r rune) bool {
		return slices.Contains(letters, string(r))
	})
}

// Pangrams returns the valid words of d that are pangrams, in list order.
func Pangrams(d Descriptor) []string {
	return lo.Filter(d.ValidWords, func(w string, _ int) bool {
		return IsPangram(w, d)
	})
}

// MaxScore is the total available when every valid word is found.
func MaxScore(d Descriptor) int {
	return lo.SumBy(d.ValidWords, func(w string) int {
		return ScoreWord(w, d).Points
	})
}

// Total sums the scores of the given words.
func Total(words []string, d Descriptor) int {
	return lo.SumBy(words, func(w string) int {
		return ScoreWord(w, d).Points
	})
}
