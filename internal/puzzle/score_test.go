package puzzle

import (
	"errors"
	"slices"
	"testing"
)

func beeDescriptor() Descriptor {
	return Descriptor{
		Timestamp:    20240215,
		CenterLetter: "b",
		OuterLetters: []string{"d", "e", "h", "o", "r", "w"},
		ValidWords:   []string{"bore", "bored", "bowhered", "brewed", "herb"},
	}
}

func TestValidate(t *testing.T) {
	d := beeDescriptor()
	cases := []struct {
		word     string
		accepted []string
		want     Reason
	}{
		{"bore", nil, 0},
		{"bowhered", []string{"bore"}, 0},
		{"bor", nil, TooShort},
		{"bo", nil, TooShort},
		{"dore", nil, MissingCenter},
		{"bake", nil, InvalidLetters},
		{"bode", nil, NotInList},
		{"bore", []string{"herb", "bore"}, AlreadyFound},
		// Rules apply in order, so a short word missing the center is too short.
		{"do", nil, TooShort},
	}
	for _, tc := range cases {
		err := Validate(tc.word, d, tc.accepted)
		if tc.want == 0 {
			if err != nil {
				t.Errorf("Validate(%q) = %v, want accepted", tc.word, err)
			}
			continue
		}
		var rejected *RejectError
		if !errors.As(err, &rejected) {
			t.Errorf("Validate(%q) = %v, want RejectError", tc.word, err)
			continue
		}
		if rejected.Reason != tc.want {
			t.Errorf("Validate(%q) reason = %v, want %v", tc.word, rejected.Reason, tc.want)
		}
		if rejected.Error() != tc.want.String() {
			t.Errorf("Validate(%q) message = %q", tc.word, rejected.Error())
		}
	}
}

func TestRejectMessages(t *testing.T) {
	if TooShort.String() != "Word must be at least 4 letters long." {
		t.Errorf("TooShort = %q", TooShort.String())
	}
	if AlreadyFound.String() != "You've already guessed that word." {
		t.Errorf("AlreadyFound = %q", AlreadyFound.String())
	}
	if Reason(99).String() != "Invalid guess." {
		t.Errorf("unknown reason = %q", Reason(99).String())
	}
}

func TestScoreWord(t *testing.T) {
	d := beeDescriptor()
	cases := []struct {
		word    string
		points  int
		pangram bool
	}{
		{"bore", 1, false},
		{"herb", 1, false},
		{"bored", 5, false},
		// b, r, e, w, d: five distinct letters, so no bonus.
		{"brewed", 6, false},
		{"bowhered", 15, true},
	}
	for _, tc := range cases {
		got := ScoreWord(tc.word, d)
		if got.Points != tc.points || got.IsPangram != tc.pangram {
			t.Errorf("ScoreWord(%q) = %+v, want %d pangram=%v", tc.word, got, tc.points, tc.pangram)
		}
	}
}

func TestIsPangram(t *testing.T) {
	d := beeDescriptor()
	cases := map[string]bool{
		"bowhered": true,
		"whorebed": true,
		"bored":    false,
		"bowhead":  false,
		"bbbbbbb":  false,
	}
	for word, want := range cases {
		if got := IsPangram(word, d); got != want {
			t.Errorf("IsPangram(%q) = %v, want %v", word, got, want)
		}
	}
}

func TestTotals(t *testing.T) {
	d := beeDescriptor()
	if got := Pangrams(d); !slices.Equal(got, []string{"bowhered"}) {
		t.Errorf("Pangrams = %v", got)
	}
	// 1 + 5 + 15 + 6 + 1
	if got := MaxScore(d); got != 28 {
		t.Errorf("MaxScore = %d, want 28", got)
	}
	if got := Total([]string{"bore", "bowhered"}, d); got != 16 {
		t.Errorf("Total = %d, want 16", got)
	}
	if got := Total(nil, d); got != 0 {
		t.Errorf("Total(nil) = %d", got)
	}
	if !IsValid("bored", d) || IsValid("bode", d) {
		t.Error("IsValid disagrees with Validate")
	}
}
