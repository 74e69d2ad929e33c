// Package game runs guess submission: validate against today's puzzle,
// record accepted words, and tell the player what happened.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"openbee/internal/events"
	"openbee/internal/offline"
	"openbee/internal/puzzle"
)

const msgUnavailable = "Today's puzzle is unavailable. Try again shortly."

// Puzzles supplies today's and yesterday's descriptors.
type Puzzles interface {
	Puzzles(ctx context.Context) (offline.GameData, error)
}

// Store persists accepted words per day.
type Store interface {
	Get(ctx context.Context, dayKey int) ([]string, error)
	Append(ctx context.Context, dayKey int, word string) error
}

// Manager owns the submission flow. It holds no per-day state of its own;
// every call reads the current puzzle and history.
type Manager struct {
	puzzles Puzzles
	store   Store
	log     *zap.SugaredLogger
}

func NewManager(p Puzzles, s Store, log *zap.SugaredLogger) *Manager {
	return &Manager{puzzles: p, store: s, log: log}
}

// Normalize trims and lower-cases a raw guess.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Submit checks word against today's puzzle and records it when accepted.
func (m *Manager) Submit(ctx context.Context, word string) events.Notification {
	word = Normalize(word)
	data, err := m.puzzles.Puzzles(ctx)
	if err != nil {
		m.log.Warnf("Puzzle unavailable for guess %q: %v", word, err)
		return events.Notification{Message: msgUnavailable, Status: events.StatusError}
	}
	today := data.Today

	accepted := m.history(ctx, today.Timestamp)
	if err := puzzle.Validate(word, today, accepted); err != nil {
		var reject *puzzle.RejectError
		if errors.As(err, &reject) {
			return events.Notification{Message: reject.Reason.String(), Status: events.StatusError}
		}
		return events.Notification{Message: err.Error(), Status: events.StatusError}
	}

	if err := m.store.Append(ctx, today.Timestamp, word); err != nil {
		m.log.Warnf("Recording guess %q for %d failed: %v", word, today.Timestamp, err)
	}
	return events.Notification{Message: Message(puzzle.ScoreWord(word, today)), Status: events.StatusSuccess}
}

// Message is the text shown for an accepted word.
func Message(s puzzle.Score) string {
	if s.IsPangram {
		return fmt.Sprintf("Pangram! +%d", s.Points)
	}
	return fmt.Sprintf("+%d", s.Points)
}

// history loads the words already found on dayKey. A failed read degrades to
// an empty history so the player can keep guessing.
func (m *Manager) history(ctx context.Context, dayKey int) []string {
	words, err := m.store.Get(ctx, dayKey)
	if err != nil {
		m.log.Warnf("Reading guesses for %d failed, continuing with none: %v", dayKey, err)
		return []string{}
	}
	return words
}

// Progress summarizes one day's play.
type Progress struct {
	Day            int      `json:"day"`
	Found          []string `json:"found"`
	Score          int      `json:"score"`
	MaxScore       int      `json:"maxScore"`
	PangramsFound  []string `json:"pangramsFound"`
	PangramsTotal  int      `json:"pangramsTotal"`
	WordsRemaining int      `json:"wordsRemaining"`
}

// Progress reports today's score against the puzzle's maximum.
func (m *Manager) Progress(ctx context.Context) (Progress, error) {
	data, err := m.puzzles.Puzzles(ctx)
	if err != nil {
		return Progress{}, err
	}
	return Summarize(data.Today, m.history(ctx, data.Today.Timestamp)), nil
}

// Summarize scores found against d. Words not valid for d are ignored.
func Summarize(d puzzle.Descriptor, found []string) Progress {
	valid := make([]string, 0, len(found))
	pangrams := []string{}
	for _, w := range found {
		if !puzzle.IsValid(w, d) {
			continue
		}
		valid = append(valid, w)
		if puzzle.IsPangram(w, d) {
			pangrams = append(pangrams, w)
		}
	}
	return Progress{
		Day:            d.Timestamp,
		Found:          valid,
		Score:          puzzle.Total(valid, d),
		MaxScore:       puzzle.MaxScore(d),
		PangramsFound:  pangrams,
		PangramsTotal:  len(puzzle.Pangrams(d)),
		WordsRemaining: len(d.ValidWords) - len(valid),
	}
}

// Run answers guess events on bus with notification events until ctx ends or
// the bus closes.
func (m *Manager) Run(ctx context.Context, bus *events.Bus) error {
	guesses, stop := bus.Subscribe(events.GuessName)
	defer stop()
	return m.loop(ctx, bus, guesses)
}

// Start subscribes to guesses before returning and answers them in the
// background, so no guess published after Start is missed. The returned
// function waits for the loop to end.
func (m *Manager) Start(ctx context.Context, bus *events.Bus) (wait func() error) {
	guesses, stop := bus.Subscribe(events.GuessName)
	errc := make(chan error, 1)
	go func() {
		defer stop()
		errc <- m.loop(ctx, bus, guesses)
	}()
	return func() error { return <-errc }
}

func (m *Manager) loop(ctx context.Context, bus *events.Bus, guesses <-chan events.Event) error {
	start := time.Now()
	handled := 0
	defer func() {
		m.log.Debugf("Guess loop stopped after %d guesses in %s", handled, time.Since(start).Round(time.Millisecond))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-guesses:
			if !ok {
				return nil
			}
			g, ok := e.Detail.(events.Guess)
			if !ok {
				m.log.Warnf("Ignoring %s event with %T detail", e.Name, e.Detail)
				continue
			}
			handled++
			n := m.Submit(ctx, g.Word)
			if err := bus.Publish(ctx, events.NewNotification(n)); err != nil {
				if errors.Is(err, events.ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}
