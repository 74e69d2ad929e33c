// Package events carries the game's UI events between components. Every
// event has a fixed name and a typed payload.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Name identifies an event kind.
type Name string

const (
	GuessName       Name = "osb:guess"
	NotifyName      Name = "osb:notify"
	LetterClickName Name = "osb:letter-click"
)

// Status values carried by a Notification.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var ErrUnknownEvent = errors.New("unknown event")

// Guess asks for a word to be checked.
type Guess struct {
	Word string `json:"word"`
}

// Notification is the outcome shown to the player.
type Notification struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// LetterClick reports a letter control press.
type LetterClick struct {
	Letter string `json:"letter"`
}

// Event is one message on the bus. Detail is a Guess, Notification or
// LetterClick matching Name.
type Event struct {
	Name   Name `json:"type"`
	Detail any  `json:"detail"`
}

func NewGuess(word string) Event {
	return Event{Name: GuessName, Detail: Guess{Word: word}}
}

func NewNotification(n Notification) Event {
	return Event{Name: NotifyName, Detail: n}
}

func NewLetterClick(letter string) Event {
	return Event{Name: LetterClickName, Detail: LetterClick{Letter: letter}}
}

// Decode parses a {"type": ..., "detail": ...} frame into an Event with a
// typed Detail.
func Decode(data []byte) (Event, error) {
	var frame struct {
		Name   Name            `json:"type"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, err
	}

	switch frame.Name {
	case GuessName:
		return decodeDetail[Guess](frame.Name, frame.Detail)
	case NotifyName:
		return decodeDetail[Notification](frame.Name, frame.Detail)
	case LetterClickName:
		return decodeDetail[LetterClick](frame.Name, frame.Detail)
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Name)
}

func decodeDetail[T any](name Name, raw json.RawMessage) (Event, error) {
	var detail T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &detail); err != nil {
			return Event{}, fmt.Errorf("decode %s detail: %w", name, err)
		}
	}
	return Event{Name: name, Detail: detail}, nil
}
