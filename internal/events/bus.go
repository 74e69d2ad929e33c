package events

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"
)

var ErrClosed = errors.New("event bus is closed")

type subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once

	// mu guards ch: senders hold it shared, close holds it exclusively.
	mu     sync.RWMutex
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{ch: make(chan Event), done: make(chan struct{})}
}

// deliver blocks until s receives e, s is stopped, or ctx ends.
func (s *subscriber) deliver(ctx context.Context, e Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- e:
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus delivers each published event to every subscriber of its name.
type Bus struct {
	mu     sync.Mutex
	subs   map[Name]map[*subscriber]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Name]map[*subscriber]struct{})}
}

// Subscribe returns a channel of events named name and a function that ends
// the subscription and closes the channel. On a closed bus the channel is
// already closed.
func (b *Bus) Subscribe(name Name) (<-chan Event, func()) {
	s := newSubscriber()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.close()
		return s.ch, func() {}
	}
	if b.subs[name] == nil {
		b.subs[name] = make(map[*subscriber]struct{})
	}
	b.subs[name][s] = struct{}{}

	return s.ch, func() {
		b.mu.Lock()
		delete(b.subs[name], s)
		b.mu.Unlock()
		s.close()
	}
}

// Publish hands e to every current subscriber of e.Name, blocking until each
// has received it, unsubscribed, or ctx is done.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	targets := lo.Keys(b.subs[e.Name])
	b.mu.Unlock()

	for _, s := range targets {
		if err := s.deliver(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Subscribers counts the live subscriptions to name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Close ends every subscription. Later publishes fail with ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.close()
		}
	}
}
