// Package event provides a small synchronous event bus with named channels
// and append-only, ordered subscriptions.
package event

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives the payload of a single emission.
type Handler[T any] func(T)

// Channel identifies a notification stream on a Bus.
type Channel struct {
	id   uuid.UUID
	name string
}

// Name returns the human readable name the channel was created with.
func (c Channel) Name() string {
	return c.name
}

// IsZero reports whether c was never created by a Bus.
func (c Channel) IsZero() bool {
	return c.id == uuid.Nil
}

func (c Channel) String() string {
	return fmt.Sprintf("%s(%s)", c.name, c.id)
}

// Handle is the opaque token returned for a single subscription.
type Handle struct {
	channel uuid.UUID
	seq     uint64
}

// Observer is notified about bus activity. Implementations must be safe to
// call from whichever goroutine emits.
type Observer interface {
	Emitted(ch Channel)
	Failed(ch Channel, err error)
}

// HandlerError describes a handler that panicked during Emit.
type HandlerError struct {
	Channel string
	Index   int
	Value   any
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d on channel %q panicked: %v", e.Index, e.Channel, e.Value)
}

type observation struct {
	id       uint64
	observer Observer
}

type subscription[T any] struct {
	handle  Handle
	handler Handler[T]
}

// Bus fans payloads out to the handlers subscribed on a channel.
type Bus[T any] struct {
	mu        sync.Mutex
	seq       uint64
	channels  map[uuid.UUID][]subscription[T]
	observers []observation
	log       *slog.Logger
}

// Option configures a Bus.
type Option[T any] func(*Bus[T])

// WithLogger sets the logger used to report contained handler failures.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(b *Bus[T]) { b.log = l }
}

// WithObserver installs an observer at construction time.
func WithObserver[T any](o Observer) Option[T] {
	return func(b *Bus[T]) { b.Observe(o) }
}

// New creates an empty bus.
func New[T any](opts ...Option[T]) *Bus[T] {
	b := &Bus[T]{
		channels: make(map[uuid.UUID][]subscription[T]),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Channel creates a new channel. Channels are never closed.
func (b *Bus[T]) Channel(name string) Channel {
	ch := Channel{id: uuid.New(), name: name}

	b.mu.Lock()
	b.channels[ch.id] = nil
	b.mu.Unlock()

	return ch
}

// Subscribe appends h to the channel's subscriber list.
// Subscribing to a channel created by another bus panics.
func (b *Bus[T]) Subscribe(ch Channel, h Handler[T]) Handle {
	if h == nil {
		panic("event: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.channels[ch.id]
	if !ok {
		panic(fmt.Sprintf("event: unknown channel %s", ch))
	}

	b.seq++
	handle := Handle{channel: ch.id, seq: b.seq}
	b.channels[ch.id] = append(subs, subscription[T]{handle: handle, handler: h})

	return handle
}

// Subscribers returns the number of handlers subscribed on ch.
func (b *Bus[T]) Subscribers(ch Channel) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels[ch.id])
}

// Observe adds o to the observers notified on every emission. The returned
// func removes it again; calling it more than once is a no-op.
func (b *Bus[T]) Observe(o Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := b.seq
	b.observers = append(b.observers, observation{id: id, observer: o})

	return func() { b.unobserve(id) }
}

// Observers returns the number of installed observers.
func (b *Bus[T]) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

func (b *Bus[T]) unobserve(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// rebuilt rather than edited in place, Emit may hold the old slice
	kept := make([]observation, 0, len(b.observers))
	for _, obs := range b.observers {
		if obs.id != id {
			kept = append(kept, obs)
		}
	}
	b.observers = kept
}

// Emit runs every handler subscribed on ch when Emit was called, in
// subscription order, on the calling goroutine. Handlers added while
// emitting only see later emissions. A panicking handler does not stop the
// remaining ones; the recovered failures are joined into the returned error.
func (b *Bus[T]) Emit(ch Channel, payload T) error {
	b.mu.Lock()
	subs := b.channels[ch.id]
	// capacity clamp so concurrent Subscribe never writes into our view
	subs = subs[:len(subs):len(subs)]
	observers := b.observers[:len(b.observers):len(b.observers)]
	b.mu.Unlock()

	for _, o := range observers {
		o.observer.Emitted(ch)
	}

	var errs []error
	for i, s := range subs {
		if err := invoke(ch, i, s.handler, payload); err != nil {
			b.logger().Error("event handler failed",
				"channel", ch.name,
				"index", i,
				"error", err)
			for _, o := range observers {
				o.observer.Failed(ch, err)
			}
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *Bus[T]) logger() *slog.Logger {
	if b.log != nil {
		return b.log
	}
	return slog.Default()
}

func invoke[T any](ch Channel, i int, h Handler[T], payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Channel: ch.name, Index: i, Value: r}
		}
	}()
	h(payload)
	return nil
}
