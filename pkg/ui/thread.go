// Package ui provides the single logical thread all menu state lives on.
package ui

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultQueueSize is the number of posted functions buffered before Post blocks.
const DefaultQueueSize = 64

// ErrStopped is returned by Do when the thread is no longer running.
var ErrStopped = errors.New("ui thread stopped")

// Thread executes queued functions one at a time on a single goroutine.
type Thread struct {
	queue chan func()
	done  chan struct{}
}

// NewThread creates a thread with a queue of the given size.
// A size below one uses DefaultQueueSize.
func NewThread(size int) *Thread {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Thread{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Run executes queued work until ctx is canceled. It must be called once.
func (t *Thread) Run(ctx context.Context) error {
	defer close(t.done)

	slog.Debug("ui thread started")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("ui thread stopped")
			return nil
		case fn := <-t.queue:
			t.exec(fn)
		}
	}
}

// Post queues fn without waiting for it. Work posted after the thread
// stopped is dropped.
func (t *Thread) Post(fn func()) {
	select {
	case t.queue <- fn:
	case <-t.done:
		slog.Warn("ui thread stopped, dropping work")
	}
}

// Do queues fn and waits until it has run or ctx is done.
func (t *Thread) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}

	select {
	case t.queue <- wrapped:
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Thread) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ui work panicked", "error", r)
		}
	}()
	fn()
}
