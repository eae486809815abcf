package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Job runs on the loop goroutine. ctx carries a per-job logger.
type Job func(ctx context.Context)

type queued struct {
	id   string
	name string
	fn   Job
	done chan struct{}
}

// Loop is the single consumer every gateway event, command and sweep goes
// through. Registry mutations therefore never interleave, including the
// platform calls between them.
type Loop struct {
	jobs    chan queued
	stopped chan struct{}
}

func NewLoop(size int) *Loop {
	return &Loop{
		jobs:    make(chan queued, size),
		stopped: make(chan struct{}),
	}
}

// Submit enqueues fn and returns without waiting for it.
func (l *Loop) Submit(name string, fn Job) error {
	_, err := l.enqueue(name, fn)
	return err
}

// Do enqueues fn and waits until it has run or ctx is done.
func (l *Loop) Do(ctx context.Context, name string, fn Job) error {
	done, err := l.enqueue(name, fn)
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopStopped
	}
}

func (l *Loop) enqueue(name string, fn Job) (chan struct{}, error) {
	q := queued{id: uuid.NewString(), name: name, fn: fn, done: make(chan struct{})}
	select {
	case l.jobs <- q:
		return q.done, nil
	case <-l.stopped:
		return nil, ErrLoopStopped
	}
}

// Run drains the queue until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	log.Info().Str("module", "app.loop").Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.loop").Msg("event loop stopped")
			return
		case q := <-l.jobs:
			l.run(ctx, q)
		}
	}
}

func (l *Loop) run(ctx context.Context, q queued) {
	defer close(q.done)
	logger := log.With().Str("job", q.id).Str("name", q.name).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("module", "app.loop").Interface("panic", r).Msg("job panicked")
		}
	}()
	q.fn(logger.WithContext(ctx))
}
