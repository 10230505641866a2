// Package worker exposes a validator over an asynchronous request/response
// channel.
//
// One goroutine owns the validator for its whole life. Callers submit
// requests carrying their own correlation ids and receive exactly one
// response per request, in submission order. Because every mutation goes
// through that goroutine there is a single logical writer and no locking
// inside the validator.
//
// Requests cannot be cancelled once the worker has picked them up; a caller
// context only bounds how long the caller waits.
package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when submitting to a stopped worker.
var ErrClosed = errors.New("worker: closed")

type call struct {
	req   Request
	reply chan Response
}

// Worker serializes requests onto a Handler.
type Worker struct {
	handler *Handler
	calls   chan call
	done    chan struct{}
	stop    sync.Once
	started sync.Once
}

// New creates a stopped Worker around h. Call Start before Do.
func New(h *Handler) *Worker {
	return &Worker{
		handler: h,
		calls:   make(chan call),
		done:    make(chan struct{}),
	}
}

// Start launches the owning goroutine. It stops when ctx is done or Close
// is called. Calling Start more than once has no effect.
func (w *Worker) Start(ctx context.Context) {
	w.started.Do(func() {
		go w.loop(ctx)
	})
}

func (w *Worker) loop(ctx context.Context) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case c := <-w.calls:
			c.reply <- w.handler.Handle(c.req)
		}
	}
}

// Close stops the worker. Pending and future Do calls return ErrClosed.
func (w *Worker) Close() {
	w.stop.Do(func() { close(w.done) })
}

// Do submits req and waits for its response.
func (w *Worker) Do(ctx context.Context, req Request) (Response, error) {
	c := call{req: req, reply: make(chan Response, 1)}
	select {
	case w.calls <- c:
	case <-w.done:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case resp := <-c.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Serve forwards every request from in to the worker and writes responses
// to out in the same order. It returns nil when in is closed.
func (w *Worker) Serve(ctx context.Context, in <-chan Request, out chan<- Response) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-in:
			if !ok {
				return nil
			}
			resp, err := w.Do(ctx, req)
			if err != nil {
				return err
			}
			select {
			case out <- resp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
