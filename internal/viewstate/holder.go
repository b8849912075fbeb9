// Package viewstate holds the Loading/Success/Error state a screen renders and runs the jobs
// that produce it.
package viewstate

import (
	"context"
	"sync"

	"materialhub/internal/observable"
)

type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is what a screen shows. Data is meaningful only for StatusSuccess and Message only for
// StatusError.
type State[T any] struct {
	Status  Status
	Data    T
	Message string
}

func Loading[T any]() State[T] {
	return State[T]{Status: StatusLoading}
}

func Success[T any](data T) State[T] {
	return State[T]{Status: StatusSuccess, Data: data}
}

func Failure[T any](message string) State[T] {
	if message == "" {
		message = "Unknown error"
	}
	return State[T]{Status: StatusError, Message: message}
}

// Holder publishes a State[T] and owns a scope for the goroutines that update it.
type Holder[T any] struct {
	state *observable.Value[State[T]]

	ctx    context.Context
	cancel context.CancelFunc
	all    sync.WaitGroup
	jobs   sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	gen       uint64
	cancelJob context.CancelFunc
	// failed is set by Fail and cleared by the next Load or Launch.
	failed bool
}

// NewHolder starts in the Loading state with a scope derived from parent.
func NewHolder[T any](parent context.Context) *Holder[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Holder[T]{
		state:  observable.New(Loading[T]()),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *Holder[T]) State() State[T] {
	return h.state.Get()
}

// Subscribe streams the current state and every later one until ctx is done.
func (h *Holder[T]) Subscribe(ctx context.Context) <-chan State[T] {
	return h.state.Subscribe(ctx)
}

// Load publishes Loading and runs fn as the latest job. Starting another Load cancels fn's
// context and discards whatever fn returns.
func (h *Holder[T]) Load(fn func(ctx context.Context) (T, error)) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if h.cancelJob != nil {
		h.cancelJob()
	}
	h.gen++
	h.failed = false
	gen := h.gen
	ctx, cancel := context.WithCancel(h.ctx)
	h.cancelJob = cancel
	h.state.Set(Loading[T]())
	h.all.Add(1)
	h.jobs.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.all.Done()
		defer h.jobs.Done()
		defer cancel()

		data, err := fn(ctx)

		h.mu.Lock()
		defer h.mu.Unlock()
		if gen != h.gen || h.ctx.Err() != nil {
			return
		}
		if err != nil {
			h.state.Set(Failure[T](err.Error()))
			return
		}
		h.state.Set(Success(data))
	}()
}

// Launch runs a one-shot job in the scope. It does not touch the state by itself, but it
// re-arms Publish after an earlier Fail.
func (h *Holder[T]) Launch(fn func(ctx context.Context)) {
	if !h.start(&h.jobs, true) {
		return
	}
	go func() {
		defer h.all.Done()
		defer h.jobs.Done()
		fn(h.ctx)
	}()
}

// Watch runs a long-lived job, such as draining a stream, until the scope closes.
func (h *Holder[T]) Watch(fn func(ctx context.Context)) {
	if !h.start(nil, false) {
		return
	}
	go func() {
		defer h.all.Done()
		fn(h.ctx)
	}()
}

func (h *Holder[T]) start(group *sync.WaitGroup, rearm bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if rearm {
		h.failed = false
	}
	h.all.Add(1)
	if group != nil {
		group.Add(1)
	}
	return true
}

// Update replaces the state with fn's result, atomically with respect to other publishers.
func (h *Holder[T]) Update(fn func(State[T]) State[T]) State[T] {
	return h.state.Update(fn)
}

// Publish sets s unless a Fail has happened since the last Load or Launch. Watchers use it so
// a result of an earlier action cannot hide a later failure.
func (h *Holder[T]) Publish(s State[T]) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failed {
		return false
	}
	h.state.Set(s)
	return true
}

// Fail publishes a terminal error. A Load still in flight is cancelled and its result dropped.
func (h *Holder[T]) Fail(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelJob != nil {
		h.cancelJob()
		h.cancelJob = nil
	}
	h.gen++
	h.failed = true
	h.state.Set(Failure[T](message))
}

// Wait blocks until every Load and Launch job started so far has returned.
func (h *Holder[T]) Wait() {
	h.jobs.Wait()
}

// Close cancels the scope and waits for all of its goroutines.
func (h *Holder[T]) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()
	h.all.Wait()
}
