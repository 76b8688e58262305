package concurrent

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const (
	// queue depth above which the looper warns. messages are never dropped.
	MAX_BACKLOG = 5
)

var ErrLooperStopped = errors.New("looper stopped")

// Poster. handle used by collaborators to run work on a looper.
type Poster interface {
	Post(fn func()) error
}

type message struct {
	run  func()
	halt bool
}

/*
Looper. single goroutine event loop. every posted message runs on the loop goroutine in FIFO order, so state
only touched from messages needs no locking.

Shutdown enqueues a halt message: messages posted before it still run, messages posted after it are rejected.
a message that panics is logged and halts the loop.
*/
type Looper struct {
	name string

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []message
	started  bool
	shutdown bool // halt message enqueued
	halted   bool // loop goroutine returned

	done chan struct{}
	log  *zap.Logger
}

func NewLooper(name string, log *zap.Logger) *Looper {
	l := &Looper{
		name:  name,
		queue: make([]message, 0, MAX_BACKLOG),
		done:  make(chan struct{}),
		log:   log,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start. run the loop goroutine, blocks until the loop is ready to process messages.
func (l *Looper) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	ready := make(chan struct{})
	go l.loop(ready)
	<-ready
}

func (l *Looper) loop(ready chan struct{}) {
	defer func() {
		l.mu.Lock()
		l.halted = true
		l.mu.Unlock()
		close(l.done)
	}()

	l.log.Debug("looper started", zap.String("looper", l.name))
	close(ready)

	for {
		l.mu.Lock()
		for len(l.queue) == 0 {
			l.cond.Wait()
		}
		msg := l.queue[0]
		l.queue[0] = message{}
		l.queue = l.queue[1:]
		l.mu.Unlock()

		if msg.halt {
			l.log.Debug("looper halted", zap.String("looper", l.name))
			return
		}

		if !l.dispatch(msg.run) {
			return
		}
	}
}

func (l *Looper) dispatch(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("looper message panicked, halting looper",
				zap.String("looper", l.name), zap.Any("panic", r), zap.Stack("stack"))
			ok = false
		}
	}()

	fn()
	return true
}

// Post. enqueue fn, ErrLooperStopped once the looper is shut down.
func (l *Looper) Post(fn func()) error {
	return l.enqueue(message{run: fn})
}

func (l *Looper) enqueue(msg message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown || l.halted {
		return ErrLooperStopped
	}
	if msg.halt {
		l.shutdown = true
	}

	l.queue = append(l.queue, msg)
	if backlog := len(l.queue); backlog > MAX_BACKLOG {
		l.log.Warn("looper backlog exceeds the threshold",
			zap.String("looper", l.name), zap.Int("backlog", backlog))
	}
	l.cond.Signal()
	return nil
}

// Shutdown. enqueue the halt message and return immediately.
func (l *Looper) Shutdown() {
	if err := l.enqueue(message{halt: true}); err != nil {
		l.log.Debug("looper already shut down", zap.String("looper", l.name))
	}
}

// Stop. shut down and wait until every message posted before the halt message ran.
func (l *Looper) Stop() {
	l.Shutdown()

	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	if started {
		<-l.done
	}
}

// Done. closed once the loop goroutine returned.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

func (l *Looper) Backlog() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Looper) Handle() Poster {
	return l
}

// Ask. run fn on the looper and wait for its result.
func Ask[T any](ctx context.Context, l *Looper, fn func() T) (T, error) {
	var zero T
	result := make(chan T, 1)

	err := l.Post(func() {
		result <- fn()
	})
	if err != nil {
		return zero, err
	}

	select {
	case r := <-result:
		return r, nil
	case <-l.done:
		select {
		case r := <-result:
			return r, nil
		default:
			return zero, ErrLooperStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
