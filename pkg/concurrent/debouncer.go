package concurrent

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

/*
Debouncer. collapses bursts of calls into one callback per interval. the first call of a burst schedules the
callback after the interval, later calls only replace the argument, the callback runs on the poster with the
latest argument.
*/
type Debouncer[T any] struct {
	mu         sync.Mutex
	interval   time.Duration
	poster     Poster
	callback   func(T)
	latest     T
	pending    bool
	timer      *time.Timer
	terminated bool
	log        *zap.Logger
}

func NewDebouncer[T any](poster Poster, interval time.Duration, callback func(T), log *zap.Logger) *Debouncer[T] {
	return &Debouncer[T]{
		interval: interval,
		poster:   poster,
		callback: callback,
		log:      log,
	}
}

func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.terminated {
		return
	}

	d.latest = arg
	if d.pending {
		return
	}

	d.pending = true
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if d.terminated {
		d.mu.Unlock()
		return
	}
	arg := d.latest
	var zero T
	d.latest = zero
	d.pending = false
	d.mu.Unlock()

	if err := d.poster.Post(func() { d.callback(arg) }); err != nil {
		d.log.Debug("debounced call dropped", zap.Error(err))
	}
}

// SetInterval. applies from the next burst on.
func (d *Debouncer[T]) SetInterval(interval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interval = interval
}

func (d *Debouncer[T]) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// Terminate. cancel the pending call, later calls are ignored.
func (d *Debouncer[T]) Terminate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.terminated = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
