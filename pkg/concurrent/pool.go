package concurrent

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrScheduleTimeout = errors.New("schedule error: timed out")
	ErrPoolClosed      = errors.New("schedule error: pool closed")
)

/*
Pool. goroutine pool with at most size workers. a task is handed to an idle worker, or a new worker is started
while the pool is below size, otherwise it waits in a queue of the given capacity.
ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
*/
type Pool struct {
	sem       chan struct{}
	work      chan func()
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func NewPool(size, queue int, log *zap.Logger) *Pool {
	return &Pool{
		sem:  make(chan struct{}, size),
		work: make(chan func(), queue),
		done: make(chan struct{}),
		log:  log,
	}
}

// Spawn. start n idle workers upfront.
func (p *Pool) Spawn(n int) {
	for i := 0; i < n; i++ {
		select {
		case p.sem <- struct{}{}:
			go p.worker(nil)
		default:
			return
		}
	}
}

// Schedule. blocks until the task is taken by a worker or queued.
func (p *Pool) Schedule(task func()) error {
	return p.schedule(task, nil)
}

// ScheduleTimeout. like Schedule, ErrScheduleTimeout when the pool stays full for timeout.
func (p *Pool) ScheduleTimeout(timeout time.Duration, task func()) error {
	return p.schedule(task, time.After(timeout))
}

func (p *Pool) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}

	select {
	case <-p.done:
		return ErrPoolClosed
	case <-timeout:
		return ErrScheduleTimeout
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		go p.worker(task)
		return nil
	}
}

func (p *Pool) worker(task func()) {
	defer func() { <-p.sem }()

	if task != nil {
		p.run(task)
	}

	for {
		select {
		case <-p.done:
			return
		case task := <-p.work:
			p.run(task)
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pool task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	task()
}

// Close. idle workers exit, queued tasks that were not picked up are dropped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}
