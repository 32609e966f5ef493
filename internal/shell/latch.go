package shell

import (
	"context"
	"sync"
	"time"
)

// Latch is a one-shot completion signal. Signal may be called any number of
// times from any goroutine; only the first has an effect.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

func (l *Latch) Signal() {
	l.once.Do(func() { close(l.ch) })
}

// Signaled returns a channel closed by the first Signal.
func (l *Latch) Signaled() <-chan struct{} {
	return l.ch
}

// Wait blocks until the latch is signaled, timeout elapses or ctx ends.
// It returns true only when signaled; a timeout is (false, nil).
func (l *Latch) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.ch:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
