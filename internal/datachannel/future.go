package datachannel

import (
	"context"
	"sync"
)

// Future is a one-shot completion: it resolves or rejects exactly once and
// never changes afterwards.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func rejectedFuture(err error) *Future {
	f := newFuture()
	f.reject(err)
	return f
}

// resolve settles f successfully. It reports whether this call settled it.
func (f *Future) resolve() bool { return f.settle(nil) }

// reject settles f with err. It reports whether this call settled it.
func (f *Future) reject(err error) bool { return f.settle(err) }

func (f *Future) settle(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}

// Done returns a channel that is closed once f has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether f has resolved or rejected.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the rejection error, or nil if f resolved or is still pending.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until f settles or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
