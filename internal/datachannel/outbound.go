package datachannel

import (
	"sync"
	"sync/atomic"

	"github.com/pion/logging"

	"github.com/1ureka/dcpipe/internal/protocol"
	"github.com/1ureka/dcpipe/internal/util"
)

// batch is the completion shared by all chunks of one Send. It resolves once
// every chunk has been handed to the transport, or rejects with the first
// delivery error.
type batch struct {
	remaining atomic.Int32
	fut       *Future
}

func newBatch(n int) *batch {
	b := &batch{fut: newFuture()}
	b.remaining.Store(int32(n))
	return b
}

func (b *batch) chunkDone(err error) {
	if err != nil {
		b.fut.reject(err)
	}
	if b.remaining.Add(-1) == 0 {
		b.fut.resolve() // no-op if a chunk already rejected
	}
}

type entry struct {
	chunk protocol.Payload
	batch *batch
}

// outbound is a single-consumer FIFO drained by one goroutine. Consumption
// starts suspended, is activated when the channel opens, pauses while the
// congestion controller says so, and stops for good when the channel closes.
// Entries still queued at that point are abandoned.
type outbound struct {
	tr  Transport
	cc  *congestion
	log logging.LeveledLogger

	mu    sync.Mutex
	queue []*entry

	notify      chan struct{}
	openSignal  chan struct{}
	closeSignal chan struct{}
	openOnce    sync.Once
	closeOnce   sync.Once
	done        chan struct{}
}

func newOutbound(tr Transport, cc *congestion, log logging.LeveledLogger) *outbound {
	return &outbound{
		tr:          tr,
		cc:          cc,
		log:         log,
		notify:      make(chan struct{}, 1),
		openSignal:  make(chan struct{}),
		closeSignal: make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// push appends entries atomically, so chunks of one payload are never
// interleaved with another payload's chunks.
func (q *outbound) push(entries ...*entry) {
	q.mu.Lock()
	q.queue = append(q.queue, entries...)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *outbound) pop() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return nil
	}
	e := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return e
}

func (q *outbound) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// activate enables consumption.
func (q *outbound) activate() {
	q.openOnce.Do(func() { close(q.openSignal) })
}

// stop disables consumption permanently.
func (q *outbound) stop() {
	q.closeOnce.Do(func() { close(q.closeSignal) })
}

func (q *outbound) stopped() bool {
	select {
	case <-q.closeSignal:
		return true
	default:
		return false
	}
}

// run is the single-writer goroutine. It waits for activation, then drains
// the queue one chunk at a time with congestion awareness.
func (q *outbound) run() {
	defer close(q.done)

	// Phase 1: wait for the channel to open.
	select {
	case <-q.openSignal:
	case <-q.closeSignal:
		return
	}

	// Phase 2: drain.
	for {
		if q.stopped() {
			if n := q.len(); n > 0 {
				q.log.Debugf("channel closed, abandoning %d queued chunks", n)
			}
			return
		}

		e := q.pop()
		if e == nil {
			select {
			case <-q.notify:
			case <-q.closeSignal:
			}
			continue
		}

		if err := q.deliver(e.chunk); err != nil {
			q.log.Warnf("failed to send %s chunk (%d bytes): %v", e.chunk.Kind(), e.chunk.ByteLength(), err)
			e.batch.chunkDone(&DeliveryError{Err: err})
			continue
		}
		e.batch.chunkDone(nil)

		// A false return means stop fired; the check at the top exits.
		q.cc.wait(q.closeSignal)
	}
}

// deliver hands one chunk to the transport's raw send primitive.
func (q *outbound) deliver(chunk protocol.Payload) error {
	if chunk.IsText() {
		s := chunk.String()
		if err := q.tr.SendText(s); err != nil {
			return err
		}
		util.Stats.AddSent(len(s))
		return nil
	}

	data := chunk.Bytes()
	if err := q.tr.Send(data); err != nil {
		return err
	}
	util.Stats.AddSent(len(data))
	return nil
}
