package datachannel

import (
	"context"
	"sync"

	"github.com/pion/logging"

	"github.com/1ureka/dcpipe/internal/protocol"
	"github.com/1ureka/dcpipe/internal/util"
)

// inbound republishes raw transport messages as payloads for a single
// consumer to pull. It is unbounded; the sender gets no backpressure.
type inbound struct {
	log logging.LeveledLogger

	mu    sync.Mutex
	queue []protocol.Payload

	notify    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newInbound(log logging.LeveledLogger) *inbound {
	return &inbound{
		log:    log,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// handle is the transport's message callback. Messages that are neither a
// string nor a []byte are logged and dropped.
func (q *inbound) handle(msg any) {
	var p protocol.Payload

	switch v := msg.(type) {
	case string:
		p = protocol.Text(v)
		util.Stats.AddRecv(len(v))
	case []byte:
		data := make([]byte, len(v))
		copy(data, v)
		p = protocol.Binary(data)
		util.Stats.AddRecv(len(v))
	default:
		util.Stats.AddDrop()
		q.log.Warnf("dropping inbound message of unexpected type %T", msg)
		return
	}

	q.mu.Lock()
	q.queue = append(q.queue, p)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// close marks the end of the stream. Payloads already queued stay readable.
func (q *inbound) close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

func (q *inbound) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// receive pops the oldest payload, blocking until one arrives, the stream
// ends, or ctx is done.
func (q *inbound) receive(ctx context.Context) (protocol.Payload, error) {
	for {
		q.mu.Lock()
		if len(q.queue) > 0 {
			p := q.queue[0]
			q.queue[0] = protocol.Payload{}
			q.queue = q.queue[1:]
			q.mu.Unlock()
			return p, nil
		}
		q.mu.Unlock()

		select {
		case <-q.closed:
			// Re-check: a message may have raced with close.
			if q.len() == 0 {
				return protocol.Payload{}, ErrClosed
			}
		case <-q.notify:
		case <-ctx.Done():
			return protocol.Payload{}, ctx.Err()
		}
	}
}
