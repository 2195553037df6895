// Package datachannel turns a raw, message-oriented WebRTC data channel into
// one that carries payloads of any size, never overruns the transport's send
// buffer, and exposes its open/close lifecycle as one-shot futures.
//
// Outbound binary payloads are split into chunks no larger than
// Config.ChunkSize and delivered in order by a single goroutine, which pauses
// whenever the transport's buffered amount gets close to Config.QueueLimit.
// Text payloads are sent as a single message. Inbound messages are handed to
// the application exactly as received: reassembling chunked payloads is left
// to the layer above.
package datachannel

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/logging"

	"github.com/1ureka/dcpipe/internal/protocol"
	"github.com/1ureka/dcpipe/internal/util"
)

// Defaults applied by Config for zero fields.
const (
	DefaultQueueLimit   = 250 * 1024            // ceiling for buffered amount + next chunk
	DefaultPollInterval = 20 * time.Millisecond // congestion re-check period
)

// Config tunes a DataChannel. Zero fields take their defaults.
type Config struct {
	// ChunkSize is the largest message handed to the transport.
	// Default: protocol.MaxChunkSize.
	ChunkSize int

	// QueueLimit is the buffered-amount ceiling. The outbound queue pauses
	// when BufferedAmount()+ChunkSize would exceed it.
	// Default: DefaultQueueLimit.
	QueueLimit int

	// PollInterval is how often a paused queue re-checks the buffered amount.
	// Default: DefaultPollInterval.
	PollInterval time.Duration

	// MaxPayloadSize rejects any single Send larger than this.
	// Default: protocol.MaxPayloadSize.
	MaxPayloadSize int

	// LoggerFactory is the factory for creating loggers.
	// If nil, the pterm-backed factory from util is used.
	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = protocol.MaxChunkSize
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = DefaultQueueLimit
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPayloadSize <= 0 {
		c.MaxPayloadSize = protocol.MaxPayloadSize
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = util.NewLoggerFactory()
	}
	return c
}

// DataChannel composes the chunker, the outbound and inbound queues, and the
// lifecycle state machine around one Transport.
type DataChannel struct {
	tr  Transport
	cfg Config
	log logging.LeveledLogger

	label string

	sm  *stateMachine
	out *outbound
	in  *inbound
}

// New wires a DataChannel to tr and starts its outbound goroutine. The
// goroutine exits once the transport reports closed.
//
// Most callers want Open, which also resolves the label.
func New(tr Transport, cfg Config) *DataChannel {
	cfg = cfg.withDefaults()
	log := cfg.LoggerFactory.NewLogger("datachannel")

	dc := &DataChannel{
		tr:  tr,
		cfg: cfg,
		log: log,
	}

	cc := &congestion{
		pressure:  tr.BufferedAmount,
		chunkSize: uint64(cfg.ChunkSize),
		limit:     uint64(cfg.QueueLimit),
		interval:  cfg.PollInterval,
		log:       log,
	}
	dc.out = newOutbound(tr, cc, log)
	dc.in = newInbound(log)
	dc.sm = newStateMachine(log, dc.out.activate, func() {
		dc.out.stop()
		dc.in.close()
	})

	tr.OnMessage(dc.in.handle)
	tr.OnError(func(err error) {
		log.Warnf("transport error: %v", err)
	})
	tr.OnOpen(dc.sm.markOpen)
	tr.OnClose(dc.sm.markClosed)

	go dc.out.run()

	// The transport may already be past the point where it fires OnOpen.
	switch tr.ReadyState() {
	case ReadyStateOpen:
		dc.sm.markOpen()
	case ReadyStateClosed:
		dc.sm.markClosed()
	}

	return dc
}

// Open is the two-phase factory: it builds the DataChannel, then queries the
// transport for its label so that Label is synchronous afterwards. If ctx is
// already done, the DataChannel is discarded without touching the transport.
func Open(ctx context.Context, tr Transport, cfg Config) (*DataChannel, error) {
	dc := New(tr, cfg)

	if err := ctx.Err(); err != nil {
		dc.detach()
		dc.out.stop()
		return nil, fmt.Errorf("failed to open data channel: %w", err)
	}

	dc.label = tr.Label()
	return dc, nil
}

// detach removes every handler New registered on the transport.
func (dc *DataChannel) detach() {
	dc.tr.OnMessage(nil)
	dc.tr.OnError(nil)
	dc.tr.OnOpen(nil)
	dc.tr.OnClose(nil)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Label returns the transport label resolved by Open.
func (dc *DataChannel) Label() string { return dc.label }

// State returns the current lifecycle state.
func (dc *DataChannel) State() State { return dc.sm.current() }

// OnceOpened resolves when the channel opens, or rejects with ErrOpenFailed
// if it closes first.
func (dc *DataChannel) OnceOpened() *Future { return dc.sm.opened }

// OnceClosed resolves when the transport reports closed.
func (dc *DataChannel) OnceClosed() *Future { return dc.sm.closed }

// Close asks the transport to close. The transition to Closed happens when
// the transport confirms it. Calling Close more than once is harmless.
func (dc *DataChannel) Close() {
	if err := dc.tr.Close(); err != nil {
		dc.log.Warnf("failed to close transport: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// SendAsync validates p, splits it into chunks and enqueues them. The
// returned future resolves once every chunk has been accepted by the
// transport, or rejects with the first *DeliveryError. Invalid payloads are
// rejected immediately and nothing is enqueued.
//
// If the channel closes while chunks are still queued, they are abandoned
// and the future never settles; bound the wait with a context.
func (dc *DataChannel) SendAsync(p protocol.Payload) *Future {
	if !p.Valid() {
		return rejectedFuture(ErrMalformedPayload)
	}

	if n := p.ByteLength(); n > dc.cfg.MaxPayloadSize {
		return rejectedFuture(fmt.Errorf("%w: %d bytes (limit %d)", ErrPayloadTooLarge, n, dc.cfg.MaxPayloadSize))
	}

	chunks := protocol.Split(p, dc.cfg.ChunkSize)
	b := newBatch(len(chunks))

	entries := make([]*entry, len(chunks))
	for i, c := range chunks {
		entries[i] = &entry{chunk: c, batch: b}
	}
	dc.out.push(entries...)

	return b.fut
}

// Send is SendAsync followed by a wait bounded by ctx.
func (dc *DataChannel) Send(ctx context.Context, p protocol.Payload) error {
	return dc.SendAsync(p).Wait(ctx)
}

// SendText sends s as a single text message.
func (dc *DataChannel) SendText(ctx context.Context, s string) error {
	return dc.Send(ctx, protocol.Text(s))
}

// SendBinary sends b, chunked as needed.
func (dc *DataChannel) SendBinary(ctx context.Context, b []byte) error {
	return dc.Send(ctx, protocol.Binary(b))
}

// Receive returns the next inbound payload in arrival order. After the
// channel closes it drains what is left and then returns ErrClosed.
func (dc *DataChannel) Receive(ctx context.Context) (protocol.Payload, error) {
	return dc.in.receive(ctx)
}

// Pending returns the number of chunks waiting in the outbound queue.
func (dc *DataChannel) Pending() int { return dc.out.len() }

// Congested reports whether the outbound queue is currently paused on
// buffer pressure.
func (dc *DataChannel) Congested() bool { return dc.out.cc.suspended.Load() }
