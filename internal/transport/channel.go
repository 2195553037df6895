package transport

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/dcpipe/internal/datachannel"
)

// Compile-time interface check.
var _ datachannel.Transport = (*Channel)(nil)

// Channel adapts a pion DataChannel to datachannel.Transport.
//
// pion keeps a single handler per event, and Transport already owns them
// for its own lifecycle, so Channel keeps its own handler slots and
// Transport forwards each event here.
//
// pion starts delivering as soon as its side opens, which is usually before
// anyone has called OnMessage. Messages that arrive with no handler are held
// and replayed, in order, to the first handler registered. Open and close
// are remembered the same way.
type Channel struct {
	raw *webrtc.DataChannel

	// deliver serializes message delivery, so a replayed backlog is never
	// overtaken by a message arriving during the replay.
	deliver sync.Mutex

	mu        sync.Mutex
	onOpen    func()
	onClose   func()
	onMessage func(any)
	onError   func(error)
	backlog   []any
	opened    bool
	closed    bool
}

func newChannel(raw *webrtc.DataChannel) *Channel {
	return &Channel{raw: raw}
}

// ReadyState returns "connecting", "open", "closing" or "closed".
func (c *Channel) ReadyState() string { return c.raw.ReadyState().String() }

// Label / Send / SendText / BufferedAmount / Close proxy the pion methods.
func (c *Channel) Label() string           { return c.raw.Label() }
func (c *Channel) Send(data []byte) error  { return c.raw.Send(data) }
func (c *Channel) SendText(s string) error { return c.raw.SendText(s) }
func (c *Channel) BufferedAmount() uint64  { return c.raw.BufferedAmount() }
func (c *Channel) Close() error            { return c.raw.Close() }

// OnOpen registers fn. If the channel already opened, fn runs immediately.
func (c *Channel) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = fn
	replay := c.opened
	c.mu.Unlock()

	if replay && fn != nil {
		fn()
	}
}

// OnClose registers fn. If the channel already closed, fn runs immediately.
func (c *Channel) OnClose(fn func()) {
	c.mu.Lock()
	c.onClose = fn
	replay := c.closed
	c.mu.Unlock()

	if replay && fn != nil {
		fn()
	}
}

// OnMessage registers fn and hands it every message held so far. A nil fn
// makes the channel hold messages again.
func (c *Channel) OnMessage(fn func(any)) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	c.onMessage = fn
	var backlog []any
	if fn != nil {
		backlog, c.backlog = c.backlog, nil
	}
	c.mu.Unlock()

	for _, msg := range backlog {
		fn(msg)
	}
}

func (c *Channel) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Event forwarding (called from Transport's pion callbacks)
// ---------------------------------------------------------------------------

func (c *Channel) handleOpen() {
	c.mu.Lock()
	c.opened = true
	fn := c.onOpen
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Channel) handleClose() {
	c.mu.Lock()
	c.closed = true
	fn := c.onClose
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// handleMessage converts a pion message to a string or a []byte and passes
// it on, or holds it until a handler is registered.
func (c *Channel) handleMessage(msg webrtc.DataChannelMessage) {
	var v any
	if msg.IsString {
		v = string(msg.Data)
	} else {
		v = msg.Data
	}

	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	fn := c.onMessage
	if fn == nil {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		c.backlog = append(c.backlog, v)
	}
	c.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// pending returns the number of messages held for a future handler.
func (c *Channel) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.backlog)
}

func (c *Channel) handleError(err error) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
