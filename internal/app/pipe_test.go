package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/dcpipe/internal/datachannel"
)

// pipeEnd is one side of an in-memory, already-open datachannel.Transport
// pair. Messages sent on one end are delivered to the other synchronously.
type pipeEnd struct {
	peer *pipeEnd

	mu        sync.Mutex
	state     string
	onClose   func()
	onMessage func(any)
}

func (p *pipeEnd) ReadyState() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *pipeEnd) Label() string          { return "pipe" }
func (p *pipeEnd) BufferedAmount() uint64 { return 0 }

func (p *pipeEnd) Send(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	p.peer.deliver(buf)
	return nil
}

func (p *pipeEnd) SendText(s string) error {
	p.peer.deliver(s)
	return nil
}

func (p *pipeEnd) deliver(msg any) {
	p.mu.Lock()
	fn := p.onMessage
	p.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// Close closes both ends, like a real data channel.
func (p *pipeEnd) Close() error {
	p.shutdown()
	p.peer.shutdown()
	return nil
}

func (p *pipeEnd) shutdown() {
	p.mu.Lock()
	if p.state == datachannel.ReadyStateClosed {
		p.mu.Unlock()
		return
	}
	p.state = datachannel.ReadyStateClosed
	fn := p.onClose
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *pipeEnd) OnOpen(func()) {}

func (p *pipeEnd) OnClose(fn func()) {
	p.mu.Lock()
	p.onClose = fn
	p.mu.Unlock()
}

func (p *pipeEnd) OnMessage(fn func(any)) {
	p.mu.Lock()
	p.onMessage = fn
	p.mu.Unlock()
}

func (p *pipeEnd) OnError(func(error)) {}

// newPipe returns two open DataChannels connected to each other.
func newPipe(t *testing.T) (a, b *datachannel.DataChannel) {
	t.Helper()

	ea := &pipeEnd{state: datachannel.ReadyStateOpen}
	eb := &pipeEnd{state: datachannel.ReadyStateOpen}
	ea.peer, eb.peer = eb, ea

	cfg := datachannel.Config{
		PollInterval:  time.Millisecond,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	}

	ctx := context.Background()
	a, err := datachannel.Open(ctx, ea, cfg)
	require.NoError(t, err)
	b, err = datachannel.Open(ctx, eb, cfg)
	require.NoError(t, err)

	t.Cleanup(a.Close)
	return a, b
}
