package datachannel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"

	"github.com/1ureka/dcpipe/internal/protocol"
)

// Compile-time interface check.
var _ Transport = (*fakeTransport)(nil)

// fakeTransport is an in-memory Transport. Sent messages are recorded in
// order; events are fired explicitly by the test through fire* helpers.
type fakeTransport struct {
	mu        sync.Mutex
	state     string
	label     string
	sent      []protocol.Payload
	sendErr   func(n int) error // called with the 0-based index of each send
	sendCalls int

	onOpen    func()
	onClose   func()
	onMessage func(any)
	onError   func(error)

	buffered   atomic.Uint64
	pollCount  atomic.Int64
	closeCalls atomic.Int64
}

func newFakeTransport(state string) *fakeTransport {
	return &fakeTransport{state: state, label: "fake"}
}

func (f *fakeTransport) ReadyState() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Label() string { return f.label }

func (f *fakeTransport) Send(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	return f.record(protocol.Binary(cp))
}

func (f *fakeTransport) SendText(s string) error {
	return f.record(protocol.Text(s))
}

func (f *fakeTransport) record(p protocol.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.sendCalls
	f.sendCalls++
	if f.sendErr != nil {
		if err := f.sendErr(n); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeTransport) BufferedAmount() uint64 {
	f.pollCount.Add(1)
	return f.buffered.Load()
}

// Close behaves like a real channel: it reports closed through OnClose.
func (f *fakeTransport) Close() error {
	f.closeCalls.Add(1)
	f.fireClose()
	return nil
}

func (f *fakeTransport) OnOpen(fn func()) {
	f.mu.Lock()
	f.onOpen = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnClose(fn func()) {
	f.mu.Lock()
	f.onClose = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnMessage(fn func(any)) {
	f.mu.Lock()
	f.onMessage = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnError(fn func(error)) {
	f.mu.Lock()
	f.onError = fn
	f.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func (f *fakeTransport) fireOpen() {
	f.mu.Lock()
	f.state = ReadyStateOpen
	fn := f.onOpen
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (f *fakeTransport) fireClose() {
	f.mu.Lock()
	f.state = ReadyStateClosed
	fn := f.onClose
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (f *fakeTransport) fireMessage(msg any) {
	f.mu.Lock()
	fn := f.onMessage
	f.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

func (f *fakeTransport) fireError(err error) {
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// sentPayloads returns a snapshot of everything accepted so far.
func (f *fakeTransport) sentPayloads() []protocol.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Payload, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// testConfig keeps pion's default logger (errors only) and a short poll.
func testConfig() Config {
	return Config{
		PollInterval:  2 * time.Millisecond,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	}
}

// makeTestData generates deterministic test data of the given size.
func makeTestData(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i%251) ^ seed
	}
	return data
}
