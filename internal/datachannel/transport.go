package datachannel

// Ready states reported by Transport.ReadyState.
const (
	ReadyStateConnecting = "connecting"
	ReadyStateOpen       = "open"
	ReadyStateClosing    = "closing"
	ReadyStateClosed     = "closed"
)

// Transport is the native message channel a DataChannel wraps. It is owned
// by the caller; DataChannel only operates it.
//
// OnMessage receives a string for text messages and a []byte for binary
// ones. Any other value is treated as malformed and dropped.
type Transport interface {
	ReadyState() string
	Label() string

	Send(data []byte) error
	SendText(s string) error
	BufferedAmount() uint64
	Close() error

	OnOpen(fn func())
	OnClose(fn func())
	OnMessage(fn func(msg any))
	OnError(fn func(err error))
}
