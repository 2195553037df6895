package signaling

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// rendezvous is the host's one-shot meeting point. It upgrades exactly one
// request that carries the right PIN and hands that connection to accept.
// Later requests get 409 until the host shuts it down.
type rendezvous struct {
	pin      []byte
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader

	claimed atomic.Bool
	arrived chan *websocket.Conn
}

// listenRendezvous starts serving /ws on addr (":0" picks a free port).
func listenRendezvous(addr, pin string) (*rendezvous, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for signaling on %s: %w", addr, err)
	}

	rv := &rendezvous{
		pin: []byte(pin),
		ln:  ln,
		upgrader: websocket.Upgrader{
			// The PIN is the access check; the page origin is irrelevant.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		arrived: make(chan *websocket.Conn, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rv.handle)
	rv.srv = &http.Server{Handler: mux}

	go rv.srv.Serve(ln)
	return rv, nil
}

// port returns the TCP port the rendezvous listens on.
func (rv *rendezvous) port() int {
	return rv.ln.Addr().(*net.TCPAddr).Port
}

func (rv *rendezvous) handle(w http.ResponseWriter, r *http.Request) {
	given := []byte(r.URL.Query().Get("pin"))
	if subtle.ConstantTimeCompare(given, rv.pin) != 1 {
		http.Error(w, "invalid PIN", http.StatusUnauthorized)
		return
	}

	if !rv.claimed.CompareAndSwap(false, true) {
		http.Error(w, "a peer is already connected", http.StatusConflict)
		return
	}

	conn, err := rv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered; let the peer retry.
		rv.claimed.Store(false)
		return
	}
	rv.arrived <- conn
}

// accept waits for the peer's connection.
func (rv *rendezvous) accept(ctx context.Context) (*websocket.Conn, error) {
	select {
	case conn := <-rv.arrived:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// shutdown stops the HTTP server. An accepted connection stays open; it is
// hijacked and belongs to the caller.
func (rv *rendezvous) shutdown() {
	rv.srv.Close()
}

// dial connects to the host's rendezvous. A rejected handshake reports the
// HTTP status, which is how a wrong PIN shows up.
func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("signaling handshake rejected: %s", resp.Status)
		}
		return nil, fmt.Errorf("failed to connect to signaling server: %w", err)
	}
	return conn, nil
}

// GeneratePIN returns n random decimal digits.
func GeneratePIN(n int) string {
	pin := make([]byte, 0, n)
	var b [1]byte
	for len(pin) < n {
		rand.Read(b[:])
		// Reject 250..255 so every digit is equally likely.
		if b[0] < 250 {
			pin = append(pin, '0'+b[0]%10)
		}
	}
	return string(pin)
}
