// Package signaling runs the WebSocket offer/answer exchange that brings a
// transport.Transport to the point where its DataChannel is open. All
// WebSocket and SDP/ICE details stay inside this package.
package signaling

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"github.com/1ureka/dcpipe/internal/transport"
	"github.com/1ureka/dcpipe/internal/util"
)

// readyGrace is how long to wait for the DataChannel after the WS fails.
const readyGrace = 10 * time.Second

// EstablishAsHost runs the host side:
//  1. Open a PIN-guarded rendezvous on wsAddr and print its port and PIN
//  2. Wait for the client to connect
//  3. Create a Transport and send the offer
//  4. Wait for the DataChannel to open, then drop the rendezvous and WS
func EstablishAsHost(ctx context.Context, wsAddr, pin string, opts transport.Options) (*transport.Transport, error) {
	rv, err := listenRendezvous(wsAddr, pin)
	if err != nil {
		return nil, err
	}
	defer rv.shutdown()

	pterm.DefaultBox.WithTitle("WebSocket Signaling Server").Println(
		fmt.Sprintf("Port : %d\nPIN  : %s\n\nForward this port if the client is not on your network.", rv.port(), pin),
	)
	util.LogInfo("waiting for client...")

	wsConn, err := rv.accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for client: %w", err)
	}
	defer wsConn.Close()
	util.LogSuccess("client connected from %s", wsConn.RemoteAddr())

	return negotiate(ctx, wsConn, opts, true)
}

// EstablishAsClient runs the client side: connect to the host's rendezvous,
// answer its offer, and wait for the DataChannel to open.
func EstablishAsClient(ctx context.Context, wsURL string, opts transport.Options) (*transport.Transport, error) {
	util.LogInfo("connecting to host...")
	wsConn, err := dial(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer wsConn.Close()
	util.LogSuccess("WS connected: %s", wsURL)

	return negotiate(ctx, wsConn, opts, false)
}

// negotiate creates a Transport and exchanges SDP/ICE over wsConn until the
// DataChannel opens. The offerer describes first; the other side answers
// from inside exchange.apply.
func negotiate(ctx context.Context, wsConn *websocket.Conn, opts transport.Options, offerer bool) (*transport.Transport, error) {
	tr, err := transport.NewTransport(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Transport: %w", err)
	}

	x := newExchange(tr, wsConn, offerer)

	// Exits when wsConn is closed by the caller's defer.
	errCh := make(chan error, 1)
	go func() {
		errCh <- x.run()
	}()

	if offerer {
		if err := x.describe(); err != nil {
			tr.Close()
			return nil, err
		}
	}

	select {
	case <-tr.Ready():
		util.LogSuccess("WebRTC DataChannel established, closing WS")
		return tr, nil

	case err := <-errCh:
		// The peer drops the WS as soon as its own side opens, which can be
		// a moment before ours does.
		select {
		case <-tr.Ready():
			util.LogSuccess("WebRTC DataChannel established, closing WS")
			return tr, nil
		case <-time.After(readyGrace):
		case <-ctx.Done():
		}
		tr.Close()
		return nil, fmt.Errorf("signaling failed: %w", err)

	case <-ctx.Done():
		tr.Close()
		return nil, ctx.Err()
	}
}
