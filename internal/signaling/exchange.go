package signaling

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/dcpipe/internal/transport"
	"github.com/1ureka/dcpipe/internal/util"
)

// exchange runs one side of the offer/answer handshake over a WS connection.
//
// Writes are serialized. Local candidates start trickling as soon as
// SetLocalDescription runs, before the description itself is written, so
// they are parked until it is on the wire and the peer never sees a
// candidate first.
type exchange struct {
	tr      *transport.Transport
	conn    *websocket.Conn
	offerer bool

	mu      sync.Mutex
	sdpSent bool
	parked  []string
}

func newExchange(tr *transport.Transport, conn *websocket.Conn, offerer bool) *exchange {
	x := &exchange{tr: tr, conn: conn, offerer: offerer}
	tr.OnICECandidate(x.trickle)
	return x
}

// describe creates the local offer or answer, applies it and sends it.
func (x *exchange) describe() error {
	create, typ := x.tr.CreateAnswer, msgTypeAnswer
	if x.offerer {
		create, typ = x.tr.CreateOffer, msgTypeOffer
	}

	desc, err := create()
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", typ, err)
	}
	if err := x.tr.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("failed to apply local %s: %w", typ, err)
	}

	return x.writeDescription(typ, desc.SDP)
}

// writeDescription sends the SDP, then any parked candidates.
func (x *exchange) writeDescription(typ msgType, sdp string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.conn.WriteJSON(message{Type: typ, SDP: sdp}); err != nil {
		return fmt.Errorf("failed to send %s: %w", typ, err)
	}
	x.sdpSent = true

	for _, c := range x.parked {
		if err := x.conn.WriteJSON(message{Type: msgTypeCandidate, Candidate: c}); err != nil {
			return fmt.Errorf("failed to send candidate: %w", err)
		}
	}
	x.parked = nil
	return nil
}

// trickle is the OnICECandidate callback. A nil candidate ends gathering.
func (x *exchange) trickle(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		return
	}
	if err := x.sendCandidate(string(data)); err != nil {
		// A lost candidate only narrows the candidate set.
		util.LogDebug("failed to send ICE candidate: %v", err)
	}
}

func (x *exchange) sendCandidate(candidate string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.sdpSent {
		x.parked = append(x.parked, candidate)
		return nil
	}
	return x.conn.WriteJSON(message{Type: msgTypeCandidate, Candidate: candidate})
}

// run reads peer messages until the WS fails or closes. It never returns nil.
func (x *exchange) run() error {
	for {
		var msg message
		if err := x.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("signaling connection lost: %w", err)
		}
		if err := x.apply(msg); err != nil {
			return err
		}
	}
}

// apply handles one peer message. The offerer expects an answer, the other
// side an offer; candidates are accepted by both.
func (x *exchange) apply(msg message) error {
	switch msg.Type {
	case msgTypeOffer, msgTypeAnswer:
		want := msgTypeOffer
		sdpType := webrtc.SDPTypeOffer
		if x.offerer {
			want, sdpType = msgTypeAnswer, webrtc.SDPTypeAnswer
		}
		if msg.Type != want {
			return fmt.Errorf("unexpected %s from peer", msg.Type)
		}

		if err := x.tr.SetRemoteDescription(webrtc.SessionDescription{Type: sdpType, SDP: msg.SDP}); err != nil {
			return fmt.Errorf("failed to apply remote %s: %w", msg.Type, err)
		}
		if !x.offerer {
			return x.describe()
		}
		return nil

	case msgTypeCandidate:
		var init webrtc.ICECandidateInit
		if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
			return fmt.Errorf("malformed ICE candidate: %w", err)
		}
		if err := x.tr.AddICECandidate(init); err != nil {
			return fmt.Errorf("failed to add ICE candidate: %w", err)
		}
		return nil

	default:
		util.LogDebug("ignoring signaling message of type %q", msg.Type)
		return nil
	}
}
