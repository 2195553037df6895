package transport

import (
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// DefaultSTUNServers are used for ICE candidate gathering unless configured
// otherwise. No TURN: the tool targets direct P2P connectivity.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// DefaultLabel is the DataChannel label used when Options.Label is empty.
const DefaultLabel = "dcpipe"

// Options configures the PeerConnection and DataChannel behind a Transport.
type Options struct {
	// Label is the DataChannel label. Default: DefaultLabel.
	Label string

	// STUNServers are the ICE servers. Empty means host candidates only.
	STUNServers []string

	// IncludeLoopback gathers loopback candidates too, which lets two
	// peers in the same process connect without a network interface.
	IncludeLoopback bool

	// LoggerFactory receives pion's internal logs. If nil, pion's default is used.
	LoggerFactory logging.LoggerFactory
}

// newPeerConnection creates a PeerConnection configured from opts.
func newPeerConnection(opts Options) (*webrtc.PeerConnection, error) {
	var se webrtc.SettingEngine
	if opts.LoggerFactory != nil {
		se.LoggerFactory = opts.LoggerFactory
	}
	if opts.IncludeLoopback {
		se.SetIncludeLoopbackCandidate(true)
	}

	config := webrtc.Configuration{}
	if len(opts.STUNServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: opts.STUNServers},
		}
	}

	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))
	return api.NewPeerConnection(config)
}

// newDataChannel creates a pre-negotiated, ordered DataChannel on the given
// PeerConnection. Negotiated mode (ID 0) lets both sides create the channel
// independently without relying on OnDataChannel. Ordered, reliable delivery
// is required: chunks of one payload must arrive in the order they were sent.
func newDataChannel(pc *webrtc.PeerConnection, label string) (*webrtc.DataChannel, error) {
	ordered := true
	negotiated := true
	id := uint16(0)

	if label == "" {
		label = DefaultLabel
	}

	return pc.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
}
