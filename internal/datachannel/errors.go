package datachannel

import "errors"

var (
	// ErrMalformedPayload is returned by Send for a payload that is neither
	// text nor binary. Nothing is enqueued.
	ErrMalformedPayload = errors.New("datachannel: payload is neither text nor binary")

	// ErrPayloadTooLarge is returned by Send when the payload's byte length
	// exceeds Config.MaxPayloadSize. Nothing is enqueued.
	ErrPayloadTooLarge = errors.New("datachannel: payload exceeds maximum size")

	// ErrOpenFailed rejects OnceOpened when the transport closes before it
	// ever became open.
	ErrOpenFailed = errors.New("datachannel: closed before opening")

	// ErrClosed is returned by Receive once the channel is closed and every
	// queued inbound payload has been consumed.
	ErrClosed = errors.New("datachannel: closed")
)

// DeliveryError reports that the transport refused a chunk, typically
// because it is already closing. Chunks of the same payload that were
// handed off earlier are not rolled back.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "datachannel: delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }
