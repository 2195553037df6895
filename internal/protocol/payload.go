// Package protocol defines the payload unit carried over the DataChannel and
// the rules for splitting it into transport-safe chunks.
package protocol

import (
	"math"
	"unicode/utf16"
)

// Size limits.
const (
	MaxChunkSize   = 15 * 1024     // largest single DataChannel message we emit
	MaxPayloadSize = math.MaxInt32 // sanity ceiling for one Send, far above any real message
)

// Kind identifies which variant of a Payload is populated.
type Kind uint8

const (
	KindNone   Kind = iota // zero value, malformed
	KindText               // UTF-8 string
	KindBinary             // raw bytes
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return "none"
	}
}

// Payload is either a text value or a binary buffer, never both.
// Build one with Text or Binary; the zero value is malformed.
type Payload struct {
	kind Kind
	text string
	data []byte
}

// Text wraps s as a text payload.
func Text(s string) Payload {
	return Payload{kind: KindText, text: s}
}

// Binary wraps b as a binary payload. The slice is not copied.
// A nil slice is treated as an empty buffer.
func Binary(b []byte) Payload {
	if b == nil {
		b = []byte{}
	}
	return Payload{kind: KindBinary, data: b}
}

// Kind returns which variant is populated.
func (p Payload) Kind() Kind { return p.kind }

// IsText reports whether p carries text.
func (p Payload) IsText() bool { return p.kind == KindText }

// IsBinary reports whether p carries bytes.
func (p Payload) IsBinary() bool { return p.kind == KindBinary }

// Valid reports whether exactly one variant is populated.
func (p Payload) Valid() bool {
	return p.kind == KindText || (p.kind == KindBinary && p.data != nil)
}

// String returns the text value, or "" for binary payloads.
func (p Payload) String() string { return p.text }

// Bytes returns the binary value, or nil for text payloads.
func (p Payload) Bytes() []byte { return p.data }

// ByteLength is the size used for limit checks. Text is measured in UTF-16
// code units at two bytes each; binary is its raw length.
func (p Payload) ByteLength() int {
	switch p.kind {
	case KindText:
		return textByteLength(p.text)
	case KindBinary:
		return len(p.data)
	default:
		return 0
	}
}

func textByteLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r) // invalid UTF-8 decodes to U+FFFD, never -1
	}
	return n * 2
}
