// Package frame splits a TCP byte stream into length-prefixed frames.
// Each frame is a 2-byte big-endian payload length followed by that many
// payload bytes; there is no other framing metadata.
package frame

import (
	"encoding/binary"
	"errors"
)

// PrefixLen is the size of the length prefix in bytes.
const PrefixLen = 2

// MaxPayload is the largest payload a prefix can declare.
const MaxPayload = 0xFFFF

var (
	// ErrFrameTooLarge is returned when encoding a payload above MaxPayload.
	ErrFrameTooLarge = errors.New("frame: payload exceeds 65535 bytes")

	// ErrTruncatedFrame reports a stream that ended inside a frame.
	ErrTruncatedFrame = errors.New("frame: stream ended inside a frame")
)

// Decoder accumulates stream chunks and extracts complete payloads.
// It is not safe for concurrent use; one connection owns one Decoder.
type Decoder struct {
	buf        []byte
	pending    int
	hasPending bool
}

// NewDecoder returns a Decoder awaiting its first length prefix.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// BytesNeeded is an upper bound for the next read: the prefix size while no
// prefix has been parsed, otherwise the bytes still missing from the payload.
func (d *Decoder) BytesNeeded() int {
	if !d.hasPending {
		return PrefixLen
	}
	if missing := d.pending - len(d.buf); missing > 0 {
		return missing
	}
	return 0
}

// Append adds raw stream bytes to the buffer without parsing them.
func (d *Decoder) Append(chunk []byte) {
	d.buf = append(d.buf, chunk...)
}

// HasCompleteFrame parses the length prefix once enough bytes are buffered
// and reports whether the whole payload is available. Calling it again
// without new data does not change state.
func (d *Decoder) HasCompleteFrame() bool {
	if !d.hasPending {
		if len(d.buf) < PrefixLen {
			return false
		}
		d.pending = int(binary.BigEndian.Uint16(d.buf[:PrefixLen]))
		d.hasPending = true
		d.consume(PrefixLen)
	}
	return len(d.buf) >= d.pending
}

// TakeFrame returns the current payload and resets the decoder to await
// the next prefix. Bytes past the payload stay buffered. It must only be
// called after HasCompleteFrame returned true.
func (d *Decoder) TakeFrame() []byte {
	payload := make([]byte, d.pending)
	copy(payload, d.buf[:d.pending])
	d.consume(d.pending)
	d.pending = 0
	d.hasPending = false
	return payload
}

// Buffered returns the number of bytes held that are not yet part of a
// returned frame, excluding an already parsed prefix.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// InFrame reports whether the decoder holds part of an unfinished frame.
func (d *Decoder) InFrame() bool {
	return d.hasPending || len(d.buf) > 0
}

func (d *Decoder) consume(n int) {
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}

// Encode prefixes payload with its big-endian length.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, PrefixLen+len(payload))
	binary.BigEndian.PutUint16(out, uint16(len(payload)))
	copy(out[PrefixLen:], payload)
	return out, nil
}
