// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Frame layout constants (RFC 6455 Section 5.2).
//
//	 0                   1
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
//	+-+-+-+-+-------+-+-------------+
//	|F|R|R|R| opcode|M| Payload len |
//	|I|S|S|S|  (4)  |A|     (7)     |
//	|N|V|V|V|       |S|             |
//	| |1|2|3|       |K|             |
//	+-+-+-+-+-------+-+-------------+
const (
	finBit     = 0x80
	opcodeBits = 0x0F
	maskBit    = 0x80

	// Payload length escape codes: values 0-125 are inline, 126 switches
	// to a 16-bit extension, 127 to a 64-bit extension.
	payloadLen7Max  = 125
	payloadLen16Ext = 126
	payloadLen64Ext = 127

	// maxFramePayload is the maximum accepted payload length for an
	// inbound frame (implementation limit). The 64-bit length field can
	// declare far more than could ever be allocated.
	maxFramePayload = 32 * 1024 * 1024
)

// header is the decoded fixed part of one frame. It is ephemeral: built
// from raw bytes by explicit shifting and masking, used for a single
// decode, never persisted.
type header struct {
	fin    bool
	opcode byte
	masked bool
	length uint64
	mask   [4]byte
}

// readHeader reads the 2-byte fixed header plus any length extension and
// the mask key from r. The fin and reserved bits are extracted but not
// validated; every frame is treated as complete because this codec never
// assembles continuation frames. An unset mask bit fails immediately
// with ErrMaskRequired before any further bytes are consumed, and a
// declared length above maxFramePayload fails with ErrFrameTooLarge
// before any payload is allocated.
func readHeader(r *bufio.Reader) (header, error) {
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return header{}, fmt.Errorf("read frame header: %w", err)
	}

	h := header{
		fin:    buf[0]&finBit != 0,
		opcode: buf[0] & opcodeBits,
		masked: buf[1]&maskBit != 0,
		length: uint64(buf[1] &^ maskBit),
	}

	if !h.masked {
		return header{}, ErrMaskRequired
	}

	switch h.length {
	case payloadLen16Ext:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return header{}, fmt.Errorf("read 16-bit length: %w", err)
		}
		h.length = uint64(binary.BigEndian.Uint16(buf[:2]))
	case payloadLen64Ext:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return header{}, fmt.Errorf("read 64-bit length: %w", err)
		}
		h.length = binary.BigEndian.Uint64(buf[:8])
	}

	if h.length > maxFramePayload {
		return header{}, fmt.Errorf("%w: declared length %d exceeds %d", ErrFrameTooLarge, h.length, maxFramePayload)
	}

	if _, err := io.ReadFull(r, h.mask[:]); err != nil {
		return header{}, fmt.Errorf("read mask key: %w", err)
	}

	return h, nil
}

// ReadMessage decodes exactly one frame from r and returns it as a
// Message. The payload is unmasked in place with the frame's mask key.
// Opcode 0x1 yields a text message with lossy UTF-8 decoding; every
// other opcode yields a binary message with the raw unmasked bytes.
//
// Any short read terminates the decode with the wrapped I/O error; the
// caller is expected to close the connection.
func ReadMessage(r *bufio.Reader) (Message, error) {
	h, err := readHeader(r)
	if err != nil {
		return Message{}, err
	}

	payload := make([]byte, h.length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, fmt.Errorf("read payload: %w", err)
	}

	unmask(payload, h.mask)

	if h.opcode == byte(TextMessage) {
		return NewTextMessage(payload), nil
	}
	return NewBinaryMessage(payload), nil
}

// AppendMessage appends one complete unmasked server frame for m to dst
// and returns the extended buffer: fin bit set, the message opcode, the
// smallest applicable length representation, then the payload verbatim.
// Server-to-client frames carry no mask key (RFC 6455 Section 5.3).
func AppendMessage(dst []byte, m Message) []byte {
	n := uint64(len(m.Payload))

	dst = append(dst, finBit|m.opcode())

	switch {
	case n <= payloadLen7Max:
		dst = append(dst, byte(n))
	case n <= 0xFFFF:
		dst = append(dst, payloadLen16Ext)
		dst = binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, payloadLen64Ext)
		dst = binary.BigEndian.AppendUint64(dst, n)
	}

	return append(dst, m.Payload...)
}

// EncodeMessage returns one complete server frame for m in a fresh
// buffer. Pure data transformation; it has no failure modes.
func EncodeMessage(m Message) []byte {
	return AppendMessage(make([]byte, 0, 10+len(m.Payload)), m)
}

// WriteMessage encodes m and writes the frame to w, flushing so the
// peer sees the response without a buffering delay.
func WriteMessage(w *bufio.Writer, m Message) error {
	if _, err := w.Write(EncodeMessage(m)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return w.Flush()
}

// unmask XORs payload byte i with key[i mod 4], in place, preserving
// order. XOR is its own inverse, so the same routine both masks and
// unmasks.
func unmask(payload []byte, key [4]byte) {
	for i := range payload {
		payload[i] ^= key[i%4]
	}
}
