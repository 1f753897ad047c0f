// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"bytes"

	"github.com/wirebound/wsecho/pkg/handler"
)

// MessageType identifies the payload interpretation of a Message.
//
// The values double as the WebSocket opcodes (RFC 6455 Section 5.2):
// text is 0x1, binary is 0x2. No other opcodes are representable.
type MessageType byte

const (
	// TextMessage is a UTF-8 text message (opcode 0x1).
	TextMessage MessageType = 1

	// BinaryMessage is an arbitrary binary message (opcode 0x2).
	BinaryMessage MessageType = 2
)

// String returns a string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// handlerType maps a MessageType to the transport-agnostic event type
// passed to handler callbacks.
func (t MessageType) handlerType() handler.MessageType {
	if t == TextMessage {
		return handler.MessageText
	}
	return handler.MessageBinary
}

// replacement is the UTF-8 encoding of U+FFFD.
var replacement = []byte("�")

// Message is one application message, constructed fresh per decode and
// consumed fully by one encode. Instances carry no codec state and do
// not persist beyond a single round trip.
type Message struct {
	// Type selects the opcode used on the wire.
	Type MessageType

	// Payload is the message body. For text messages it is valid UTF-8;
	// for binary messages it is raw bytes with no content invariant.
	Payload []byte
}

// NewTextMessage builds a text message from raw payload bytes.
// Invalid UTF-8 sequences are replaced with U+FFFD, never rejected,
// matching the lossy decoding applied to inbound text frames.
func NewTextMessage(payload []byte) Message {
	return Message{Type: TextMessage, Payload: bytes.ToValidUTF8(payload, replacement)}
}

// NewBinaryMessage builds a binary message carrying payload verbatim.
func NewBinaryMessage(payload []byte) Message {
	return Message{Type: BinaryMessage, Payload: payload}
}

// Text returns the payload as a string. Meaningful for text messages;
// for binary messages it is simply the raw bytes reinterpreted.
func (m Message) Text() string {
	return string(m.Payload)
}

// opcode returns the wire opcode for the message.
func (m Message) opcode() byte {
	return byte(m.Type)
}
