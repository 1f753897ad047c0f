// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package websocket implements the server side of the WebSocket wire
// protocol (RFC 6455): the opening handshake and the frame codec.
//
// # Architecture Overview
//
// The package has three layers, consumed bottom to top:
//
//   - Message: the value type exchanged between the codec and business
//     logic. Exactly two variants exist, text (opcode 0x1) and binary
//     (opcode 0x2). Control and continuation opcodes are not modeled.
//   - Frame codec: ReadMessage decodes one inbound frame (unmasking the
//     payload) into a Message; AppendMessage/WriteMessage encode a Message
//     into one unmasked outbound frame.
//   - Parser: the per-connection driver plugged into pkg/server/tcp. It
//     performs the upgrade handshake once, then runs the echo loop,
//     reading one message and writing it straight back until the stream
//     ends or a protocol violation occurs.
//
// # Handshake
//
// The handshake operates on raw CR-LF terminated lines rather than
// net/http machinery: the request line is read and discarded, header
// lines are collected until the empty line, and the response is the fixed
// 101 Switching Protocols block carrying Sec-WebSocket-Accept computed as
//
//	base64(sha1(client-key + "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"))
//
// A request without Sec-WebSocket-Key is rejected before any response
// byte is written.
//
// # Framing
//
// One frame carries exactly one message; fragmentation, control frames,
// extensions, and subprotocol negotiation are out of scope. Inbound
// frames must be masked (client-to-server rule in RFC 6455 Section 5.3),
// outbound frames never are. Length uses the smallest of the 7-bit,
// 16-bit, and 64-bit big-endian representations.
//
// # Error Handling
//
// All failures are terminal for the current connection only. Decode
// distinguishes a missing mask bit (ErrMaskRequired) from short reads,
// which are wrapped with the read stage that truncated. The server closes
// the connection and keeps accepting others.
package websocket
