// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"bufio"
	"crypto/sha1" // #nosec G505 - SHA-1 mandated by RFC 6455 Section 1.3
	"encoding/base64"
	"fmt"
	"strings"
)

// websocketGUID is the fixed magic GUID from RFC 6455 Section 1.3,
// appended to the client key when computing Sec-WebSocket-Accept.
// Compliant clients reject any other constant or concatenation order.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// secWebSocketKey is the lower-cased name of the required client header.
const secWebSocketKey = "sec-websocket-key"

// readUpgrade consumes one upgrade request from r: the request line
// (discarded, not validated) followed by header lines up to the empty
// line. It returns the header map keyed by lower-cased name and the
// client key.
//
// Header lines are split on the first ':'; the value is trimmed of
// leading whitespace. A line without ':' is silently skipped. Duplicate
// headers overwrite earlier values; only lookup is performed, so order
// does not matter. A request without Sec-WebSocket-Key yields
// ErrMissingSecKey with nothing written to the peer.
func readUpgrade(r *bufio.Reader) (headers map[string]string, key string, err error) {
	if _, err := r.ReadString('\n'); err != nil {
		return nil, "", fmt.Errorf("read request line: %w", err)
	}

	headers = make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, "", fmt.Errorf("read header line: %w", err)
		}

		line = trimLineEnding(line)
		if line == "" {
			break
		}

		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(k)] = strings.TrimLeft(v, " \t")
	}

	key, ok := headers[secWebSocketKey]
	if !ok {
		return nil, "", ErrMissingSecKey
	}

	return headers, key, nil
}

// writeUpgradeResponse emits the fixed 101 Switching Protocols block for
// the given client key and flushes it so the peer can proceed without a
// buffering delay.
func writeUpgradeResponse(w *bufio.Writer, key string) error {
	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey(key) + "\r\n\r\n"

	if _, err := w.WriteString(response); err != nil {
		return fmt.Errorf("write handshake response: %w", err)
	}
	return w.Flush()
}

// Upgrade performs the complete server-side opening handshake on a raw
// line-oriented stream: it parses the upgrade request and, if the client
// key is present, writes the acceptance response. The returned map holds
// the request headers keyed by lower-cased name.
func Upgrade(r *bufio.Reader, w *bufio.Writer) (map[string]string, error) {
	headers, key, err := readUpgrade(r)
	if err != nil {
		return nil, err
	}
	if err := writeUpgradeResponse(w, key); err != nil {
		return nil, err
	}
	return headers, nil
}

// acceptKey computes Sec-WebSocket-Accept per RFC 6455 Section 1.3:
// base64(sha1(key + GUID)).
//
//	acceptKey("dGhlIHNhbXBsZSBub25jZQ==") == "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
func acceptKey(key string) string {
	h := sha1.New() // #nosec G401 - not used for cryptographic security
	h.Write([]byte(key))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// trimLineEnding strips a trailing CR LF, or a bare LF, from a header
// line. Stripping is bounds-checked rather than a fixed two-byte
// truncation so a malformed short line cannot underflow.
func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
