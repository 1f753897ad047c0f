// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wirebound/wsecho/pkg/handler"
)

// mockHandler records callback invocations and returns the configured
// errors, mirroring the handler wrappers the production binary layers
// on top of the base handler.
type mockHandler struct {
	authErr    error
	connectErr error
	messageErr error

	authCalls       int
	connectCalls    int
	messageCalls    int
	disconnectCalls int

	lastType    handler.MessageType
	lastPayload []byte
	rewrite     []byte // when set, OnMessage replaces the payload
}

var _ handler.Handler = (*mockHandler)(nil)

func (m *mockHandler) AuthConnect(ctx context.Context, hctx *handler.Context) error {
	m.authCalls++
	return m.authErr
}

func (m *mockHandler) OnConnect(ctx context.Context, hctx *handler.Context) error {
	m.connectCalls++
	return m.connectErr
}

func (m *mockHandler) OnMessage(ctx context.Context, hctx *handler.Context, msgType handler.MessageType, payload *[]byte) error {
	m.messageCalls++
	m.lastType = msgType
	m.lastPayload = append([]byte(nil), *payload...)
	if m.messageErr != nil {
		return m.messageErr
	}
	if m.rewrite != nil {
		*payload = m.rewrite
	}
	return nil
}

func (m *mockHandler) OnDisconnect(ctx context.Context, hctx *handler.Context) error {
	m.disconnectCalls++
	return nil
}

func newTestContext() *handler.Context {
	return &handler.Context{SessionID: "test-session", RemoteAddr: "127.0.0.1:54321"}
}

func TestParserUpgrade(t *testing.T) {
	request := upgradeRequest(
		"Host: example.com",
		"Upgrade: websocket",
		"Sec-WebSocket-Key: "+sampleKey,
	)

	var out bytes.Buffer
	h := &mockHandler{}
	hctx := newTestContext()

	p := NewParser(nil)
	err := p.Upgrade(context.Background(), bufio.NewReader(strings.NewReader(request)), bufio.NewWriter(&out), h, hctx)
	if err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}

	if h.authCalls != 1 || h.connectCalls != 1 {
		t.Errorf("auth calls = %d, connect calls = %d, want 1 and 1", h.authCalls, h.connectCalls)
	}
	if hctx.Protocol != "websocket" {
		t.Errorf("Protocol = %q", hctx.Protocol)
	}
	if hctx.Header["host"] != "example.com" {
		t.Errorf("Header[host] = %q", hctx.Header["host"])
	}
	if !strings.Contains(out.String(), "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=") {
		t.Errorf("response missing accept key: %q", out.String())
	}
}

func TestParserUpgradeAuthRejected(t *testing.T) {
	request := upgradeRequest("Sec-WebSocket-Key: " + sampleKey)

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	authErr := errors.New("unauthorized")
	h := &mockHandler{authErr: authErr}

	p := NewParser(nil)
	err := p.Upgrade(context.Background(), bufio.NewReader(strings.NewReader(request)), w, h, newTestContext())
	if !errors.Is(err, authErr) {
		t.Fatalf("err = %v, want wrapped %v", err, authErr)
	}

	// Refused upgrades must not leak a partial response.
	w.Flush()
	if out.Len() != 0 {
		t.Errorf("rejected upgrade wrote %d bytes", out.Len())
	}
	if h.connectCalls != 0 {
		t.Errorf("OnConnect called %d times after auth rejection", h.connectCalls)
	}
}

func TestParserUpgradeMissingKeySkipsAuth(t *testing.T) {
	request := upgradeRequest("Host: example.com")

	var out bytes.Buffer
	h := &mockHandler{}

	p := NewParser(nil)
	err := p.Upgrade(context.Background(), bufio.NewReader(strings.NewReader(request)), bufio.NewWriter(&out), h, newTestContext())
	if !errors.Is(err, ErrMissingSecKey) {
		t.Fatalf("err = %v, want ErrMissingSecKey", err)
	}
	if h.authCalls != 0 {
		t.Errorf("AuthConnect called %d times on malformed request", h.authCalls)
	}
}

func TestParserEcho(t *testing.T) {
	mask := [4]byte{0x37, 0xFA, 0x21, 0x3D}
	frame := clientFrame(byte(TextMessage), mask, []byte("hello"))

	var out bytes.Buffer
	h := &mockHandler{}

	p := NewParser(nil)
	err := p.Parse(context.Background(), reader(frame), bufio.NewWriter(&out), h, newTestContext())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// The echo is an unmasked text frame carrying the decoded payload.
	want := []byte{finBit | byte(TextMessage), 5, 'h', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("echo frame = %v, want %v", out.Bytes(), want)
	}

	if h.messageCalls != 1 {
		t.Errorf("OnMessage calls = %d, want 1", h.messageCalls)
	}
	if h.lastType != handler.MessageText {
		t.Errorf("message type = %q, want %q", h.lastType, handler.MessageText)
	}
	if string(h.lastPayload) != "hello" {
		t.Errorf("payload seen by handler = %q", h.lastPayload)
	}
}

func TestParserEchoBinary(t *testing.T) {
	mask := [4]byte{0x01, 0x02, 0x03, 0x04}
	payload := []byte{0x00, 0xFF, 0x7F}
	frame := clientFrame(byte(BinaryMessage), mask, payload)

	var out bytes.Buffer
	h := &mockHandler{}

	p := NewParser(nil)
	if err := p.Parse(context.Background(), reader(frame), bufio.NewWriter(&out), h, newTestContext()); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := append([]byte{finBit | byte(BinaryMessage), 3}, payload...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("echo frame = %v, want %v", out.Bytes(), want)
	}
	if h.lastType != handler.MessageBinary {
		t.Errorf("message type = %q, want %q", h.lastType, handler.MessageBinary)
	}
}

func TestParserHandlerRewritesPayload(t *testing.T) {
	mask := [4]byte{0x0A, 0x0B, 0x0C, 0x0D}
	frame := clientFrame(byte(TextMessage), mask, []byte("original"))

	var out bytes.Buffer
	h := &mockHandler{rewrite: []byte("rewritten")}

	p := NewParser(nil)
	if err := p.Parse(context.Background(), reader(frame), bufio.NewWriter(&out), h, newTestContext()); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := append([]byte{finBit | byte(TextMessage), 9}, []byte("rewritten")...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("echo frame = %v, want %v", out.Bytes(), want)
	}
}

func TestParserHandlerRejectsMessage(t *testing.T) {
	mask := [4]byte{0x0A, 0x0B, 0x0C, 0x0D}
	frame := clientFrame(byte(TextMessage), mask, []byte("blocked"))

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	rejectErr := errors.New("rate limited")
	h := &mockHandler{messageErr: rejectErr}

	p := NewParser(nil)
	err := p.Parse(context.Background(), reader(frame), w, h, newTestContext())
	if !errors.Is(err, rejectErr) {
		t.Fatalf("err = %v, want wrapped %v", err, rejectErr)
	}

	w.Flush()
	if out.Len() != 0 {
		t.Errorf("rejected message produced a %d-byte response", out.Len())
	}
}

func TestParserLockstepSequence(t *testing.T) {
	mask := [4]byte{0x11, 0x22, 0x33, 0x44}
	var in bytes.Buffer
	in.Write(clientFrame(byte(TextMessage), mask, []byte("one")))
	in.Write(clientFrame(byte(BinaryMessage), mask, []byte("two!")))
	in.Write(clientFrame(byte(TextMessage), mask, []byte("three")))

	var out bytes.Buffer
	r := bufio.NewReader(&in)
	w := bufio.NewWriter(&out)
	h := &mockHandler{}
	hctx := newTestContext()

	p := NewParser(nil)
	for i := 0; i < 3; i++ {
		if err := p.Parse(context.Background(), r, w, h, hctx); err != nil {
			t.Fatalf("Parse %d failed: %v", i, err)
		}
	}

	var want []byte
	want = AppendMessage(want, NewTextMessage([]byte("one")))
	want = AppendMessage(want, NewBinaryMessage([]byte("two!")))
	want = AppendMessage(want, NewTextMessage([]byte("three")))
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("echoed stream = %v, want %v", out.Bytes(), want)
	}
	if h.messageCalls != 3 {
		t.Errorf("OnMessage calls = %d, want 3", h.messageCalls)
	}
}
