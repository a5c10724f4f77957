// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

// recorder collects lifecycle callbacks.
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error

	connects atomic.Int32
	onConn   func()
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnConnecting: func() { r.add("connecting") },
		OnConnect: func() {
			r.add("connect")
			r.connects.Add(1)
			if r.onConn != nil {
				r.onConn()
			}
		},
		OnDisconnect: func() { r.add("disconnect") },
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
	}
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(ev string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

func (r *recorder) lastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}

func testOptions() Options {
	return Options{
		ReconnectDelay:   20 * time.Millisecond,
		Heartbeat:        -1,
		HandshakeTimeout: time.Second,
	}
}

func openStomp(t *testing.T, b *testBroker, opts Options, r *recorder) *StompTransport {
	t.Helper()
	tr, err := NewStomp(b.URL(), opts)
	if err != nil {
		t.Fatalf("NewStomp() error = %v", err)
	}
	if err := tr.Open(context.Background(), r.handlers()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestStompConnectAndReceive(t *testing.T) {
	b := newTestBroker(t)
	r := &recorder{}
	tr := openStomp(t, b, testOptions(), r)

	eventually(t, "connect", tr.Connected)

	connect := b.waitFrame(cmdConnect)
	if got := connect.Header.Get(hdrAcceptVersion); got != "1.2" {
		t.Errorf("accept-version = %q, want %q", got, "1.2")
	}
	if got := connect.Header.Get(hdrHost); got != "127.0.0.1" {
		t.Errorf("host = %q, want %q", got, "127.0.0.1")
	}

	received := make(chan Message, 1)
	sub, err := tr.Subscribe("/topic/temperature", func(m Message) { received <- m })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.Topic() != "/topic/temperature" {
		t.Errorf("Topic() = %q", sub.Topic())
	}

	f := b.waitFrame(cmdSubscribe)
	if got := f.Header.Get(hdrDestination); got != "/topic/temperature" {
		t.Errorf("SUBSCRIBE destination = %q", got)
	}
	if got := f.Header.Get(hdrID); got != "sub-1" {
		t.Errorf("SUBSCRIBE id = %q, want sub-1", got)
	}

	if n := b.Send("/topic/temperature", `{"value":21.5}`); n != 1 {
		t.Fatalf("broker delivered to %d subscriptions, want 1", n)
	}

	select {
	case m := <-received:
		if m.Topic != "/topic/temperature" {
			t.Errorf("Topic = %q", m.Topic)
		}
		if string(m.Body) != `{"value":21.5}` {
			t.Errorf("Body = %q", m.Body)
		}
		if m.Headers[hdrContentType] != "application/json" {
			t.Errorf("content-type header = %q", m.Headers[hdrContentType])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if got := b.waitFrame(cmdUnsubscribe).Header.Get(hdrID); got != "sub-1" {
		t.Errorf("UNSUBSCRIBE id = %q, want sub-1", got)
	}

	if r.count("connecting") < 1 || r.count("connect") != 1 {
		t.Errorf("events = %v, want connecting then connect", r.events)
	}
}

func TestStompPublishFraming(t *testing.T) {
	b := newTestBroker(t)
	tr := openStomp(t, b, testOptions(), &recorder{})
	eventually(t, "connect", tr.Connected)

	body := []byte(`{"action":"TURN_ON_BLOWER"}`)
	err := tr.Publish("/app/device/command", body, map[string]string{"content-type": "application/json"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	f := b.waitFrame(cmdSend)
	if got := f.Header.Get(hdrDestination); got != "/app/device/command" {
		t.Errorf("destination = %q", got)
	}
	if got := f.Header.Get(hdrContentType); got != "application/json" {
		t.Errorf("content-type = %q", got)
	}
	if string(f.Body) != string(body) {
		t.Errorf("body = %q, want %q", f.Body, body)
	}
}

func TestStompPublishNotConnected(t *testing.T) {
	tr, err := NewStomp("ws://127.0.0.1:1/ws", testOptions())
	if err != nil {
		t.Fatalf("NewStomp() error = %v", err)
	}
	if err := tr.Publish("/app/device/command", nil, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if _, err := tr.Subscribe("/topic/temperature", func(Message) {}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestStompReconnectAfterDrop(t *testing.T) {
	b := newTestBroker(t)
	r := &recorder{}
	tr := openStomp(t, b, testOptions(), r)
	eventually(t, "first connect", func() bool { return r.connects.Load() == 1 })

	sub, err := tr.Subscribe("/topic/temperature", func(Message) {})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	b.DropAll()

	eventually(t, "error", func() bool { return r.count("error") >= 1 })
	eventually(t, "reconnect", func() bool { return r.connects.Load() == 2 })

	if got := b.Accepted(); got != 2 {
		t.Errorf("broker accepted %d connections, want 2", got)
	}

	// The old subscription died with its connection.
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("Unsubscribe() on lapsed subscription error = %v", err)
	}
	if n := b.Send("/topic/temperature", "{}"); n != 0 {
		t.Errorf("lapsed subscription still registered at broker (%d)", n)
	}

	// A fresh subscription on the new connection gets a new id.
	if _, err := tr.Subscribe("/topic/temperature", func(Message) {}); err != nil {
		t.Fatalf("Subscribe() after reconnect error = %v", err)
	}
	f := b.waitFrame(cmdSubscribe)
	for f.Header.Get(hdrID) == "sub-1" {
		f = b.waitFrame(cmdSubscribe)
	}
	if got := f.Header.Get(hdrID); got != "sub-2" {
		t.Errorf("SUBSCRIBE id after reconnect = %q, want sub-2", got)
	}
}

func TestStompNoReconnectAfterClose(t *testing.T) {
	b := newTestBroker(t)
	r := &recorder{}
	tr := openStomp(t, b, testOptions(), r)
	eventually(t, "connect", tr.Connected)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	b.waitFrame(cmdDisconnect)

	if tr.Connected() {
		t.Error("Connected() = true after Close")
	}
	if err := tr.Publish("/app/device/command", nil, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := tr.Open(context.Background(), Handlers{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after Close error = %v, want ErrClosed", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := b.Accepted(); got != 1 {
		t.Errorf("broker accepted %d connections after Close, want 1", got)
	}
	if got := r.count("error"); got != 0 {
		t.Errorf("OnError raised %d times for an orderly close", got)
	}
}

func TestStompOpenTwice(t *testing.T) {
	b := newTestBroker(t)
	tr := openStomp(t, b, testOptions(), &recorder{})
	if err := tr.Open(context.Background(), Handlers{}); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open() error = %v, want ErrAlreadyOpen", err)
	}
}

func TestStompErrorFrame(t *testing.T) {
	b := newTestBroker(t)
	b.connectReply = func() *frame.Frame {
		f := frame.New(cmdError, hdrMessage, "Bad CONNECT")
		f.Body = []byte("rejected")
		return f
	}
	r := &recorder{}
	openStomp(t, b, testOptions(), r)

	eventually(t, "error", func() bool { return r.count("error") >= 2 })

	var ef *ErrorFrame
	if !errors.As(r.lastError(), &ef) {
		t.Fatalf("error = %v, want *ErrorFrame", r.lastError())
	}
	if ef.Message != "Bad CONNECT" || ef.Body != "rejected" {
		t.Errorf("ErrorFrame = %+v", ef)
	}
	if r.connects.Load() != 0 {
		t.Errorf("OnConnect raised %d times for a rejected CONNECT", r.connects.Load())
	}
}

func TestStompHeartbeatTimeout(t *testing.T) {
	b := newTestBroker(t)
	b.connectReply = func() *frame.Frame {
		// Promise heart-beats and never send them.
		return frame.New(cmdConnected, hdrVersion, stompVersion, hdrHeartBeat, "30,30")
	}
	r := &recorder{}
	opts := testOptions()
	opts.Heartbeat = 30 * time.Millisecond
	openStomp(t, b, opts, r)

	eventually(t, "heart-beat failure", func() bool { return r.count("error") >= 1 })
	if err := r.lastError(); err == nil {
		t.Fatal("no error recorded")
	}
	eventually(t, "reconnect", func() bool { return r.connects.Load() >= 2 })
}

func TestStompSubscribeFromOnConnect(t *testing.T) {
	b := newTestBroker(t)
	r := &recorder{}
	var tr *StompTransport
	received := make(chan struct{}, 4)
	r.onConn = func() {
		if _, err := tr.Subscribe("/topic/device/status", func(Message) { received <- struct{}{} }); err != nil {
			t.Errorf("Subscribe() in OnConnect error = %v", err)
		}
	}

	var err error
	tr, err = NewStomp(b.URL(), testOptions())
	if err != nil {
		t.Fatalf("NewStomp() error = %v", err)
	}
	if err := tr.Open(context.Background(), r.handlers()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tr.Close()

	for round := 1; round <= 2; round++ {
		eventually(t, "subscription", func() bool { return b.Send("/topic/device/status", `{}`) > 0 })
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: message not delivered", round)
		}
		b.DropAll()
	}
}
