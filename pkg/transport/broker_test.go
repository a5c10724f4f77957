// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

// testBroker is a minimal in-process STOMP-over-WebSocket broker.
type testBroker struct {
	t      *testing.T
	server *httptest.Server

	// connectReply overrides the CONNECTED frame; nil means accept.
	connectReply func() *frame.Frame

	mu       sync.Mutex
	conns    []*brokerConn
	accepted int
	frames   chan *frame.Frame
}

type brokerConn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	subs map[string]string // id -> destination
}

func newTestBroker(t *testing.T) *testBroker {
	t.Helper()
	b := &testBroker{t: t, frames: make(chan *frame.Frame, 64)}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *testBroker) URL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *testBroker) serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &brokerConn{ws: ws, subs: make(map[string]string)}
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		f, err := decodeFrame(data)
		if err != nil || f == nil {
			continue
		}

		switch f.Command {
		case cmdConnect:
			reply := frame.New(cmdConnected, hdrVersion, stompVersion, hdrHeartBeat, "0,0")
			if b.connectReply != nil {
				reply = b.connectReply()
			}
			c.write(reply)
			if reply.Command != cmdConnected {
				return
			}
			b.mu.Lock()
			b.conns = append(b.conns, c)
			b.accepted++
			b.mu.Unlock()
		case cmdSubscribe:
			c.mu.Lock()
			c.subs[f.Header.Get(hdrID)] = f.Header.Get(hdrDestination)
			c.mu.Unlock()
		case cmdUnsubscribe:
			c.mu.Lock()
			delete(c.subs, f.Header.Get(hdrID))
			c.mu.Unlock()
		}

		select {
		case b.frames <- f:
		default:
		}
	}
}

func (c *brokerConn) write(f *frame.Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, data)
}

// Send delivers body to every subscriber of destination and returns how many
// subscriptions matched.
func (b *testBroker) Send(destination, body string) int {
	b.mu.Lock()
	conns := append([]*brokerConn(nil), b.conns...)
	b.mu.Unlock()

	n := 0
	for _, c := range conns {
		c.mu.Lock()
		var ids []string
		for id, dest := range c.subs {
			if dest == destination {
				ids = append(ids, id)
			}
		}
		c.mu.Unlock()

		for _, id := range ids {
			f := frame.New(cmdMessage,
				hdrDestination, destination,
				hdrSubscription, id,
				hdrContentType, "application/json",
			)
			f.Body = []byte(body)
			c.write(f)
			n++
		}
	}
	return n
}

// DropAll closes every accepted connection without a STOMP goodbye.
func (b *testBroker) DropAll() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close()
	}
}

func (b *testBroker) Accepted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepted
}

// waitFrame returns the next inbound frame with the given command.
func (b *testBroker) waitFrame(command string) *frame.Frame {
	b.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-b.frames:
			if f.Command == command {
				return f
			}
		case <-deadline:
			b.t.Fatalf("timed out waiting for %s frame", command)
			return nil
		}
	}
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
