// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

// StompTransport speaks STOMP 1.2 over a WebSocket, one frame per text
// message.
type StompTransport struct {
	url  string
	host string
	opts Options
	log  *slog.Logger

	dialer websocket.Dialer

	mu        sync.Mutex
	handlers  Handlers
	conn      *websocket.Conn
	connected bool
	gen       uint64 // incremented per established connection
	subs      map[string]*stompSubscription
	nextSubID int
	opened    bool
	closed    bool
	cancel    context.CancelFunc

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

var _ Transport = (*StompTransport)(nil)

// NewStomp returns a STOMP adapter for a ws, wss, http or https URL. HTTP
// URLs are rewritten to their WebSocket equivalent.
func NewStomp(rawURL string, opts Options) (*StompTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	opts = opts.withDefaults()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
		Subprotocols:     []string{"v12.stomp"},
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}
	}

	return &StompTransport{
		url:    u.String(),
		host:   u.Hostname(),
		opts:   opts,
		log:    opts.Logger.With("transport", "stomp", "url", u.Redacted()),
		dialer: dialer,
		subs:   make(map[string]*stompSubscription),
	}, nil
}

// Describe returns the WebSocket endpoint.
func (t *StompTransport) Describe() string {
	return fmt.Sprintf("STOMP: %s", t.url)
}

// Open starts the connection task.
func (t *StompTransport) Open(ctx context.Context, h Handlers) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.opened {
		return ErrAlreadyOpen
	}
	t.opened = true
	t.handlers = h

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.run(ctx)
	return nil
}

// Close disconnects and stops reconnecting.
func (t *StompTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn, connected, cancel := t.conn, t.connected, t.cancel
	t.mu.Unlock()

	if conn != nil && connected {
		if err := t.writeFrame(conn, disconnectFrame()); err != nil {
			t.log.Debug("disconnect frame not sent", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	t.wg.Wait()
	return nil
}

// Connected reports whether a CONNECTED frame was received on the current
// socket.
func (t *StompTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Subscribe sends a SUBSCRIBE frame for topic.
func (t *StompTransport) Subscribe(topic string, h Handler) (Subscription, error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil, ErrNotConnected
	}
	t.nextSubID++
	sub := &stompSubscription{
		t:       t,
		id:      "sub-" + strconv.Itoa(t.nextSubID),
		topic:   topic,
		handler: h,
		gen:     t.gen,
	}
	t.subs[sub.id] = sub
	conn := t.conn
	t.mu.Unlock()

	if err := t.writeFrame(conn, subscribeFrame(sub.id, topic)); err != nil {
		t.mu.Lock()
		delete(t.subs, sub.id)
		t.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	t.log.Debug("subscribed", "topic", topic, "id", sub.id)
	return sub, nil
}

// Publish sends a SEND frame.
func (t *StompTransport) Publish(destination string, body []byte, headers map[string]string) error {
	t.mu.Lock()
	conn, connected := t.conn, t.connected
	t.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if err := t.writeFrame(conn, sendFrame(destination, body, headers)); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	return nil
}

func (t *StompTransport) writeFrame(conn *websocket.Conn, f *frame.Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return t.writeMessage(conn, data)
}

func (t *StompTransport) writeMessage(conn *websocket.Conn, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.opts.HandshakeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// run is the connection task: connect, serve until the socket dies, wait the
// reconnect delay, repeat until the context is cancelled.
func (t *StompTransport) run(ctx context.Context) {
	defer t.wg.Done()

	attempt := func() error {
		err := t.connectAndServe(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errors.New("connection closed by broker")
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		t.log.Info("connection lost, reconnecting", "error", err, "delay", wait)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(t.opts.ReconnectDelay), ctx)
	_ = backoff.RetryNotify(attempt, b, notify)
	t.log.Debug("connection task stopped")
}

// connectAndServe runs one connection from dial to close. A nil return means
// the broker closed the socket in an orderly way.
func (t *StompTransport) connectAndServe(ctx context.Context) error {
	h := t.getHandlers()
	h.connecting()

	conn, err := t.dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.failed(err)
		}
		return err
	}

	send, expect, err := t.handshake(conn)
	if err != nil {
		_ = conn.Close()
		t.clearConn(conn)
		if ctx.Err() == nil {
			h.failed(err)
		}
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	t.connected = true
	t.gen++
	t.mu.Unlock()

	t.log.Info("connected", "heartbeat_send", send, "heartbeat_expect", expect)
	h.connected()

	stopBeats := make(chan struct{})
	if send > 0 {
		go t.sendHeartbeats(conn, send, stopBeats)
	}

	err = t.readLoop(conn, expect)

	close(stopBeats)
	_ = conn.Close()
	t.clearConn(conn)

	if ctx.Err() != nil {
		h.disconnected()
		return nil
	}
	if err == nil {
		t.log.Info("disconnected by broker")
		h.disconnected()
		return nil
	}
	h.failed(err)
	return err
}

func (t *StompTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.opts.HandshakeTimeout+5*time.Second)
	defer cancel()

	conn, resp, err := t.dialer.DialContext(dialCtx, t.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	t.conn = conn
	t.mu.Unlock()
	return conn, nil
}

// handshake sends CONNECT and waits for CONNECTED, returning the negotiated
// heart-beat intervals.
func (t *StompTransport) handshake(conn *websocket.Conn) (send, expect time.Duration, err error) {
	if err := t.writeFrame(conn, connectFrame(t.host, t.opts.Heartbeat)); err != nil {
		return 0, 0, fmt.Errorf("send CONNECT: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(t.opts.HandshakeTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return 0, 0, fmt.Errorf("await CONNECTED: %w", err)
		}
		f, err := decodeFrame(data)
		if err != nil {
			return 0, 0, err
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case cmdConnected:
			if v := f.Header.Get(hdrVersion); v != "" && v != stompVersion {
				return 0, 0, fmt.Errorf("unsupported STOMP version %q", v)
			}
			serverOut, serverIn, err := parseHeartBeat(f.Header.Get(hdrHeartBeat))
			if err != nil {
				return 0, 0, err
			}
			send, expect = negotiateHeartBeat(t.opts.Heartbeat, t.opts.Heartbeat, serverOut, serverIn)
			_ = conn.SetReadDeadline(time.Time{})
			return send, expect, nil
		case cmdError:
			return 0, 0, errorFromFrame(f)
		default:
			return 0, 0, fmt.Errorf("unexpected %s frame before CONNECTED", f.Command)
		}
	}
}

// readLoop dispatches inbound frames until the socket fails. Silence longer
// than twice the expected heart-beat interval is a failure.
func (t *StompTransport) readLoop(conn *websocket.Conn, expect time.Duration) error {
	for {
		if expect > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * expect))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("heart-beat timeout after %v", 2*expect)
			}
			return err
		}

		f, err := decodeFrame(data)
		if err != nil {
			t.log.Warn("dropping malformed frame", "error", err)
			continue
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case cmdMessage:
			t.dispatch(f)
		case cmdError:
			return errorFromFrame(f)
		case cmdReceipt:
		default:
			t.log.Debug("ignoring frame", "command", f.Command)
		}
	}
}

func (t *StompTransport) dispatch(f *frame.Frame) {
	id := f.Header.Get(hdrSubscription)

	t.mu.Lock()
	sub, ok := t.subs[id]
	t.mu.Unlock()

	if !ok {
		t.log.Debug("message for unknown subscription", "subscription", id)
		return
	}

	headers := make(map[string]string, f.Header.Len())
	for i := 0; i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		if _, dup := headers[k]; !dup {
			headers[k] = v
		}
	}

	topic := f.Header.Get(hdrDestination)
	if topic == "" {
		topic = sub.topic
	}
	sub.handler(Message{Topic: topic, Headers: headers, Body: f.Body})
}

func (t *StompTransport) sendHeartbeats(conn *websocket.Conn, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := t.writeMessage(conn, heartbeatFrame); err != nil {
				t.log.Debug("heart-beat not sent", "error", err)
				return
			}
		}
	}
}

// clearConn forgets conn and every subscription made on it.
func (t *StompTransport) clearConn(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != conn {
		return
	}
	t.conn = nil
	t.connected = false
	clear(t.subs)
}

func (t *StompTransport) getHandlers() Handlers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers
}

type stompSubscription struct {
	t       *StompTransport
	id      string
	topic   string
	handler Handler
	gen     uint64
}

func (s *stompSubscription) Topic() string {
	return s.topic
}

// Unsubscribe sends UNSUBSCRIBE if the subscription's connection is still up.
func (s *stompSubscription) Unsubscribe() error {
	t := s.t
	t.mu.Lock()
	if _, ok := t.subs[s.id]; !ok || s.gen != t.gen || !t.connected {
		delete(t.subs, s.id)
		t.mu.Unlock()
		return nil
	}
	delete(t.subs, s.id)
	conn := t.conn
	t.mu.Unlock()

	if err := t.writeFrame(conn, unsubscribeFrame(s.id)); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", s.topic, err)
	}
	return nil
}
