// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the long-lived publish/subscribe connection to
// the telemetry backend.
//
// Two adapters implement Transport: STOMP 1.2 over WebSocket (the backend's
// native endpoint) and MQTT (for deployments that bridge telemetry to an
// MQTT broker). Both reconnect on their own after any unsolicited close, at a
// fixed delay, until Close is called.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"
)

// Default connection parameters.
const (
	DefaultReconnectDelay   = 5 * time.Second
	DefaultHeartbeat        = 4 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

var (
	// ErrNotConnected is returned when publishing or subscribing without a
	// live connection.
	ErrNotConnected = errors.New("transport not connected")

	// ErrAlreadyOpen is returned by a second call to Open.
	ErrAlreadyOpen = errors.New("transport already open")

	// ErrClosed is returned when opening a transport that was closed.
	ErrClosed = errors.New("transport closed")
)

// Message is one inbound message on a subscribed topic.
type Message struct {
	Topic   string
	Headers map[string]string
	Body    []byte
}

// Handler receives messages for one subscription. Handlers run on the
// adapter's reader goroutine, one message at a time.
type Handler func(Message)

// Subscription is an active topic subscription. A subscription belongs to a
// single connection and lapses when that connection closes.
type Subscription interface {
	Topic() string
	Unsubscribe() error
}

// Handlers are the lifecycle callbacks of a transport. Any of them may be nil.
//
// OnConnecting is raised at the start of every connection attempt. OnConnect
// is raised once the broker accepted the connection; subscriptions must be
// (re)issued from it. OnDisconnect is raised on an orderly close, OnError on
// any failure (dial, protocol error, heart-beat timeout, dropped socket).
// Every failure is followed by another attempt after the reconnect delay.
type Handlers struct {
	OnConnecting func()
	OnConnect    func()
	OnDisconnect func()
	OnError      func(err error)
}

func (h Handlers) connecting() {
	if h.OnConnecting != nil {
		h.OnConnecting()
	}
}

func (h Handlers) connected() {
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

func (h Handlers) disconnected() {
	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

func (h Handlers) failed(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Transport is a self-healing publish/subscribe connection.
type Transport interface {
	// Open starts the background connection task and returns immediately.
	Open(ctx context.Context, h Handlers) error
	// Close stops the connection task, disconnects, and waits for the task
	// to exit. It is safe to call more than once.
	Close() error
	// Subscribe registers h for messages on topic on the current connection.
	Subscribe(topic string, h Handler) (Subscription, error)
	// Publish sends body to destination, at most once.
	Publish(destination string, body []byte, headers map[string]string) error
	// Connected reports whether the broker connection is currently up.
	Connected() bool
	// Describe returns a human readable description of the endpoint.
	Describe() string
}

// Options configures a transport.
type Options struct {
	ReconnectDelay     time.Duration
	Heartbeat          time.Duration
	HandshakeTimeout   time.Duration
	InsecureSkipVerify bool
	Logger             *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.Heartbeat < 0 {
		o.Heartbeat = 0
	} else if o.Heartbeat == 0 {
		o.Heartbeat = DefaultHeartbeat
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// New returns the adapter for rawURL's scheme: ws, wss, http and https select
// STOMP over WebSocket; tcp, ssl, mqtt and mqtts select MQTT.
func New(rawURL string, opts Options) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid transport URL %q: missing host", rawURL)
	}

	switch u.Scheme {
	case "ws", "wss", "http", "https":
		return NewStomp(rawURL, opts)
	case "tcp", "ssl", "tls", "mqtt", "mqtts":
		return NewMQTT(rawURL, opts)
	default:
		return nil, fmt.Errorf("unsupported transport URL scheme: %q (use ws://, wss://, tcp:// or ssl://)", u.Scheme)
	}
}
