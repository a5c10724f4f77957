// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewSelectsAdapter(t *testing.T) {
	tests := []struct {
		url      string
		wantType string
		wantDesc string
	}{
		{"ws://localhost:8080/ws", "stomp", "STOMP: ws://localhost:8080/ws"},
		{"wss://example.com/ws", "stomp", "STOMP: wss://example.com/ws"},
		{"http://localhost:8080/ws", "stomp", "STOMP: ws://localhost:8080/ws"},
		{"https://example.com/ws", "stomp", "STOMP: wss://example.com/ws"},
		{"tcp://localhost:1883", "mqtt", "MQTT: tcp://localhost:1883"},
		{"mqtt://localhost:1883", "mqtt", "MQTT: tcp://localhost:1883"},
		{"ssl://broker:8883", "mqtt", "MQTT: ssl://broker:8883"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			tr, err := New(tt.url, Options{})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			switch tr.(type) {
			case *StompTransport:
				if tt.wantType != "stomp" {
					t.Errorf("New() = %T, want %s", tr, tt.wantType)
				}
			case *MQTTTransport:
				if tt.wantType != "mqtt" {
					t.Errorf("New() = %T, want %s", tr, tt.wantType)
				}
			}
			if got := tr.Describe(); got != tt.wantDesc {
				t.Errorf("Describe() = %q, want %q", got, tt.wantDesc)
			}
		})
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host/x", "ws://", "://nope"} {
		if _, err := New(u, Options{}); err == nil {
			t.Errorf("New(%q) expected error", u)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.ReconnectDelay != 5*time.Second {
		t.Errorf("ReconnectDelay = %v, want 5s", o.ReconnectDelay)
	}
	if o.Heartbeat != 4*time.Second {
		t.Errorf("Heartbeat = %v, want 4s", o.Heartbeat)
	}
	if o.Logger == nil {
		t.Error("Logger is nil")
	}

	if got := (Options{Heartbeat: -1}).withDefaults().Heartbeat; got != 0 {
		t.Errorf("negative Heartbeat = %v, want disabled", got)
	}
}

func TestMQTTTopic(t *testing.T) {
	if got := MQTTTopic("/topic/temperature"); got != "topic/temperature" {
		t.Errorf("MQTTTopic() = %q", got)
	}
	if got := MQTTTopic("app/device/command"); got != "app/device/command" {
		t.Errorf("MQTTTopic() = %q", got)
	}
}

func TestMQTTNotConnected(t *testing.T) {
	tr, err := NewMQTT("tcp://127.0.0.1:1", Options{})
	if err != nil {
		t.Fatalf("NewMQTT() error = %v", err)
	}
	if !strings.HasPrefix(tr.clientID, "anemostat-") {
		t.Errorf("clientID = %q, want anemostat- prefix", tr.clientID)
	}
	if tr.Connected() {
		t.Error("Connected() = true before Open")
	}
	if err := tr.Publish("/app/device/command", []byte("{}"), nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if _, err := tr.Subscribe("/topic/temperature", func(Message) {}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMQTTInitialConnectFailureRaisesError(t *testing.T) {
	// Reserve a port, then free it so every dial is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tr, err := NewMQTT("tcp://"+addr, Options{ReconnectDelay: 20 * time.Millisecond, HandshakeTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewMQTT() error = %v", err)
	}

	var connecting atomic.Int32
	failures := make(chan error, 16)
	err = tr.Open(context.Background(), Handlers{
		OnConnecting: func() { connecting.Add(1) },
		OnError: func(err error) {
			select {
			case failures <- err:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tr.Close()

	for i := 1; i <= 2; i++ {
		select {
		case err := <-failures:
			if err == nil {
				t.Fatalf("OnError(nil) on attempt %d", i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no OnError for failed attempt %d", i)
		}
	}
	if n := connecting.Load(); n < 2 {
		t.Errorf("OnConnecting raised %d times, want at least 2", n)
	}
	if tr.Connected() {
		t.Error("Connected() = true without a broker")
	}
}
