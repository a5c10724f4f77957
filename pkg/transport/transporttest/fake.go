// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transporttest provides an in-memory transport.Transport whose
// lifecycle is driven by the test.
package transporttest

import (
	"context"
	"sync"

	"github.com/Thermoquad/anemostat/pkg/transport"
)

// Published is one recorded Publish call.
type Published struct {
	Destination string
	Body        []byte
	Headers     map[string]string
}

// Fake is a transport.Transport that never touches the network. Tests call
// Connect, Drop, Fail and Deliver to play the broker's part.
type Fake struct {
	mu         sync.Mutex
	handlers   transport.Handlers
	opened     int
	closed     int
	connected  bool
	subs       map[string][]*fakeSub
	published  []Published
	PublishErr error
}

var _ transport.Transport = (*Fake)(nil)

// New returns a closed fake.
func New() *Fake {
	return &Fake{subs: make(map[string][]*fakeSub)}
}

func (f *Fake) Describe() string { return "fake" }

func (f *Fake) Open(_ context.Context, h transport.Handlers) error {
	f.mu.Lock()
	if f.opened > 0 && f.closed == 0 {
		f.mu.Unlock()
		return transport.ErrAlreadyOpen
	}
	f.opened++
	f.handlers = h
	f.mu.Unlock()
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed++
	f.connected = false
	clear(f.subs)
	f.mu.Unlock()
	return nil
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) Subscribe(topic string, h transport.Handler) (transport.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, transport.ErrNotConnected
	}
	s := &fakeSub{f: f, topic: topic, h: h}
	f.subs[topic] = append(f.subs[topic], s)
	return s, nil
}

func (f *Fake) Publish(destination string, body []byte, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return transport.ErrNotConnected
	}
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.published = append(f.published, Published{Destination: destination, Body: body, Headers: headers})
	return nil
}

// Connecting raises OnConnecting.
func (f *Fake) Connecting() {
	if h := f.Handlers(); h.OnConnecting != nil {
		h.OnConnecting()
	}
}

// Connect marks the fake connected and raises OnConnect.
func (f *Fake) Connect() {
	f.mu.Lock()
	f.connected = true
	h := f.handlers
	f.mu.Unlock()
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

// Drop disconnects in an orderly way and raises OnDisconnect.
func (f *Fake) Drop() {
	f.mu.Lock()
	f.connected = false
	clear(f.subs)
	h := f.handlers
	f.mu.Unlock()
	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

// Fail disconnects with err and raises OnError.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.connected = false
	clear(f.subs)
	h := f.handlers
	f.mu.Unlock()
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Deliver hands body to every subscriber of topic and returns how many
// received it.
func (f *Fake) Deliver(topic string, body string) int {
	f.mu.Lock()
	subs := append([]*fakeSub(nil), f.subs[topic]...)
	f.mu.Unlock()

	for _, s := range subs {
		s.h(transport.Message{Topic: topic, Body: []byte(body)})
	}
	return len(subs)
}

// Handlers returns the handlers passed to Open, so tests can replay stale
// callbacks.
func (f *Fake) Handlers() transport.Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

// Subscribed returns the topics with at least one live subscription.
func (f *Fake) Subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var topics []string
	for topic, subs := range f.subs {
		if len(subs) > 0 {
			topics = append(topics, topic)
		}
	}
	return topics
}

// Published returns every successful Publish call in order.
func (f *Fake) Published() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.published...)
}

// Opened and Closed count lifecycle calls.
func (f *Fake) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSub struct {
	f     *Fake
	topic string
	h     transport.Handler
}

func (s *fakeSub) Topic() string { return s.topic }

func (s *fakeSub) Unsubscribe() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	subs := s.f.subs[s.topic]
	for i, other := range subs {
		if other == s {
			s.f.subs[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}
