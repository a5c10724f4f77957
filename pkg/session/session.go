// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session keeps the operator's view of one controller in sync with
// the telemetry backend.
//
// A Session owns one transport. It subscribes to the telemetry topics every
// time the transport connects, decodes each inbound message into the latest
// value for its topic, and publishes operator commands while the link is up.
// All state lives behind one mutex; observers are notified after the lock is
// released. Callbacks from a transport connection that predates the last
// Start or Stop are ignored.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/livebuffer"
	"github.com/Thermoquad/anemostat/pkg/transport"
)

var (
	// ErrNotConnected is returned by SendCommand while the link is not
	// Connected. Nothing is queued.
	ErrNotConnected = errors.New("not connected")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("session stopped")
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers fn to receive every Event.
func WithObserver(fn func(Event)) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithMetrics exports session activity to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTemperatureBuffer pushes every accepted temperature sample into buf.
func WithTemperatureBuffer(buf *livebuffer.Buffer[blower.TemperatureSample]) Option {
	return func(s *Session) {
		s.samples = buf
	}
}

// Session is the sync session for one transport.
type Session struct {
	t         transport.Transport
	log       *slog.Logger
	observers []func(Event)
	metrics   *Metrics
	samples   *livebuffer.Buffer[blower.TemperatureSample]

	mu      sync.Mutex
	state   LinkState
	lastErr error
	epoch   uint64
	started bool
	stopped bool
	subs    []transport.Subscription

	device      *blower.DeviceStatus
	connection  *blower.ConnectionStatus
	temperature *blower.TemperatureSample
	parameters  *blower.BlowerParameters
	stats       *Statistics
}

// New returns a session that owns t. The transport is opened by Start and
// closed by Stop.
func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		t:     t,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		state: Disconnected,
		stats: NewStatistics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the transport. It returns immediately; the connection is made
// in the background and retried until Stop. Calling Start again while
// started does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.epoch++
	epoch := s.epoch
	events := s.setStateLocked(Connecting, nil)
	s.mu.Unlock()
	s.notify(events)

	s.log.Info("starting session", "endpoint", s.t.Describe())

	if err := s.t.Open(ctx, s.handlers(epoch)); err != nil {
		s.mu.Lock()
		s.started = false
		events := s.setStateLocked(Failed, err)
		s.mu.Unlock()
		s.notify(events)
		return fmt.Errorf("open transport: %w", err)
	}
	return nil
}

// Stop unsubscribes, closes the transport and leaves the session
// Disconnected. It is safe to call more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.epoch++
	started := s.started
	subs := s.subs
	s.subs = nil
	events := s.setStateLocked(Disconnected, nil)
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Debug("unsubscribe failed", "topic", sub.Topic(), "error", err)
		}
	}

	var err error
	if started {
		if err = s.t.Close(); err != nil {
			err = fmt.Errorf("close transport: %w", err)
		}
	}

	s.notify(events)
	s.log.Info("session stopped")
	return err
}

// SendCommand encodes cmd and publishes it. It fails with ErrNotConnected
// unless the link is Connected.
func (s *Session) SendCommand(cmd blower.Command) error {
	msg, err := blower.Encode(cmd)
	if err != nil {
		s.commandDone(cmd, err)
		return err
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state != Connected {
		s.commandDone(cmd, ErrNotConnected)
		return ErrNotConnected
	}

	if err := s.t.Publish(msg.Destination, msg.Body, msg.Headers); err != nil {
		if errors.Is(err, transport.ErrNotConnected) {
			err = ErrNotConnected
		} else {
			err = fmt.Errorf("send %s: %w", cmd.Name(), err)
		}
		s.commandDone(cmd, err)
		return err
	}

	s.commandDone(cmd, nil)
	s.log.Info("command sent", "command", cmd.Name(), "destination", msg.Destination)
	return nil
}

func (s *Session) commandDone(cmd blower.Command, err error) {
	result := "sent"
	var ev Event = CommandSent{Command: cmd}
	if err != nil {
		result = "rejected"
		ev = CommandRejected{Command: cmd, Err: err}
		s.log.Warn("command rejected", "command", commandLabel(cmd), "error", err)
	}

	s.mu.Lock()
	s.stats.RecordCommand(err)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Commands.WithLabelValues(commandLabel(cmd), result).Inc()
	}
	s.notify([]Event{ev})
}

// State returns the current link state.
func (s *Session) State() LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Endpoint describes the transport endpoint.
func (s *Session) Endpoint() string {
	return s.t.Describe()
}

// handlers binds the transport callbacks to one Start.
func (s *Session) handlers(epoch uint64) transport.Handlers {
	return transport.Handlers{
		OnConnecting: func() { s.onConnecting(epoch) },
		OnConnect:    func() { s.onConnect(epoch) },
		OnDisconnect: func() { s.onDisconnect(epoch) },
		OnError:      func(err error) { s.onError(epoch, err) },
	}
}

// currentLocked reports whether callbacks for epoch still apply.
func (s *Session) currentLocked(epoch uint64) bool {
	return !s.stopped && s.epoch == epoch
}

func (s *Session) onConnecting(epoch uint64) {
	s.mu.Lock()
	if !s.currentLocked(epoch) {
		s.mu.Unlock()
		return
	}
	if s.state == Failed || s.state == Disconnected {
		s.stats.Reconnects++
		if s.metrics != nil {
			s.metrics.Reconnects.Inc()
		}
	}
	events := s.setStateLocked(Connecting, nil)
	s.mu.Unlock()
	s.notify(events)
}

func (s *Session) onConnect(epoch uint64) {
	s.mu.Lock()
	current := s.currentLocked(epoch)
	s.mu.Unlock()
	if !current {
		return
	}

	// Subscribe outside the lock: message handlers take it.
	subs := make([]transport.Subscription, 0, len(blower.Topics))
	for _, topic := range blower.Topics {
		sub, err := s.t.Subscribe(topic, s.messageHandler(epoch, topic))
		if err != nil {
			s.log.Warn("subscribe failed", "topic", topic, "error", err)
			continue
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	if !s.currentLocked(epoch) {
		s.mu.Unlock()
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
		return
	}
	s.subs = subs
	s.lastErr = nil
	events := s.setStateLocked(Connected, nil)
	s.mu.Unlock()

	s.log.Info("connected", "endpoint", s.t.Describe(), "subscriptions", len(subs))
	s.notify(events)
}

func (s *Session) onDisconnect(epoch uint64) {
	s.mu.Lock()
	if !s.currentLocked(epoch) {
		s.mu.Unlock()
		return
	}
	s.subs = nil
	events := s.setStateLocked(Disconnected, nil)
	s.mu.Unlock()

	s.log.Info("disconnected")
	s.notify(events)
}

func (s *Session) onError(epoch uint64, err error) {
	s.mu.Lock()
	if !s.currentLocked(epoch) {
		s.mu.Unlock()
		return
	}
	s.subs = nil
	s.lastErr = err
	events := s.setStateLocked(Failed, err)
	s.mu.Unlock()

	s.log.Warn("connection failed", "error", err)
	s.notify(events)
}

func (s *Session) messageHandler(epoch uint64, topic string) transport.Handler {
	return func(m transport.Message) {
		s.handleMessage(epoch, topic, m.Body)
	}
}

// handleMessage decodes one message and replaces the latest value for its
// topic. A message that fails to decode leaves all state unchanged.
func (s *Session) handleMessage(epoch uint64, topic string, body []byte) {
	v, err := blower.Decode(topic, body)

	s.mu.Lock()
	if !s.currentLocked(epoch) {
		s.mu.Unlock()
		return
	}
	s.stats.Update(topic, err)

	var ev Event
	if err != nil {
		ev = DecodeFailed{Topic: topic, Err: err}
	} else {
		switch msg := v.(type) {
		case blower.DeviceStatus:
			s.device = &msg
			ev = DeviceStatusUpdated{Status: msg}
		case blower.ConnectionStatus:
			s.connection = &msg
			ev = ConnectionStatusUpdated{Status: msg}
		case blower.TemperatureSample:
			s.temperature = &msg
			if s.samples != nil {
				s.samples.Push(msg)
			}
			ev = TemperatureUpdated{Sample: msg}
		case blower.BlowerParameters:
			s.parameters = &msg
			ev = BlowerParametersUpdated{Parameters: msg}
		}
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Messages.WithLabelValues(topic).Inc()
		if err != nil {
			s.metrics.DecodeFailures.WithLabelValues(topic).Inc()
		}
	}
	if err != nil {
		s.log.Warn("dropping message", "topic", topic, "error", err)
	}
	if ev != nil {
		s.notify([]Event{ev})
	}
}

// setStateLocked moves to next and returns the resulting event, if any.
func (s *Session) setStateLocked(next LinkState, err error) []Event {
	prev := s.state
	if prev == next {
		return nil
	}
	s.state = next
	if s.metrics != nil {
		s.metrics.setLinkState(next)
	}
	s.log.Debug("link state", "from", prev, "to", next)
	return []Event{LinkChanged{From: prev, To: next, Err: err}}
}

func (s *Session) notify(events []Event) {
	for _, ev := range events {
		for _, fn := range s.observers {
			fn(ev)
		}
	}
}

// commandLabel names a command without its arguments.
func commandLabel(cmd blower.Command) string {
	if cmd == nil {
		return "UNKNOWN"
	}
	name, _, _ := strings.Cut(cmd.Name(), " ")
	return name
}
