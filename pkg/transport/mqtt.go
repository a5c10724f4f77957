// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// qosAtMostOnce matches STOMP auto-ack delivery.
const qosAtMostOnce byte = 0

// MQTTTransport carries the same topics over an MQTT broker. Topic names are
// the STOMP destinations without the leading slash.
type MQTTTransport struct {
	broker   string
	clientID string
	opts     Options
	log      *slog.Logger

	mu       sync.Mutex
	client   mqtt.Client
	handlers Handlers
	subs     map[string]*mqttSubscription
	opened   bool
	closed   bool
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

var _ Transport = (*MQTTTransport)(nil)

// NewMQTT returns an MQTT adapter for a tcp, ssl, mqtt or mqtts URL.
func NewMQTT(rawURL string, opts Options) (*MQTTTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "mqtt":
		u.Scheme = "tcp"
	case "ssl", "tls", "mqtts":
		u.Scheme = "ssl"
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use tcp:// or ssl://)", u.Scheme)
	}

	opts = opts.withDefaults()
	clientID := "anemostat-" + uuid.NewString()

	return &MQTTTransport{
		broker:   u.String(),
		clientID: clientID,
		opts:     opts,
		log:      opts.Logger.With("transport", "mqtt", "broker", u.Redacted(), "client_id", clientID),
		subs:     make(map[string]*mqttSubscription),
	}, nil
}

// Describe returns the broker URL.
func (t *MQTTTransport) Describe() string {
	return fmt.Sprintf("MQTT: %s", t.broker)
}

// MQTTTopic maps a STOMP destination onto an MQTT topic name.
func MQTTTopic(destination string) string {
	return strings.TrimPrefix(destination, "/")
}

func (t *MQTTTransport) clientOptions() *mqtt.ClientOptions {
	o := mqtt.NewClientOptions()
	o.AddBroker(t.broker)
	o.SetClientID(t.clientID)
	o.SetCleanSession(true)
	o.SetOrderMatters(true)
	o.SetKeepAlive(max(t.opts.Heartbeat, time.Second))
	o.SetConnectTimeout(t.opts.HandshakeTimeout)
	o.SetAutoReconnect(true)
	o.SetMaxReconnectInterval(t.opts.ReconnectDelay)
	if strings.HasPrefix(t.broker, "ssl://") {
		o.SetTLSConfig(&tls.Config{InsecureSkipVerify: t.opts.InsecureSkipVerify})
	}

	o.SetOnConnectHandler(func(mqtt.Client) {
		if t.isClosed() {
			return
		}
		t.log.Info("connected")
		t.getHandlers().connected()
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		t.dropSubscriptions()
		if t.isClosed() {
			return
		}
		t.log.Info("connection lost, reconnecting", "error", err, "delay", t.opts.ReconnectDelay)
		t.getHandlers().failed(err)
	})
	o.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		if t.isClosed() {
			return
		}
		t.getHandlers().connecting()
	})
	return o
}

// Open starts the connection task. Initial attempts are retried at the
// reconnect delay, each failure raising OnError; once connected, paho
// reconnects on its own.
func (t *MQTTTransport) Open(ctx context.Context, h Handlers) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.opened {
		t.mu.Unlock()
		return ErrAlreadyOpen
	}
	t.opened = true
	t.handlers = h
	t.client = mqtt.NewClient(t.clientOptions())
	client := t.client

	ctx, t.stop = context.WithCancel(ctx)
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx, client)
	return nil
}

// run dials until the first connection succeeds, then holds the client until
// the context ends.
func (t *MQTTTransport) run(ctx context.Context, client mqtt.Client) {
	defer t.wg.Done()
	defer client.Disconnect(250)

	attempt := func() error {
		h := t.getHandlers()
		h.connecting()
		token := client.Connect()
		select {
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		case <-token.Done():
		}
		err := token.Error()
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err != nil {
			h.failed(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		t.log.Info("connect failed, retrying", "error", err, "delay", wait)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(t.opts.ReconnectDelay), ctx)
	if err := backoff.RetryNotify(attempt, b, notify); err != nil {
		return
	}
	<-ctx.Done()
}

// Close disconnects and stops reconnecting.
func (t *MQTTTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	stop := t.stop
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
	t.wg.Wait()
	t.dropSubscriptions()
	return nil
}

// Connected reports whether paho has an open connection.
func (t *MQTTTransport) Connected() bool {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	return client != nil && client.IsConnectionOpen()
}

// Subscribe subscribes to the MQTT form of topic.
func (t *MQTTTransport) Subscribe(topic string, h Handler) (Subscription, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}

	sub := &mqttSubscription{t: t, topic: topic, mqttTopic: MQTTTopic(topic)}
	token := t.client.Subscribe(sub.mqttTopic, qosAtMostOnce, func(_ mqtt.Client, m mqtt.Message) {
		h(Message{
			Topic: "/" + m.Topic(),
			Body:  m.Payload(),
		})
	})
	if !token.WaitTimeout(t.opts.HandshakeTimeout) {
		return nil, fmt.Errorf("subscribe %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	t.mu.Lock()
	t.subs[sub.mqttTopic] = sub
	t.mu.Unlock()
	return sub, nil
}

// Publish sends body to the MQTT form of destination. MQTT has no headers.
func (t *MQTTTransport) Publish(destination string, body []byte, _ map[string]string) error {
	if !t.Connected() {
		return ErrNotConnected
	}
	token := t.client.Publish(MQTTTopic(destination), qosAtMostOnce, false, body)
	if !token.WaitTimeout(t.opts.HandshakeTimeout) {
		return fmt.Errorf("publish %s: timed out", destination)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	return nil
}

func (t *MQTTTransport) dropSubscriptions() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.subs)
}

func (t *MQTTTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *MQTTTransport) getHandlers() Handlers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers
}

type mqttSubscription struct {
	t         *MQTTTransport
	topic     string
	mqttTopic string
}

func (s *mqttSubscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription from the broker if still connected.
func (s *mqttSubscription) Unsubscribe() error {
	t := s.t
	t.mu.Lock()
	_, ok := t.subs[s.mqttTopic]
	delete(t.subs, s.mqttTopic)
	t.mu.Unlock()

	if !ok || !t.Connected() {
		return nil
	}
	token := t.client.Unsubscribe(s.mqttTopic)
	if !token.WaitTimeout(t.opts.HandshakeTimeout) {
		return fmt.Errorf("unsubscribe %s: timed out", s.topic)
	}
	return token.Error()
}
