// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Thermoquad/anemostat/pkg/api"
	"github.com/Thermoquad/anemostat/pkg/config"
	"github.com/Thermoquad/anemostat/pkg/session"
	"github.com/Thermoquad/anemostat/pkg/transport"
)

// OpenSession builds a session on the transport selected by the configured
// broker URL. The session is not started.
func OpenSession(cfg *config.Config, log *slog.Logger, opts ...session.Option) (*session.Session, error) {
	if err := cfg.ValidateTransport(); err != nil {
		return nil, err
	}

	t, err := transport.New(cfg.Transport.URL, transport.Options{
		ReconnectDelay:     cfg.Transport.ReconnectDelay,
		Heartbeat:          cfg.Transport.Heartbeat,
		InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
		Logger:             log.With("component", "transport"),
	})
	if err != nil {
		return nil, err
	}

	opts = append([]session.Option{session.WithLogger(log.With("component", "session"))}, opts...)
	return session.New(t, opts...), nil
}

// OpenAPIClient builds the REST client for the configured backend.
func OpenAPIClient(cfg *config.Config, log *slog.Logger) (*api.Client, error) {
	if err := cfg.ValidateAPI(); err != nil {
		return nil, err
	}
	return api.New(cfg.API.URL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log.With("component", "api")),
	)
}

// connectedSignal returns a session observer and a channel that receives a
// value each time the link reaches Connected.
func connectedSignal() (session.Option, <-chan struct{}) {
	ch := make(chan struct{}, 1)
	observe := session.WithObserver(func(ev session.Event) {
		if lc, ok := ev.(session.LinkChanged); ok && lc.To == session.Connected {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	return observe, ch
}

// waitConnected blocks until connected fires, the timeout passes or ctx ends.
func waitConnected(ctx context.Context, sess *session.Session, connected <-chan struct{}, timeout time.Duration) error {
	if sess.State() == session.Connected {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-connected:
		return nil
	case <-timer.C:
		snap := sess.Snapshot()
		if snap.LastError != "" {
			return fmt.Errorf("not connected to %s after %v: %s", snap.Endpoint, timeout, snap.LastError)
		}
		return fmt.Errorf("not connected to %s after %v", snap.Endpoint, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
