// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import "github.com/Thermoquad/anemostat/pkg/blower"

// Snapshot is a copy of the session state at one instant. Nil entries have
// not been received yet.
type Snapshot struct {
	State       LinkState                 `json:"state"`
	LastError   string                    `json:"last_error,omitempty"`
	Endpoint    string                    `json:"endpoint"`
	Device      *blower.DeviceStatus      `json:"device_status"`
	Connection  *blower.ConnectionStatus  `json:"connection_status"`
	Temperature *blower.TemperatureSample `json:"temperature"`
	Parameters  *blower.BlowerParameters  `json:"blower_parameters"`
	Stats       Statistics                `json:"statistics"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:       s.state,
		Endpoint:    s.t.Describe(),
		Device:      clonePtr(s.device),
		Connection:  clonePtr(s.connection),
		Temperature: clonePtr(s.temperature),
		Parameters:  clonePtr(s.parameters),
		Stats:       s.stats.Clone(),
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
