// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import "fmt"

// LinkState is the state of the broker connection as seen by the session.
type LinkState int

const (
	Disconnected LinkState = iota
	Connecting
	Connected
	Failed
)

// LinkStates lists every state, in declaration order.
var LinkStates = []LinkState{Disconnected, Connecting, Connected, Failed}

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("LinkState(%d)", int(s))
}

// MarshalText renders the state by name.
func (s LinkState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
