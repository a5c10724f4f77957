// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import "github.com/Thermoquad/anemostat/pkg/blower"

// Event is delivered to observers after every state change. Observers run
// outside the session lock, on the goroutine that caused the change.
type Event interface {
	isEvent()
}

// LinkChanged reports a LinkState transition. Err is set for transitions
// into Failed.
type LinkChanged struct {
	From, To LinkState
	Err      error
}

type DeviceStatusUpdated struct {
	Status blower.DeviceStatus
}

type ConnectionStatusUpdated struct {
	Status blower.ConnectionStatus
}

type TemperatureUpdated struct {
	Sample blower.TemperatureSample
}

type BlowerParametersUpdated struct {
	Parameters blower.BlowerParameters
}

// DecodeFailed reports a dropped inbound message.
type DecodeFailed struct {
	Topic string
	Err   error
}

// CommandSent reports a command handed to the transport.
type CommandSent struct {
	Command blower.Command
}

// CommandRejected reports a command that was not sent.
type CommandRejected struct {
	Command blower.Command
	Err     error
}

func (LinkChanged) isEvent()             {}
func (DeviceStatusUpdated) isEvent()     {}
func (ConnectionStatusUpdated) isEvent() {}
func (TemperatureUpdated) isEvent()      {}
func (BlowerParametersUpdated) isEvent() {}
func (DecodeFailed) isEvent()            {}
func (CommandSent) isEvent()             {}
func (CommandRejected) isEvent()         {}
