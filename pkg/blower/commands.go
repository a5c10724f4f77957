// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidFrequency is returned for frequencies that are not finite
	// non-negative numbers.
	ErrInvalidFrequency = errors.New("frequency must be a finite number >= 0")

	// ErrMissingIPAddress is returned when connecting without a master address.
	ErrMissingIPAddress = errors.New("connect command requires an IP address")

	// ErrUnknownCommand is returned by DecodeCommand for payloads that do not
	// map to any Command.
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is an operator intent. The concrete types are ConnectMaster,
// DisconnectMaster, BlowerOn, BlowerOff and SetFrequency.
type Command interface {
	// Name is a short human-readable label used in logs.
	Name() string
	isCommand()
}

// ConnectMaster asks the backend to open its link to the controller at IPAddress.
type ConnectMaster struct {
	IPAddress string
}

// DisconnectMaster asks the backend to close its controller link.
type DisconnectMaster struct{}

// BlowerOn turns the blower on.
type BlowerOn struct{}

// BlowerOff turns the blower off.
type BlowerOff struct{}

// SetFrequency sets the blower frequency. WireValue is in centi-hertz;
// build it with NewSetFrequency or ParseFrequency.
type SetFrequency struct {
	WireValue int
}

func (ConnectMaster) isCommand()    {}
func (DisconnectMaster) isCommand() {}
func (BlowerOn) isCommand()         {}
func (BlowerOff) isCommand()        {}
func (SetFrequency) isCommand()     {}

func (c ConnectMaster) Name() string  { return "CONNECT_MASTER " + c.IPAddress }
func (DisconnectMaster) Name() string { return "DISCONNECT_MASTER" }
func (BlowerOn) Name() string         { return "TURN_ON_BLOWER" }
func (BlowerOff) Name() string        { return "TURN_OFF_BLOWER" }
func (c SetFrequency) Name() string {
	return fmt.Sprintf("SET_FREQUENCY %s Hz", FormatFrequency(c.WireValue))
}

// Hz returns the requested frequency in hertz.
func (c SetFrequency) Hz() float64 {
	return float64(c.WireValue) / FrequencyDivisor
}

// NewSetFrequency converts an operator frequency in hertz to wire units,
// round(hz × 100). NaN, infinities and negative values are rejected.
func NewSetFrequency(hz float64) (SetFrequency, error) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < 0 {
		return SetFrequency{}, ErrInvalidFrequency
	}
	wire := math.Round(hz * FrequencyDivisor)
	if wire > math.MaxInt32 {
		return SetFrequency{}, fmt.Errorf("%w: %g Hz is out of range", ErrInvalidFrequency, hz)
	}
	return SetFrequency{WireValue: int(wire)}, nil
}

// ParseFrequency parses operator text in hertz, e.g. "3.5".
func ParseFrequency(text string) (SetFrequency, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SetFrequency{}, fmt.Errorf("%w: empty input", ErrInvalidFrequency)
	}
	hz, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return SetFrequency{}, fmt.Errorf("%w: %q is not a number", ErrInvalidFrequency, text)
	}
	return NewSetFrequency(hz)
}

// Message is an encoded command ready to publish.
type Message struct {
	Destination string
	Body        []byte
	Headers     map[string]string
}

// deviceCommand is the JSON body sent to DestinationDeviceCommand.
type deviceCommand struct {
	Action    string `json:"action"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// frequencyCommand is the JSON body sent to DestinationBlowerFrequency.
type frequencyCommand struct {
	Frequency *int `json:"frequency"`
}

// Encode maps a Command to its destination and JSON payload.
func Encode(cmd Command) (Message, error) {
	var (
		destination string
		body        interface{}
	)

	switch c := cmd.(type) {
	case ConnectMaster:
		if strings.TrimSpace(c.IPAddress) == "" {
			return Message{}, ErrMissingIPAddress
		}
		destination = DestinationDeviceCommand
		body = deviceCommand{Action: ActionConnectMaster, IPAddress: strings.TrimSpace(c.IPAddress)}
	case DisconnectMaster:
		destination = DestinationDeviceCommand
		body = deviceCommand{Action: ActionDisconnectMaster}
	case BlowerOn:
		destination = DestinationDeviceCommand
		body = deviceCommand{Action: ActionTurnOnBlower}
	case BlowerOff:
		destination = DestinationDeviceCommand
		body = deviceCommand{Action: ActionTurnOffBlower}
	case SetFrequency:
		if c.WireValue < 0 {
			return Message{}, ErrInvalidFrequency
		}
		destination = DestinationBlowerFrequency
		wire := c.WireValue
		body = frequencyCommand{Frequency: &wire}
	case nil:
		return Message{}, fmt.Errorf("%w: nil", ErrUnknownCommand)
	default:
		return Message{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s: %w", cmd.Name(), err)
	}

	return Message{
		Destination: destination,
		Body:        data,
		Headers:     map[string]string{"content-type": ContentTypeJSON},
	}, nil
}

// DecodeCommand is the inverse of Encode. Unknown destinations and actions
// are rejected rather than passed through.
func DecodeCommand(destination string, body []byte) (Command, error) {
	switch destination {
	case DestinationDeviceCommand:
		var dc deviceCommand
		if err := unmarshalObject(body, &dc); err != nil {
			return nil, err
		}
		switch dc.Action {
		case ActionConnectMaster:
			if dc.IPAddress == "" {
				return nil, ErrMissingIPAddress
			}
			return ConnectMaster{IPAddress: dc.IPAddress}, nil
		case ActionDisconnectMaster:
			return DisconnectMaster{}, nil
		case ActionTurnOnBlower:
			return BlowerOn{}, nil
		case ActionTurnOffBlower:
			return BlowerOff{}, nil
		}
		return nil, fmt.Errorf("%w: action %q", ErrUnknownCommand, dc.Action)

	case DestinationBlowerFrequency:
		var fc frequencyCommand
		if err := unmarshalObject(body, &fc); err != nil {
			return nil, err
		}
		if fc.Frequency == nil {
			return nil, missingField("frequency")
		}
		if *fc.Frequency < 0 {
			return nil, ErrInvalidFrequency
		}
		return SetFrequency{WireValue: *fc.Frequency}, nil
	}
	return nil, fmt.Errorf("%w: destination %q", ErrUnknownCommand, destination)
}
