// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTopic is returned when decoding a message from a topic this
// package does not model.
var ErrUnknownTopic = errors.New("unknown topic")

// DecodeError describes an inbound message that could not be turned into
// its entity type.
type DecodeError struct {
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// rawDeviceStatus and friends keep the wire strings so unknown enum values
// can be normalized instead of rejected.
type rawDeviceStatus struct {
	DeviceID  string    `json:"deviceId"`
	Status    *string   `json:"status"`
	Timestamp Timestamp `json:"timestamp"`
}

type rawConnectionStatus struct {
	Status    *string   `json:"status"`
	MasterID  int       `json:"masterId"`
	Timestamp Timestamp `json:"timestamp"`
}

type rawTemperature struct {
	Value     *float64  `json:"value"`
	DeviceID  string    `json:"deviceId"`
	MasterID  int       `json:"masterId"`
	Timestamp Timestamp `json:"timestamp"`
}

type rawBlowerParameters struct {
	Frequency *int      `json:"frequency"`
	Ampere    *int      `json:"ampere"`
	Voltage   *int      `json:"voltage"`
	DeviceID  string    `json:"deviceId"`
	MasterID  int       `json:"masterId"`
	Timestamp Timestamp `json:"timestamp"`
}

// Decode decodes a telemetry message body according to its topic. The
// returned value is one of DeviceStatus, ConnectionStatus,
// TemperatureSample or BlowerParameters.
func Decode(topic string, body []byte) (interface{}, error) {
	var (
		v   interface{}
		err error
	)
	switch topic {
	case TopicDeviceStatus:
		v, err = DecodeDeviceStatus(body)
	case TopicConnectionStatus:
		v, err = DecodeConnectionStatus(body)
	case TopicTemperature:
		v, err = DecodeTemperature(body)
	case TopicBlowerParameters:
		v, err = DecodeBlowerParameters(body)
	default:
		return nil, &DecodeError{Topic: topic, Err: ErrUnknownTopic}
	}
	if err != nil {
		return nil, &DecodeError{Topic: topic, Err: err}
	}
	return v, nil
}

// DecodeDeviceStatus decodes a TopicDeviceStatus body.
func DecodeDeviceStatus(body []byte) (DeviceStatus, error) {
	var raw rawDeviceStatus
	if err := unmarshalObject(body, &raw); err != nil {
		return DeviceStatus{}, err
	}
	if raw.Status == nil {
		return DeviceStatus{}, missingField("status")
	}
	return DeviceStatus{
		DeviceID:  raw.DeviceID,
		Status:    ParsePowerState(*raw.Status),
		Timestamp: raw.Timestamp,
	}, nil
}

// DecodeConnectionStatus decodes a TopicConnectionStatus body.
func DecodeConnectionStatus(body []byte) (ConnectionStatus, error) {
	var raw rawConnectionStatus
	if err := unmarshalObject(body, &raw); err != nil {
		return ConnectionStatus{}, err
	}
	if raw.Status == nil {
		return ConnectionStatus{}, missingField("status")
	}
	return ConnectionStatus{
		Status:    ParseLinkStatus(*raw.Status),
		MasterID:  raw.MasterID,
		Timestamp: raw.Timestamp,
	}, nil
}

// DecodeTemperature decodes a TopicTemperature body.
func DecodeTemperature(body []byte) (TemperatureSample, error) {
	var raw rawTemperature
	if err := unmarshalObject(body, &raw); err != nil {
		return TemperatureSample{}, err
	}
	if raw.Value == nil {
		return TemperatureSample{}, missingField("value")
	}
	sample := TemperatureSample{
		Value:     *raw.Value,
		DeviceID:  raw.DeviceID,
		MasterID:  raw.MasterID,
		Timestamp: raw.Timestamp,
	}
	if err := ValidateTemperature(sample); err != nil {
		return TemperatureSample{}, err
	}
	return sample, nil
}

// DecodeBlowerParameters decodes a TopicBlowerParameters body.
func DecodeBlowerParameters(body []byte) (BlowerParameters, error) {
	var raw rawBlowerParameters
	if err := unmarshalObject(body, &raw); err != nil {
		return BlowerParameters{}, err
	}
	switch {
	case raw.Frequency == nil:
		return BlowerParameters{}, missingField("frequency")
	case raw.Ampere == nil:
		return BlowerParameters{}, missingField("ampere")
	case raw.Voltage == nil:
		return BlowerParameters{}, missingField("voltage")
	}
	params := BlowerParameters{
		Frequency: *raw.Frequency,
		Ampere:    *raw.Ampere,
		Voltage:   *raw.Voltage,
		DeviceID:  raw.DeviceID,
		MasterID:  raw.MasterID,
		Timestamp: raw.Timestamp,
	}
	if err := ValidateBlowerParameters(params); err != nil {
		return BlowerParameters{}, err
	}
	return params, nil
}

// unmarshalObject rejects anything that is not a JSON object before decoding.
func unmarshalObject(body []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("expected JSON object, got %q", truncate(trimmed, 16))
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("missing field %q", name)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
