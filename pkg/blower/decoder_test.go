// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeTemperature(t *testing.T) {
	body := []byte(`{"value":21.5,"deviceId":"d1","masterId":3,"timestamp":"2025-03-01T10:15:30"}`)

	sample, err := DecodeTemperature(body)
	if err != nil {
		t.Fatalf("DecodeTemperature() unexpected error: %v", err)
	}
	if sample.Value != 21.5 {
		t.Errorf("Value = %v, want 21.5", sample.Value)
	}
	if sample.DeviceID != "d1" || sample.MasterID != 3 {
		t.Errorf("ids = (%q, %d), want (d1, 3)", sample.DeviceID, sample.MasterID)
	}
	want := time.Date(2025, 3, 1, 10, 15, 30, 0, time.Local)
	if !sample.Timestamp.Time.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", sample.Timestamp.Time, want)
	}
	if sample.Timestamp.String() != "2025-03-01T10:15:30" {
		t.Errorf("Timestamp.String() = %q, want raw text", sample.Timestamp.String())
	}
}

func TestDecodeTemperature_Timestamps(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		wantRaw   string
		wantTime  time.Time
	}{
		{
			name:      "local date-time without seconds",
			timestamp: `"2025-03-01T10:15"`,
			wantRaw:   "2025-03-01T10:15",
			wantTime:  time.Date(2025, 3, 1, 10, 15, 0, 0, time.Local),
		},
		{
			name:      "space separated without seconds",
			timestamp: `"2025-03-01 10:15"`,
			wantRaw:   "2025-03-01 10:15",
			wantTime:  time.Date(2025, 3, 1, 10, 15, 0, 0, time.Local),
		},
		{
			name:      "unrecognized text",
			timestamp: `"01/03/2025 10:15:30"`,
			wantRaw:   "01/03/2025 10:15:30",
		},
		{
			name:      "array",
			timestamp: `[2025, 3, 1, 10, 15, 30]`,
			wantRaw:   "[2025,3,1,10,15,30]",
		},
		{
			name:      "fractional number",
			timestamp: `1740823200.5`,
			wantRaw:   "1740823200.5",
		},
		{
			name:      "null",
			timestamp: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"value":21.5,"deviceId":"d1","masterId":3,"timestamp":` + tt.timestamp + `}`)
			v, err := Decode(TopicTemperature, body)
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			sample := v.(TemperatureSample)
			if sample.Value != 21.5 {
				t.Errorf("Value = %v, want 21.5", sample.Value)
			}
			if sample.Timestamp.String() != tt.wantRaw {
				t.Errorf("Timestamp.String() = %q, want %q", sample.Timestamp.String(), tt.wantRaw)
			}
			if !sample.Timestamp.Time.Equal(tt.wantTime) {
				t.Errorf("Timestamp.Time = %v, want %v", sample.Timestamp.Time, tt.wantTime)
			}
		})
	}
}

func TestDecodeDeviceStatus(t *testing.T) {
	tests := []struct {
		body string
		want PowerState
	}{
		{body: `{"deviceId":"b1","status":"ON","timestamp":"2025-03-01T10:00:00Z"}`, want: PowerOn},
		{body: `{"deviceId":"b1","status":"OFF"}`, want: PowerOff},
		{body: `{"deviceId":"b1","status":"FAULT"}`, want: PowerUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			status, err := DecodeDeviceStatus([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeDeviceStatus() unexpected error: %v", err)
			}
			if status.Status != tt.want {
				t.Errorf("Status = %q, want %q", status.Status, tt.want)
			}
		})
	}
}

func TestDecodeConnectionStatus(t *testing.T) {
	status, err := DecodeConnectionStatus([]byte(`{"status":"Connected","masterId":7,"timestamp":1740823200000}`))
	if err != nil {
		t.Fatalf("DecodeConnectionStatus() unexpected error: %v", err)
	}
	if status.Status != LinkConnected {
		t.Errorf("Status = %q, want Connected", status.Status)
	}
	if status.MasterID != 7 {
		t.Errorf("MasterID = %d, want 7", status.MasterID)
	}
	if !status.Timestamp.Time.Equal(time.UnixMilli(1740823200000)) {
		t.Errorf("Timestamp = %v, want epoch millis", status.Timestamp.Time)
	}
}

func TestDecodeBlowerParameters(t *testing.T) {
	params, err := DecodeBlowerParameters([]byte(`{"frequency":4550,"ampere":312,"voltage":2304,"deviceId":"b1","masterId":3}`))
	if err != nil {
		t.Fatalf("DecodeBlowerParameters() unexpected error: %v", err)
	}
	if params.FrequencyHz() != 45.5 {
		t.Errorf("FrequencyHz() = %v, want 45.5", params.FrequencyHz())
	}
	if params.AmpereA() != 3.12 {
		t.Errorf("AmpereA() = %v, want 3.12", params.AmpereA())
	}
	if params.VoltageV() != 230.4 {
		t.Errorf("VoltageV() = %v, want 230.4", params.VoltageV())
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		body  string
	}{
		{name: "empty", topic: TopicTemperature, body: ``},
		{name: "truncated json", topic: TopicTemperature, body: `{"value":21.`},
		{name: "array", topic: TopicTemperature, body: `[21.5]`},
		{name: "missing value", topic: TopicTemperature, body: `{"deviceId":"d1"}`},
		{name: "value wrong type", topic: TopicTemperature, body: `{"value":"hot"}`},
		{name: "implausible value", topic: TopicTemperature, body: `{"value":-500}`},
		{name: "temperature above limit", topic: TopicTemperature, body: `{"value":2500}`},
		{name: "status missing", topic: TopicDeviceStatus, body: `{"deviceId":"b1"}`},
		{name: "connection status missing", topic: TopicConnectionStatus, body: `{"masterId":1}`},
		{name: "parameters missing voltage", topic: TopicBlowerParameters, body: `{"frequency":1,"ampere":1}`},
		{name: "parameters negative", topic: TopicBlowerParameters, body: `{"frequency":-1,"ampere":1,"voltage":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.topic, []byte(tt.body))
			if err == nil {
				t.Fatalf("Decode() = %#v, want error", v)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Decode() error type = %T, want *DecodeError", err)
			}
			if decodeErr.Topic != tt.topic {
				t.Errorf("DecodeError.Topic = %q, want %q", decodeErr.Topic, tt.topic)
			}
		})
	}
}

func TestDecode_UnknownTopic(t *testing.T) {
	_, err := Decode("/topic/humidity", []byte(`{}`))
	if !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Decode() error = %v, want ErrUnknownTopic", err)
	}
}

func TestDecode_DispatchesByTopic(t *testing.T) {
	v, err := Decode(TopicTemperature, []byte(`{"value":19}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if _, ok := v.(TemperatureSample); !ok {
		t.Errorf("Decode() returned %T, want TemperatureSample", v)
	}
}
