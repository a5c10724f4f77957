// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/session"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name  string
		event session.Event
		want  string
	}{
		{
			name:  "link up",
			event: session.LinkChanged{From: session.Connecting, To: session.Connected},
			want:  "LINK connecting -> connected",
		},
		{
			name:  "link failed",
			event: session.LinkChanged{From: session.Connected, To: session.Failed, Err: errors.New("heart-beat timeout")},
			want:  "LINK connected -> failed: heart-beat timeout",
		},
		{
			name:  "device status",
			event: session.DeviceStatusUpdated{Status: blower.DeviceStatus{DeviceID: "B1", Status: blower.PowerOn}},
			want:  "DEVICE B1 status=ON",
		},
		{
			name:  "controller link",
			event: session.ConnectionStatusUpdated{Status: blower.ConnectionStatus{Status: blower.LinkDisconnected, MasterID: 3}},
			want:  "CONTROLLER master=3 link=Disconnected",
		},
		{
			name:  "temperature",
			event: session.TemperatureUpdated{Sample: blower.TemperatureSample{Value: 21.5, DeviceID: "T1", MasterID: 3}},
			want:  "TEMPERATURE 21.5°C device=T1 master=3",
		},
		{
			name:  "blower parameters",
			event: session.BlowerParametersUpdated{Parameters: blower.BlowerParameters{Frequency: 3550, Ampere: 120, Voltage: 2300, DeviceID: "B1"}},
			want:  "BLOWER 35.50 Hz  1.20 A  230.0 V device=B1",
		},
		{
			name:  "decode failure",
			event: session.DecodeFailed{Topic: blower.TopicTemperature, Err: errors.New("missing field")},
			want:  "[ERROR] /topic/temperature: missing field",
		},
		{
			name:  "command sent",
			event: session.CommandSent{Command: blower.BlowerOn{}},
			want:  "SENT TURN_ON_BLOWER",
		},
		{
			name:  "command rejected",
			event: session.CommandRejected{Command: blower.BlowerOff{}, Err: session.ErrNotConnected},
			want:  "[ERROR] TURN_OFF_BLOWER not sent: not connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEvent(tt.event); got != tt.want {
				t.Errorf("formatEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}
