// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"testing"
	"time"
)

func TestNegotiateHeartBeat(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name                 string
		cOut, cIn, sOut, sIn time.Duration
		wantSend, wantExpect time.Duration
	}{
		{"both 4000", 4000 * ms, 4000 * ms, 4000 * ms, 4000 * ms, 4000 * ms, 4000 * ms},
		{"server slower", 4000 * ms, 4000 * ms, 10000 * ms, 10000 * ms, 10000 * ms, 10000 * ms},
		{"server disabled", 4000 * ms, 4000 * ms, 0, 0, 0, 0},
		{"client disabled", 0, 0, 4000 * ms, 4000 * ms, 0, 0},
		{"server only sends", 4000 * ms, 4000 * ms, 5000 * ms, 0, 0, 5000 * ms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send, expect := negotiateHeartBeat(tt.cOut, tt.cIn, tt.sOut, tt.sIn)
			if send != tt.wantSend || expect != tt.wantExpect {
				t.Errorf("negotiateHeartBeat() = (%v, %v), want (%v, %v)", send, expect, tt.wantSend, tt.wantExpect)
			}
		})
	}
}

func TestParseHeartBeat(t *testing.T) {
	out, in, err := parseHeartBeat("4000,10000")
	if err != nil {
		t.Fatalf("parseHeartBeat() error = %v", err)
	}
	if out != 4*time.Second || in != 10*time.Second {
		t.Errorf("parseHeartBeat() = (%v, %v), want (4s, 10s)", out, in)
	}

	if out, in, err := parseHeartBeat(""); err != nil || out != 0 || in != 0 {
		t.Errorf("parseHeartBeat(\"\") = (%v, %v, %v), want zeros", out, in, err)
	}

	for _, bad := range []string{"4000", "a,b", "-1,0", "1,2,3"} {
		if _, _, err := parseHeartBeat(bad); err == nil {
			t.Errorf("parseHeartBeat(%q) expected error", bad)
		}
	}
}

func TestFormatHeartBeat(t *testing.T) {
	if got := formatHeartBeat(4*time.Second, 0); got != "4000,0" {
		t.Errorf("formatHeartBeat() = %q, want %q", got, "4000,0")
	}
}

func TestDecodeHeartbeatFrame(t *testing.T) {
	for _, data := range [][]byte{[]byte("\n"), []byte("\r\n"), {}} {
		f, err := decodeFrame(data)
		if err != nil || f != nil {
			t.Errorf("decodeFrame(%q) = (%v, %v), want heart-beat", data, f, err)
		}
	}
}

func TestSendFrameRoundTrip(t *testing.T) {
	body := []byte(`{"frequency":5000}`)
	data, err := encodeFrame(sendFrame("/app/blower/frequency", body, map[string]string{"content-type": "application/json"}))
	if err != nil {
		t.Fatalf("encodeFrame() error = %v", err)
	}

	f, err := decodeFrame(data)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if f.Command != cmdSend {
		t.Errorf("Command = %q, want %q", f.Command, cmdSend)
	}
	if got := f.Header.Get(hdrDestination); got != "/app/blower/frequency" {
		t.Errorf("destination = %q", got)
	}
	if got := f.Header.Get(hdrContentLength); got != "18" {
		t.Errorf("content-length = %q, want 18", got)
	}
	if string(f.Body) != string(body) {
		t.Errorf("Body = %q, want %q", f.Body, body)
	}
}

func TestErrorFromFrame(t *testing.T) {
	err := &ErrorFrame{Message: "malformed frame", Body: "details"}
	if got := err.Error(); got != "broker error: malformed frame: details" {
		t.Errorf("Error() = %q", got)
	}
	err.Body = ""
	if got := err.Error(); got != "broker error: malformed frame" {
		t.Errorf("Error() = %q", got)
	}
}
