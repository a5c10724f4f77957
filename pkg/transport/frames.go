// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

// STOMP commands
const (
	cmdConnect     = "CONNECT"
	cmdConnected   = "CONNECTED"
	cmdSend        = "SEND"
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
	cmdDisconnect  = "DISCONNECT"
	cmdMessage     = "MESSAGE"
	cmdReceipt     = "RECEIPT"
	cmdError       = "ERROR"
)

// STOMP headers
const (
	hdrAcceptVersion = "accept-version"
	hdrVersion       = "version"
	hdrHost          = "host"
	hdrHeartBeat     = "heart-beat"
	hdrDestination   = "destination"
	hdrID            = "id"
	hdrAck           = "ack"
	hdrSubscription  = "subscription"
	hdrContentType   = "content-type"
	hdrContentLength = "content-length"
	hdrMessage       = "message"
)

const stompVersion = "1.2"

// heartbeatFrame is the single EOL a peer sends to keep the connection alive.
var heartbeatFrame = []byte("\n")

// ErrorFrame is the error raised when the broker sends an ERROR frame.
type ErrorFrame struct {
	Message string
	Body    string
}

func (e *ErrorFrame) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("broker error: %s: %s", e.Message, e.Body)
	}
	return fmt.Sprintf("broker error: %s", e.Message)
}

// encodeFrame serializes f into one websocket text message.
func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Command, err)
	}
	return buf.Bytes(), nil
}

// decodeFrame parses one websocket message. A nil frame with a nil error is
// a heart-beat.
func decodeFrame(data []byte) (*frame.Frame, error) {
	if len(bytes.TrimLeft(data, "\r\n")) == 0 {
		return nil, nil
	}
	f, err := frame.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

func connectFrame(host string, heartbeat time.Duration) *frame.Frame {
	hb := formatHeartBeat(heartbeat, heartbeat)
	return frame.New(cmdConnect,
		hdrAcceptVersion, stompVersion,
		hdrHost, host,
		hdrHeartBeat, hb,
	)
}

func sendFrame(destination string, body []byte, headers map[string]string) *frame.Frame {
	f := frame.New(cmdSend, hdrDestination, destination)
	for k, v := range headers {
		f.Header.Set(k, v)
	}
	f.Header.Set(hdrContentLength, strconv.Itoa(len(body)))
	f.Body = body
	return f
}

func subscribeFrame(id, destination string) *frame.Frame {
	return frame.New(cmdSubscribe,
		hdrID, id,
		hdrDestination, destination,
		hdrAck, "auto",
	)
}

func unsubscribeFrame(id string) *frame.Frame {
	return frame.New(cmdUnsubscribe, hdrID, id)
}

func disconnectFrame() *frame.Frame {
	return frame.New(cmdDisconnect)
}

func errorFromFrame(f *frame.Frame) *ErrorFrame {
	return &ErrorFrame{
		Message: f.Header.Get(hdrMessage),
		Body:    strings.TrimSpace(string(f.Body)),
	}
}

func formatHeartBeat(out, in time.Duration) string {
	return strconv.FormatInt(out.Milliseconds(), 10) + "," + strconv.FormatInt(in.Milliseconds(), 10)
}

// parseHeartBeat parses a "cx,cy" heart-beat header. A missing header means
// no heart-beats in either direction.
func parseHeartBeat(value string) (out, in time.Duration, err error) {
	if value == "" {
		return 0, 0, nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid heart-beat header %q", value)
	}
	x, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || x < 0 {
		return 0, 0, fmt.Errorf("invalid heart-beat header %q", value)
	}
	y, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || y < 0 {
		return 0, 0, fmt.Errorf("invalid heart-beat header %q", value)
	}
	return time.Duration(x) * time.Millisecond, time.Duration(y) * time.Millisecond, nil
}

// negotiateHeartBeat applies the STOMP 1.2 rules: each direction uses the
// larger of what the sender can do and what the receiver wants, and is off
// when either side says 0.
func negotiateHeartBeat(clientOut, clientIn, serverOut, serverIn time.Duration) (send, expect time.Duration) {
	if clientOut > 0 && serverIn > 0 {
		send = max(clientOut, serverIn)
	}
	if clientIn > 0 && serverOut > 0 {
		expect = max(clientIn, serverOut)
	}
	return send, expect
}
