// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Layouts accepted for textual timestamps. The backend emits zone-less
// local date-times; RFC 3339 is accepted as well.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Timestamp is a backend timestamp. The raw text is kept so it can be shown
// exactly as received even when it cannot be parsed.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t, Raw: s}, nil
		}
	}
	return Timestamp{Raw: s}, fmt.Errorf("unrecognized timestamp %q", s)
}

// IsZero reports whether no timestamp was received.
func (t Timestamp) IsZero() bool {
	return t.Raw == "" && t.Time.IsZero()
}

// String returns the timestamp as received.
func (t Timestamp) String() string {
	if t.Raw != "" {
		return t.Raw
	}
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339Nano)
}

// Clock formats the time of day for compact displays, falling back to the raw text.
func (t Timestamp) Clock() string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format("15:04:05")
}

// MarshalJSON encodes the timestamp as received.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a date-time string or epoch milliseconds. Any other
// value is kept as raw text with a zero Time; it never fails the message.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = Timestamp{}
			return nil
		}
		// Unrecognized text keeps Raw only
		*t, _ = ParseTimestamp(s)
		return nil
	}

	if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*t = Timestamp{Time: time.UnixMilli(ms), Raw: string(data)}
		return nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*t = Timestamp{Raw: compact.String()}
	return nil
}
