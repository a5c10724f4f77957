// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Thermoquad/anemostat/pkg/blower"
)

// Statistics tracks message and command counts and rates
type Statistics struct {
	StartTime       time.Time `json:"start_time"`
	LastMessageTime time.Time `json:"last_message_time"`

	// Counters
	TotalMessages    uint64            `json:"total_messages"`
	ValidMessages    uint64            `json:"valid_messages"`
	DecodeErrors     uint64            `json:"decode_errors"`
	InvalidValues    uint64            `json:"invalid_values"`
	UnknownTopics    uint64            `json:"unknown_topics"`
	ByTopic          map[string]uint64 `json:"by_topic"`
	CommandsSent     uint64            `json:"commands_sent"`
	CommandsRejected uint64            `json:"commands_rejected"`
	Reconnects       uint64            `json:"reconnects"`

	// Rates (calculated)
	MessageRate float64 `json:"message_rate"` // messages/sec
	ErrorRate   float64 `json:"error_rate"`   // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		ByTopic:   make(map[string]uint64),
	}
}

// Update records one inbound message and its decode result
func (s *Statistics) Update(topic string, decodeErr error) {
	s.TotalMessages++
	s.ByTopic[topic]++
	s.LastMessageTime = time.Now()

	if decodeErr == nil {
		s.ValidMessages++
		return
	}

	// Out-of-range values are counted apart from malformed payloads
	var validationErr *blower.ValidationError
	switch {
	case errors.Is(decodeErr, blower.ErrUnknownTopic):
		s.UnknownTopics++
	case errors.As(decodeErr, &validationErr):
		s.InvalidValues++
	default:
		s.DecodeErrors++
	}
}

// RecordCommand records the outcome of one SendCommand call
func (s *Statistics) RecordCommand(err error) {
	if err != nil {
		s.CommandsRejected++
		return
	}
	s.CommandsSent++
}

// Errors returns the number of dropped inbound messages
func (s *Statistics) Errors() uint64 {
	return s.DecodeErrors + s.InvalidValues + s.UnknownTopics
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.TotalMessages) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// Clone returns a deep copy with rates calculated
func (s *Statistics) Clone() Statistics {
	c := *s
	c.ByTopic = make(map[string]uint64, len(s.ByTopic))
	for k, v := range s.ByTopic {
		c.ByTopic[k] = v
	}
	c.CalculateRates()
	return c
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalMessages > 0 {
		validPercent = float64(s.ValidMessages) * 100.0 / float64(s.TotalMessages)
		errorPercent = float64(s.Errors()) * 100.0 / float64(s.TotalMessages)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Messages:  %8d\n", s.TotalMessages)
	result += fmt.Sprintf("Valid Messages:  %8d (%.1f%%)\n", s.ValidMessages, validPercent)

	if s.Errors() > 0 {
		result += fmt.Sprintf("Dropped:         %8d (%.1f%%)\n", s.Errors(), errorPercent)
		if s.DecodeErrors > 0 {
			result += fmt.Sprintf("  Decode Errors:    %5d\n", s.DecodeErrors)
		}
		if s.InvalidValues > 0 {
			result += fmt.Sprintf("  Invalid Values:   %5d\n", s.InvalidValues)
		}
		if s.UnknownTopics > 0 {
			result += fmt.Sprintf("  Unknown Topics:   %5d\n", s.UnknownTopics)
		}
	}

	topics := make([]string, 0, len(s.ByTopic))
	for topic := range s.ByTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		result += fmt.Sprintf("  %-26s %5d\n", topic, s.ByTopic[topic])
	}

	result += fmt.Sprintf("Commands Sent:   %8d\n", s.CommandsSent)
	if s.CommandsRejected > 0 {
		result += fmt.Sprintf("Commands Failed: %8d\n", s.CommandsRejected)
	}
	if s.Reconnects > 0 {
		result += fmt.Sprintf("Reconnects:      %8d\n", s.Reconnects)
	}
	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
