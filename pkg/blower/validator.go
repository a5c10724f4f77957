// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

import (
	"fmt"
	"math"
)

// Plausibility limits for decoded telemetry. Readings outside these ranges
// indicate a corrupt payload rather than a real measurement.
const (
	MinTemperature = -273.15
	MaxTemperature = 2000.0
)

// ValidationError describes a decoded message whose values are implausible.
type ValidationError struct {
	Field   string
	Message string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidateTemperature rejects non-finite and physically impossible readings.
func ValidateTemperature(s TemperatureSample) error {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return &ValidationError{Field: "value", Message: "not a finite number"}
	}
	if s.Value < MinTemperature || s.Value > MaxTemperature {
		return &ValidationError{
			Field:   "value",
			Message: fmt.Sprintf("%.2f outside [%.2f, %.0f]", s.Value, MinTemperature, MaxTemperature),
		}
	}
	return nil
}

// ValidateBlowerParameters rejects negative electrical readings.
func ValidateBlowerParameters(p BlowerParameters) error {
	if p.Frequency < 0 {
		return &ValidationError{Field: "frequency", Message: fmt.Sprintf("negative value %d", p.Frequency)}
	}
	if p.Ampere < 0 {
		return &ValidationError{Field: "ampere", Message: fmt.Sprintf("negative value %d", p.Ampere)}
	}
	if p.Voltage < 0 {
		return &ValidationError{Field: "voltage", Message: fmt.Sprintf("negative value %d", p.Voltage)}
	}
	return nil
}
