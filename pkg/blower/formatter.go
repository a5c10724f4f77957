// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

import (
	"fmt"
	"strconv"
)

// NotAvailable is shown for channels that have not reported yet.
const NotAvailable = "N/A"

// FormatTemperature renders a reading the way the dashboard shows it,
// e.g. "21.5°C". The value is printed with the shortest exact representation.
func FormatTemperature(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "°C"
}

// FormatSample renders a sample or NotAvailable when s is nil.
func FormatSample(s *TemperatureSample) string {
	if s == nil {
		return NotAvailable
	}
	return FormatTemperature(s.Value)
}

// FormatFrequency renders wire centi-hertz as hertz with two decimals.
func FormatFrequency(wire int) string {
	return fmt.Sprintf("%.2f", float64(wire)/FrequencyDivisor)
}

// FormatAmpere renders wire centi-amperes as amperes with two decimals.
func FormatAmpere(wire int) string {
	return fmt.Sprintf("%.2f", float64(wire)/AmpereDivisor)
}

// FormatVoltage renders wire deci-volts as volts with one decimal.
func FormatVoltage(wire int) string {
	return fmt.Sprintf("%.1f", float64(wire)/VoltageDivisor)
}

// FormatParameters renders all blower readings on one line.
func FormatParameters(p *BlowerParameters) string {
	if p == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%s Hz  %s A  %s V",
		FormatFrequency(p.Frequency), FormatAmpere(p.Ampere), FormatVoltage(p.Voltage))
}

// FormatMaster renders a master as shown in selection lists.
func FormatMaster(m Master) string {
	return fmt.Sprintf("%s - %s", m.Name, m.IPAddress)
}
