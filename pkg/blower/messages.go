// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

// DeviceStatus is the blower power state as last reported by the backend.
type DeviceStatus struct {
	DeviceID  string     `json:"deviceId"`
	Status    PowerState `json:"status"`
	Timestamp Timestamp  `json:"timestamp"`
}

// ConnectionStatus reports whether the backend's link to the physical
// controller is up.
type ConnectionStatus struct {
	Status    LinkStatus `json:"status"`
	MasterID  int        `json:"masterId"`
	Timestamp Timestamp  `json:"timestamp"`
}

// TemperatureSample is one temperature reading in degrees Celsius.
type TemperatureSample struct {
	Value     float64   `json:"value"`
	DeviceID  string    `json:"deviceId"`
	MasterID  int       `json:"masterId"`
	Timestamp Timestamp `json:"timestamp"`
}

// BlowerParameters carries the blower's electrical readings in wire units.
type BlowerParameters struct {
	Frequency int       `json:"frequency"`
	Ampere    int       `json:"ampere"`
	Voltage   int       `json:"voltage"`
	DeviceID  string    `json:"deviceId"`
	MasterID  int       `json:"masterId"`
	Timestamp Timestamp `json:"timestamp"`
}

// FrequencyHz returns the frequency in hertz.
func (p BlowerParameters) FrequencyHz() float64 {
	return float64(p.Frequency) / FrequencyDivisor
}

// AmpereA returns the current in amperes.
func (p BlowerParameters) AmpereA() float64 {
	return float64(p.Ampere) / AmpereDivisor
}

// VoltageV returns the voltage in volts.
func (p BlowerParameters) VoltageV() float64 {
	return float64(p.Voltage) / VoltageDivisor
}

// Master is a controller known to the backend. Read-only reference data.
type Master struct {
	ID        int    `json:"id"`
	Name      string `json:"masterName"`
	IPAddress string `json:"masterIpAddress"`
	Port      int    `json:"masterPort"`
	PLCID     int    `json:"plcId"`
	Location  string `json:"masterLocation"`
}

// TemperatureLogRow is one historical temperature record.
type TemperatureLogRow struct {
	ID             int64     `json:"id"`
	Value          float64   `json:"value1"`
	DeviceName     string    `json:"deviceName"`
	MasterName     string    `json:"masterName"`
	MasterLocation string    `json:"masterLocation"`
	AddressName    string    `json:"addressName,omitempty"`
	Timestamp      Timestamp `json:"timestamp"`
}

// TemperatureLogPage is one page of historical temperature records.
type TemperatureLogPage struct {
	Content     []TemperatureLogRow `json:"content"`
	CurrentPage int                 `json:"currentPage"`
	TotalItems  int64               `json:"totalItems"`
	TotalPages  int                 `json:"totalPages"`
	Size        int                 `json:"size"`
}
