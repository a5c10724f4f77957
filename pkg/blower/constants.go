// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blower

// Telemetry topics (backend → operator)
const (
	TopicDeviceStatus     = "/topic/device/status"
	TopicConnectionStatus = "/topic/connection/status"
	TopicTemperature      = "/topic/temperature"
	TopicBlowerParameters = "/topic/blower/parameters"
)

// Topics lists every telemetry topic a session subscribes to, in subscription order.
var Topics = []string{
	TopicDeviceStatus,
	TopicConnectionStatus,
	TopicTemperature,
	TopicBlowerParameters,
}

// Command destinations (operator → backend)
const (
	DestinationDeviceCommand   = "/app/device/command"
	DestinationBlowerFrequency = "/app/blower/frequency"
)

// ContentTypeJSON is sent as the content-type header of every command.
const ContentTypeJSON = "application/json"

// Command actions carried in the "action" field of device commands
const (
	ActionConnectMaster    = "CONNECT_MASTER"
	ActionDisconnectMaster = "DISCONNECT_MASTER"
	ActionTurnOnBlower     = "TURN_ON_BLOWER"
	ActionTurnOffBlower    = "TURN_OFF_BLOWER"
)

// Wire unit divisors. Physical quantities travel as integers.
const (
	FrequencyDivisor = 100 // centi-hertz
	AmpereDivisor    = 100 // centi-ampere
	VoltageDivisor   = 10  // deci-volt
)

// PowerState is the blower power state reported on TopicDeviceStatus.
type PowerState string

const (
	PowerOn      PowerState = "ON"
	PowerOff     PowerState = "OFF"
	PowerUnknown PowerState = "Unknown"
)

// ParsePowerState maps a wire status string to a PowerState.
// Anything other than ON or OFF is Unknown.
func ParsePowerState(s string) PowerState {
	switch PowerState(s) {
	case PowerOn:
		return PowerOn
	case PowerOff:
		return PowerOff
	}
	return PowerUnknown
}

// LinkStatus is the backend-to-controller link state reported on
// TopicConnectionStatus. It is unrelated to the operator's own transport link.
type LinkStatus string

const (
	LinkConnected    LinkStatus = "Connected"
	LinkDisconnected LinkStatus = "Disconnected"
	LinkUnknown      LinkStatus = "Unknown"
)

// ParseLinkStatus maps a wire status string to a LinkStatus.
func ParseLinkStatus(s string) LinkStatus {
	switch LinkStatus(s) {
	case LinkConnected:
		return LinkConnected
	case LinkDisconnected:
		return LinkDisconnected
	}
	return LinkUnknown
}
