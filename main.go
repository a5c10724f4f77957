// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Anemostat - Blower controller operator console
//
// A CLI tool for monitoring and controlling a blower attached to an
// industrial controller through a telemetry backend.

package main

import (
	"os"

	"github.com/Thermoquad/anemostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
