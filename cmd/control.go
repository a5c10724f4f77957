// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Thermoquad/anemostat/pkg/api"
	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/livebuffer"
	"github.com/Thermoquad/anemostat/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive dashboard for the blower",
	Long: `Monitor and control the blower via an interactive terminal UI.

Features:
  - Broker link state with automatic reconnection
  - Controller list with connect / disconnect (needs --api)
  - Blower on / off and frequency setpoint
  - Live temperature with a sparkline of recent samples
  - Blower frequency, current and voltage
  - Paginated temperature history with a date filter (needs --api)
  - Statistics and event log

Tab switches between panels. When stdout is not a terminal the command falls
back to the line-oriented output of "anemostat monitor".`,
	Args: cobra.NoArgs,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return monitor(cfg, os.Stdout, 0)
	}

	// The dashboard owns the terminal; logs only go to --log-file.
	log, closeLog, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	// REST features are optional
	var client *api.Client
	if cfg.API.URL != "" {
		client, err = OpenAPIClient(cfg, log)
		if err != nil {
			return err
		}
	}

	samples := livebuffer.New[blower.TemperatureSample](cfg.Live.BufferSize)

	var p *tea.Program
	sess, err := OpenSession(cfg, log,
		session.WithTemperatureBuffer(samples),
		session.WithObserver(func(ev session.Event) {
			p.Send(sessionEventMsg{event: ev})
		}),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := initialControlModel(ctx, sess, client, samples)

	// Create TUI program with alt screen and mouse support
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	// The session is started from Init so observer sends reach a running program.
	if _, err := p.Run(); err != nil {
		cancel()
		sess.Stop()
		return fmt.Errorf("TUI error: %v", err)
	}

	cancel()
	return sess.Stop()
}
