// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/config"
	"github.com/Thermoquad/anemostat/pkg/session"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print live telemetry as it arrives",
	Long: `Connect to the broker and print one line per telemetry message.

Every line starts with the local receive time. Link changes, dropped
messages and periodic statistics are printed alongside the telemetry.
The connection is retried until interrupted.

This is also what "anemostat control" runs when stdout is not a terminal.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

var monitorStatsInterval time.Duration

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorStatsInterval, "stats", 0, "Print statistics at this interval (0 disables)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return monitor(cfg, os.Stdout, monitorStatsInterval)
}

// monitor streams session events to out until interrupted.
func monitor(cfg *config.Config, out io.Writer, statsInterval time.Duration) error {
	log, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	events := make(chan session.Event, 64)
	done := make(chan struct{})
	sess, err := OpenSession(cfg, log, session.WithObserver(func(ev session.Event) {
		select {
		case events <- ev:
		case <-done:
		}
	}))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(out, "Anemostat - Live Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", sess.Endpoint())
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	if err := sess.Start(ctx); err != nil {
		return err
	}

	var statsC <-chan time.Time
	if statsInterval > 0 {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		statsC = ticker.C
	}

	for {
		select {
		case ev := <-events:
			fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05.000"), formatEvent(ev))
		case <-statsC:
			stats := sess.Snapshot().Stats
			stats.CalculateRates()
			fmt.Fprint(out, stats.String())
		case <-ctx.Done():
			close(done)
			return sess.Stop()
		}
	}
}

// formatEvent renders one session event as a single line.
func formatEvent(ev session.Event) string {
	switch e := ev.(type) {
	case session.LinkChanged:
		if e.Err != nil {
			return fmt.Sprintf("LINK %s -> %s: %v", e.From, e.To, e.Err)
		}
		return fmt.Sprintf("LINK %s -> %s", e.From, e.To)
	case session.DeviceStatusUpdated:
		return fmt.Sprintf("DEVICE %s status=%s", e.Status.DeviceID, e.Status.Status)
	case session.ConnectionStatusUpdated:
		return fmt.Sprintf("CONTROLLER master=%d link=%s", e.Status.MasterID, e.Status.Status)
	case session.TemperatureUpdated:
		return fmt.Sprintf("TEMPERATURE %s device=%s master=%d",
			blower.FormatTemperature(e.Sample.Value), e.Sample.DeviceID, e.Sample.MasterID)
	case session.BlowerParametersUpdated:
		return fmt.Sprintf("BLOWER %s device=%s",
			blower.FormatParameters(&e.Parameters), e.Parameters.DeviceID)
	case session.DecodeFailed:
		return fmt.Sprintf("[ERROR] %s: %v", e.Topic, e.Err)
	case session.CommandSent:
		return fmt.Sprintf("SENT %s", e.Command.Name())
	case session.CommandRejected:
		return fmt.Sprintf("[ERROR] %s not sent: %v", e.Command.Name(), e.Err)
	}
	return fmt.Sprintf("%T", ev)
}
