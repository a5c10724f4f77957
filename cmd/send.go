// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <connect IP | disconnect | on | off | frequency HZ>",
	Short: "Send one command to the blower",
	Long: `Connect to the broker, send a single command and disconnect.

Commands:
  connect IP       Ask the backend to open its link to the controller at IP
  disconnect       Ask the backend to close its controller link
  on               Turn the blower on
  off              Turn the blower off
  frequency HZ     Set the blower frequency in hertz (e.g. 35.5)

The command is sent at most once. If the broker is not reachable before
--timeout expires, nothing is sent and the command exits with an error.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

var sendTimeout time.Duration

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "How long to wait for the broker connection")
}

// parseCommandArgs maps command-line words onto a blower command.
func parseCommandArgs(args []string) (blower.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}

	verb := strings.ToLower(args[0])
	rest := args[1:]

	want := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", verb, n, len(rest))
		}
		return nil
	}

	switch verb {
	case "connect":
		if err := want(1); err != nil {
			return nil, err
		}
		if strings.TrimSpace(rest[0]) == "" {
			return nil, blower.ErrMissingIPAddress
		}
		return blower.ConnectMaster{IPAddress: rest[0]}, nil
	case "disconnect":
		if err := want(0); err != nil {
			return nil, err
		}
		return blower.DisconnectMaster{}, nil
	case "on":
		if err := want(0); err != nil {
			return nil, err
		}
		return blower.BlowerOn{}, nil
	case "off":
		if err := want(0); err != nil {
			return nil, err
		}
		return blower.BlowerOff{}, nil
	case "frequency", "freq":
		if err := want(1); err != nil {
			return nil, err
		}
		return blower.ParseFrequency(rest[0])
	}
	return nil, fmt.Errorf("%w: %q", blower.ErrUnknownCommand, args[0])
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := parseCommandArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	observe, connected := connectedSignal()
	sess, err := OpenSession(cfg, log, observe)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Stop()

	if err := waitConnected(ctx, sess, connected, sendTimeout); err != nil {
		return err
	}

	if err := sess.SendCommand(command); err != nil {
		return err
	}

	fmt.Printf("Sent %s to %s\n", command.Name(), sess.Endpoint())
	return nil
}
