// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Thermoquad/anemostat/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Configuration file
	configPath string

	// Endpoint flags
	transportURL string
	apiURL       string
	noSSLVerify  bool

	// Tuning flags
	reconnectDelay time.Duration
	bufferSize     int

	// Logging flags
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "anemostat",
	Short: "Blower controller operator console",
	Long: `Anemostat - A CLI tool for operating a blower attached to an industrial controller.

Live telemetry (device status, controller link, temperature and blower
parameters) arrives over a message broker; commands travel back the same way.
Controllers and the temperature history are read from the backend REST API.

Broker URLs:
  STOMP over WebSocket: --url ws://host:8080/ws (http:// is rewritten to ws://)
  MQTT:                 --url tcp://host:1883

Settings are read, in increasing precedence, from built-in defaults, the YAML
file given by --config (or ANEMOSTAT_CONFIG), ANEMOSTAT_* environment
variables and flags.`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	// Endpoint flags
	rootCmd.PersistentFlags().StringVarP(&transportURL, "url", "u", "", "Broker URL (ws://, wss://, http://, https://, tcp://, ssl://)")
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api", "a", "", "Backend REST API base URL")
	rootCmd.PersistentFlags().BoolVar(&noSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification")

	// Tuning flags
	rootCmd.PersistentFlags().DurationVar(&reconnectDelay, "reconnect-delay", 0, "Wait between connection attempts (default from config, 5s)")
	rootCmd.PersistentFlags().IntVar(&bufferSize, "buffer-size", 0, "Recent temperature samples kept for the live view (default from config, 20)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig layers the persistent flags over the file and environment
// configuration. Only flags the user set override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Transport.URL = transportURL
	}
	if flags.Changed("api") {
		cfg.API.URL = apiURL
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Transport.InsecureSkipVerify = noSSLVerify
	}
	if flags.Changed("reconnect-delay") {
		cfg.Transport.ReconnectDelay = reconnectDelay
	}
	if flags.Changed("buffer-size") {
		cfg.Live.BufferSize = bufferSize
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the text logger described by cfg. Without a log file,
// records go to fallback; a nil fallback discards them. The returned closer
// must be called when the command exits.
func newLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, func() error, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	w := fallback
	closer := func() error { return nil }
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = f.Close
	}
	if w == nil {
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}
