// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/livebuffer"
	"github.com/Thermoquad/anemostat/pkg/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a headless session with a local HTTP state API",
	Long: `Keep a live session open and expose it over HTTP.

Endpoints:
  GET /state         JSON snapshot of the link and the latest telemetry
  GET /temperature   Recent temperature samples, oldest first
  GET /metrics       Prometheus metrics
  GET /healthz       200 while the broker link is up, 503 otherwise

The listen address defaults to serve.listen from the configuration (:9100).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveListen string

const serveShutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "HTTP listen address (default from config, :9100)")
}

// stateServer holds what the HTTP handlers read.
type stateServer struct {
	sess    *session.Session
	samples *livebuffer.Buffer[blower.TemperatureSample]
}

type healthResponse struct {
	Link session.LinkState `json:"link"`
}

func (s *stateServer) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sess.Snapshot())
}

func (s *stateServer) handleTemperature(c echo.Context) error {
	samples := s.samples.Snapshot()
	if samples == nil {
		samples = []blower.TemperatureSample{}
	}
	return c.JSON(http.StatusOK, samples)
}

func (s *stateServer) handleHealth(c echo.Context) error {
	state := s.sess.State()
	code := http.StatusOK
	if state != session.Connected {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, healthResponse{Link: state})
}

// newStateServer wires the routes onto a fresh echo instance.
func newStateServer(s *stateServer, reg *prometheus.Registry, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/state", s.handleState)
	e.GET("/temperature", s.handleTemperature)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return e
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Serve.Listen = serveListen
	}

	log, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	samples := livebuffer.New[blower.TemperatureSample](cfg.Live.BufferSize)
	sess, err := OpenSession(cfg, log,
		session.WithMetrics(session.NewMetrics(reg)),
		session.WithTemperatureBuffer(samples),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := newStateServer(&stateServer{sess: sess, samples: samples}, reg, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sess.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return sess.Stop()
	})

	g.Go(func() error {
		log.Info("serving state API", "listen", cfg.Serve.Listen, "endpoint", sess.Endpoint())
		if err := e.Start(cfg.Serve.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("state API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
