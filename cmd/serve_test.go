// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/livebuffer"
	"github.com/Thermoquad/anemostat/pkg/session"
	"github.com/Thermoquad/anemostat/pkg/transport/transporttest"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateServer(t *testing.T) (*echo.Echo, *session.Session, *transporttest.Fake) {
	t.Helper()
	fake := transporttest.New()
	reg := prometheus.NewRegistry()
	samples := livebuffer.New[blower.TemperatureSample](3)
	sess := session.New(fake,
		session.WithMetrics(session.NewMetrics(reg)),
		session.WithTemperatureBuffer(samples),
	)
	t.Cleanup(func() { sess.Stop() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := newStateServer(&stateServer{sess: sess, samples: samples}, reg, log)
	return e, sess, fake
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServeHealth(t *testing.T) {
	e, sess, fake := newTestStateServer(t)

	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"link":"disconnected"}`, rec.Body.String())

	require.NoError(t, sess.Start(context.Background()))
	fake.Connect()

	rec = get(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"link":"connected"}`, rec.Body.String())
}

func TestServeStateAndTemperature(t *testing.T) {
	e, sess, fake := newTestStateServer(t)

	rec := get(e, "/temperature")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.NoError(t, sess.Start(context.Background()))
	fake.Connect()
	fake.Deliver(blower.TopicTemperature, `{"value":21.5,"deviceId":"T1","masterId":3}`)
	fake.Deliver(blower.TopicTemperature, `{"value":22,"deviceId":"T1","masterId":3}`)
	fake.Deliver(blower.TopicDeviceStatus, `{"deviceId":"B1","status":"ON"}`)

	rec = get(e, "/temperature")
	require.Equal(t, http.StatusOK, rec.Code)
	var samples []blower.TemperatureSample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &samples))
	require.Len(t, samples, 2)
	assert.Equal(t, 21.5, samples[0].Value)
	assert.Equal(t, 22.0, samples[1].Value)

	rec = get(e, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		State       string                    `json:"state"`
		Endpoint    string                    `json:"endpoint"`
		Device      *blower.DeviceStatus      `json:"device_status"`
		Temperature *blower.TemperatureSample `json:"temperature"`
		Parameters  *blower.BlowerParameters  `json:"blower_parameters"`
		Stats       struct {
			TotalMessages uint64 `json:"total_messages"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "connected", state.State)
	assert.Equal(t, "fake", state.Endpoint)
	require.NotNil(t, state.Device)
	assert.Equal(t, blower.PowerOn, state.Device.Status)
	require.NotNil(t, state.Temperature)
	assert.Equal(t, 22.0, state.Temperature.Value)
	assert.Nil(t, state.Parameters)
	assert.Equal(t, uint64(3), state.Stats.TotalMessages)
}

func TestServeMetrics(t *testing.T) {
	e, sess, fake := newTestStateServer(t)

	require.NoError(t, sess.Start(context.Background()))
	fake.Connect()
	fake.Deliver(blower.TopicTemperature, `{"value":21.5}`)
	fake.Deliver(blower.TopicTemperature, `not json`)

	rec := get(e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `anemostat_messages_total{topic="/topic/temperature"} 2`)
	assert.Contains(t, body, `anemostat_decode_failures_total{topic="/topic/temperature"} 1`)
	assert.Contains(t, body, `anemostat_link_state{state="connected"} 1`)
}

func TestServeUnknownRoute(t *testing.T) {
	e, _, _ := newTestStateServer(t)
	rec := get(e, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
