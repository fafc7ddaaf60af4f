package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/metrics"
	"geostream-sim/internal/sim"
	"geostream-sim/internal/telemetry"
)

func seededBoard(t *testing.T) *sim.StatusBoard {
	t.Helper()
	b := sim.NewStatusBoard()
	events := []sim.Event{
		{Kind: sim.EventState, RunID: "run-1", VehicleID: "TRUCK-001", State: sim.StateConnected},
		{Kind: sim.EventTick, RunID: "run-1", VehicleID: "TRUCK-001", State: sim.StateSending,
			Outcome: ingest.OutcomeAccepted, Reading: telemetry.Reading{Position: telemetry.GeoPosition{Lat: 40.7130, Lon: -74.0061}}},
		{Kind: sim.EventState, RunID: "run-1", VehicleID: "TRUCK-002", State: sim.StateStopped, Prev: sim.StateStarting},
	}
	for _, ev := range events {
		require.NoError(t, b.WriteEvent(ev))
	}
	return b
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(seededBoard(t), nil, prometheus.NewRegistry())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fleet-health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var h sim.FleetHealth
	require.NoError(t, json.NewDecoder(w.Body).Decode(&h))
	assert.Equal(t, "run-1", h.RunID)
	assert.Equal(t, 2, h.Vehicles)
	assert.Equal(t, 1, h.Accepted)
	assert.Equal(t, 1, h.States["STOPPED"])
}

func TestHandleVehicles(t *testing.T) {
	srv := NewServer(seededBoard(t), nil, prometheus.NewRegistry())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vehicles", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var vehicles []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&vehicles))
	require.Len(t, vehicles, 2)
	assert.Equal(t, "TRUCK-001", vehicles[0]["vehicle_id"])
	assert.Equal(t, "SENDING", vehicles[0]["state"])
}

func TestHandleIndex(t *testing.T) {
	srv := NewServer(seededBoard(t), NewHub(), prometheus.NewRegistry())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "TRUCK-002")
	assert.Contains(t, body, "40.71300")
	assert.Contains(t, body, "new WebSocket")
}

func TestHandleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSink(reg)
	require.NoError(t, err)
	require.NoError(t, sink.WriteEvent(sim.Event{Kind: sim.EventTick, VehicleID: "TRUCK-001", Outcome: ingest.OutcomeAccepted}))

	srv := NewServer(sim.NewStatusBoard(), nil, reg)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `geostream_sim_ticks_total{outcome="accepted",vehicle_id="TRUCK-001"} 1`)
}

func TestWebsocketStream(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(NewServer(sim.NewStatusBoard(), hub, prometheus.NewRegistry()).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, time.Millisecond)

	require.NoError(t, hub.WriteEvent(sim.Event{Kind: sim.EventTick, VehicleID: "TRUCK-001", Outcome: ingest.OutcomeRejected, Message: "duplicate"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "TRUCK-001", ev["vehicle_id"])
	assert.Equal(t, "rejected", ev["outcome"])

	hub.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, time.Millisecond)
}

func TestStartShutsDownOnCancel(t *testing.T) {
	srv := NewServer(sim.NewStatusBoard(), NewHub(), prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(NewServer(sim.NewStatusBoard(), nil, nil).Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
