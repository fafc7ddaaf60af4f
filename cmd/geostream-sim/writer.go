package main

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"geostream-sim/internal/admin"
	"geostream-sim/internal/config"
	"geostream-sim/internal/metrics"
	"geostream-sim/internal/sim"
)

// writers bundles the event observers of one run.
type writers struct {
	events sim.EventWriter
	board  *sim.StatusBoard
	hub    *admin.Hub
}

// newWriters wires the status board and Prometheus sink, a websocket hub when
// the admin server is enabled, and a JSON event stream when eventsOut is set.
// extra writers such as the TUI are appended as given.
func newWriters(cfg *config.Config, reg prometheus.Registerer, eventsOut io.Writer, extra ...sim.EventWriter) (writers, error) {
	sink, err := metrics.NewPromSink(reg)
	if err != nil {
		return writers{}, err
	}
	ws := writers{board: sim.NewStatusBoard()}
	list := []sim.EventWriter{ws.board, sink}
	if cfg.Admin.Enabled {
		ws.hub = admin.NewHub()
		list = append(list, ws.hub)
	}
	if eventsOut != nil {
		list = append(list, sim.NewJSONWriter(eventsOut))
	}
	list = append(list, extra...)
	ws.events = sim.NewMultiWriter(list...)
	return ws, nil
}
