// Package metrics exports fleet activity as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/sim"
)

// PromSink records vehicle events in Prometheus metrics.
type PromSink struct {
	ticks   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	active  prometheus.Gauge
}

// NewPromSink registers the fleet metrics on reg. If reg is nil, the default
// registerer is used. Collectors that are already registered are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geostream_sim_ticks_total",
		Help: "SendData calls by vehicle and outcome",
	}, []string{"vehicle_id", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geostream_sim_rpc_latency_seconds",
		Help:    "SendData round-trip time",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geostream_sim_active_vehicles",
		Help: "Vehicles holding a backend connection",
	})

	var err error
	if ticks, err = register(reg, ticks); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if active, err = register(reg, active); err != nil {
		return nil, err
	}
	return &PromSink{ticks: ticks, latency: latency, active: active}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// WriteEvent implements sim.EventWriter.
func (s *PromSink) WriteEvent(ev sim.Event) error {
	switch ev.Kind {
	case sim.EventTick:
		outcome := ev.Outcome.String()
		s.ticks.WithLabelValues(ev.VehicleID.String(), outcome).Inc()
		if ev.Outcome != ingest.OutcomeCanceled && ev.Latency > 0 {
			s.latency.WithLabelValues(outcome).Observe(ev.Latency.Seconds())
		}
	case sim.EventState:
		switch {
		case ev.State == sim.StateConnected:
			s.active.Inc()
		case ev.State == sim.StateStopped && ev.Prev != sim.StateStarting:
			s.active.Dec()
		}
	}
	return nil
}
