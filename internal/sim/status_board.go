package sim

import (
	"sort"
	"sync"
	"time"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/telemetry"
)

// VehicleStatus is the latest known state of one vehicle.
type VehicleStatus struct {
	VehicleID       telemetry.VehicleID   `json:"vehicle_id"`
	State           State                 `json:"state"`
	Position        telemetry.GeoPosition `json:"position"`
	Speed           float64               `json:"speed"`
	EngineTemp      float64               `json:"engine_temp"`
	Accepted        int                   `json:"accepted"`
	Rejected        int                   `json:"rejected"`
	TransportErrors int                   `json:"transport_errors"`
	LastOutcome     string                `json:"last_outcome,omitempty"`
	LastMessage     string                `json:"last_message,omitempty"`
	LastError       string                `json:"last_error,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// FleetHealth summarizes the fleet for the admin endpoint.
type FleetHealth struct {
	RunID           string         `json:"run_id"`
	Vehicles        int            `json:"vehicles"`
	States          map[string]int `json:"states"`
	Accepted        int            `json:"accepted"`
	Rejected        int            `json:"rejected"`
	TransportErrors int            `json:"transport_errors"`
	Fatal           int            `json:"fatal"`
}

// StatusBoard keeps per-vehicle status from the event stream.
type StatusBoard struct {
	mu       sync.RWMutex
	runID    string
	vehicles map[telemetry.VehicleID]*VehicleStatus
	fatal    int
}

// NewStatusBoard returns an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{vehicles: make(map[telemetry.VehicleID]*VehicleStatus)}
}

// WriteEvent implements EventWriter.
func (b *StatusBoard) WriteEvent(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev.RunID != "" {
		b.runID = ev.RunID
	}
	st, ok := b.vehicles[ev.VehicleID]
	if !ok {
		st = &VehicleStatus{VehicleID: ev.VehicleID}
		b.vehicles[ev.VehicleID] = st
	}
	st.State = ev.State
	st.UpdatedAt = ev.Time
	if ev.Kind != EventTick {
		return nil
	}

	st.LastOutcome = ev.Outcome.String()
	st.LastError = ev.Error
	switch ev.Outcome {
	case ingest.OutcomeAccepted:
		st.Accepted++
		st.LastMessage = ev.Message
	case ingest.OutcomeRejected:
		st.Rejected++
		st.LastMessage = ev.Message
	case ingest.OutcomeTransport:
		st.TransportErrors++
	case ingest.OutcomeFatal:
		b.fatal++
	}
	if ev.Outcome != ingest.OutcomeFatal && ev.Outcome != ingest.OutcomeCanceled {
		st.Position = ev.Reading.Position
		st.Speed = ev.Reading.Speed
		st.EngineTemp = ev.Reading.EngineTemp
	}
	return nil
}

// Snapshot returns a copy of every vehicle status ordered by identity.
func (b *StatusBoard) Snapshot() []VehicleStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]VehicleStatus, 0, len(b.vehicles))
	for _, st := range b.vehicles {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// Health aggregates the board.
func (b *StatusBoard) Health() FleetHealth {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h := FleetHealth{
		RunID:    b.runID,
		Vehicles: len(b.vehicles),
		States:   make(map[string]int),
		Fatal:    b.fatal,
	}
	for _, st := range b.vehicles {
		h.States[st.State.String()]++
		h.Accepted += st.Accepted
		h.Rejected += st.Rejected
		h.TransportErrors += st.TransportErrors
	}
	return h
}
