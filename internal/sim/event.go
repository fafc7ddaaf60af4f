package sim

import (
	"time"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/telemetry"
)

// State is the lifecycle stage of a vehicle worker.
type State int

const (
	StateStarting State = iota
	StateConnected
	StateSending
	StateWaiting
	StateStopped
)

var stateNames = [...]string{
	StateStarting:  "STARTING",
	StateConnected: "CONNECTED",
	StateSending:   "SENDING",
	StateWaiting:   "WAITING",
	StateStopped:   "STOPPED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventKind tells state transitions apart from send results.
type EventKind int

const (
	// EventState reports a worker changing State.
	EventState EventKind = iota
	// EventTick reports the outcome of one SendData call.
	EventTick
)

func (k EventKind) String() string {
	if k == EventTick {
		return "tick"
	}
	return "state"
}

// MarshalText renders the kind name in JSON.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is what workers publish to observers. State events carry State and
// Prev; tick events carry Outcome, Reading and Latency.
type Event struct {
	Kind      EventKind           `json:"kind"`
	RunID     string              `json:"run_id"`
	VehicleID telemetry.VehicleID `json:"vehicle_id"`
	State     State               `json:"state"`
	Prev      State               `json:"prev_state"`
	Outcome   ingest.Outcome      `json:"outcome"`
	Reading   telemetry.Reading   `json:"reading"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	Latency   time.Duration       `json:"latency_ns"`
	Time      time.Time           `json:"time"`
}

// EventWriter receives worker events. Implementations are called from every
// vehicle goroutine concurrently and must not block for long.
type EventWriter interface {
	WriteEvent(Event) error
}
