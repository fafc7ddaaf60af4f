// Telemetry value types shared by the generator and the vehicle workers
package telemetry

import "time"

// VehicleID names one simulated vehicle within a run, e.g. "TRUCK-001".
type VehicleID string

func (id VehicleID) String() string { return string(id) }

// GeoPosition holds latitude and longitude in decimal degrees.
type GeoPosition struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Region is the starting area of a fleet. Vehicles start at the center
// offset by up to Jitter degrees on each axis.
type Region struct {
	Name      string
	CenterLat float64
	CenterLon float64
	Jitter    float64
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Reading is one telemetry sample as transmitted to the ingestion backend.
type Reading struct {
	VehicleID  VehicleID   `json:"truck_id"`
	Position   GeoPosition `json:"position"`
	Speed      float64     `json:"speed"`
	EngineTemp float64     `json:"engine_temp"`
	Timestamp  time.Time   `json:"timestamp"`
}
