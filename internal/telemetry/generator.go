package telemetry

import "time"

// Rand is the subset of *rand.Rand used by the generator. Each vehicle owns
// its own source so sequences are reproducible per vehicle.
type Rand interface {
	Float64() float64
}

// Motion bounds the per-tick evolution of a vehicle.
type Motion struct {
	// StepDelta is the maximum absolute change in degrees per axis and tick.
	StepDelta  float64
	Speed      Range
	EngineTemp Range
}

// Generator produces readings for a single vehicle.
type Generator struct {
	motion Motion
	rng    Rand
	now    func() time.Time
}

// NewGenerator creates a generator drawing from rng.
func NewGenerator(motion Motion, rng Rand) *Generator {
	return &Generator{motion: motion, rng: rng, now: time.Now}
}

// WithClock replaces the wall clock used to stamp readings.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// InitialPosition returns the region center offset by a uniform delta in
// [-Jitter, +Jitter] on each axis.
func (g *Generator) InitialPosition(region Region) GeoPosition {
	return GeoPosition{
		Lat: region.CenterLat + symmetric(g.rng, region.Jitter),
		Lon: region.CenterLon + symmetric(g.rng, region.Jitter),
	}
}

// Step advances pos by one random-walk step and returns the new position
// together with the reading to transmit for it.
func (g *Generator) Step(id VehicleID, pos GeoPosition) (GeoPosition, Reading) {
	next := GeoPosition{
		Lat: pos.Lat + symmetric(g.rng, g.motion.StepDelta),
		Lon: pos.Lon + symmetric(g.rng, g.motion.StepDelta),
	}
	return next, Reading{
		VehicleID:  id,
		Position:   next,
		Speed:      uniform(g.rng, g.motion.Speed),
		EngineTemp: uniform(g.rng, g.motion.EngineTemp),
		Timestamp:  g.now().UTC(),
	}
}

func uniform(r Rand, rg Range) float64 {
	return rg.Min + r.Float64()*(rg.Max-rg.Min)
}

func symmetric(r Rand, bound float64) float64 {
	if bound <= 0 {
		return 0
	}
	return uniform(r, Range{Min: -bound, Max: bound})
}
