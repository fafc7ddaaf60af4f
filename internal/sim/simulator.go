// Fleet coordinator: one goroutine per vehicle, bounded shutdown
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"geostream-sim/internal/config"
	"geostream-sim/internal/ingest"
	"geostream-sim/internal/logging"
	"geostream-sim/internal/telemetry"
)

// ErrShutdownTimeout is returned when vehicles are still running once the
// shutdown grace period has passed.
var ErrShutdownTimeout = errors.New("shutdown timed out")

// Simulator runs a fleet of independent vehicles against one backend.
type Simulator struct {
	runID           string
	vehicles        []*Vehicle
	shutdownTimeout time.Duration
	active          atomic.Int32
}

// NewSimulator builds the fleet described by cfg. Vehicle i draws from a
// source seeded with cfg.Fleet.Seed+i, so a fixed seed reproduces a run.
func NewSimulator(runID string, cfg *config.Config, dialer ingest.Dialer, writer EventWriter) *Simulator {
	seed := cfg.Fleet.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ids := VehicleIDs(cfg.Fleet.IDPrefix, cfg.Fleet.IDWidth, cfg.Fleet.Size)
	vcfg := VehicleConfig{
		RunID:       runID,
		Region:      cfg.StartRegion(),
		Motion:      cfg.VehicleMotion(),
		Interval:    cfg.Tick.Interval,
		Jitter:      cfg.Tick.Jitter,
		CallTimeout: cfg.Backend.CallTimeout,
		Dialer:      dialer,
		Writer:      writer,
	}
	s := &Simulator{runID: runID, shutdownTimeout: cfg.ShutdownTimeout}
	for i, id := range ids {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		s.vehicles = append(s.vehicles, NewVehicle(id, rng, vcfg))
	}
	return s
}

// VehicleIDs returns n identities of the form PREFIX-001.
func VehicleIDs(prefix string, width, n int) []telemetry.VehicleID {
	ids := make([]telemetry.VehicleID, n)
	for i := range ids {
		ids[i] = telemetry.VehicleID(fmt.Sprintf("%s-%0*d", prefix, width, i+1))
	}
	return ids
}

// RunID identifies this run in logs, metadata and events.
func (s *Simulator) RunID() string { return s.runID }

// Vehicles returns the fleet in identity order.
func (s *Simulator) Vehicles() []*Vehicle { return s.vehicles }

// Active returns the number of vehicle goroutines that have not returned.
func (s *Simulator) Active() int { return int(s.active.Load()) }

// Run starts every vehicle and blocks until ctx is canceled and all vehicles
// have stopped. A failing vehicle never affects its siblings, and a fleet
// whose vehicles all stopped on their own still waits for cancellation.
// After cancellation Run waits at most the shutdown timeout.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info().Int("vehicles", len(s.vehicles)).Msg("starting fleet")

	var wg sync.WaitGroup
	for _, v := range s.vehicles {
		wg.Add(1)
		s.active.Add(1)
		go func(v *Vehicle) {
			defer wg.Done()
			defer s.active.Add(-1)
			// The vehicle already logged why it stopped.
			if err := v.Run(ctx); err != nil {
				log.Debug().Err(err).Str("vehicle_id", v.ID.String()).Msg("vehicle returned")
			}
		}(v)
	}
	log.Info().Int("active", s.Active()).Msg("fleet dispatched")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if ctx.Err() == nil {
			log.Warn().Msg("every vehicle stopped, waiting for interrupt")
			<-ctx.Done()
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", s.shutdownTimeout).Msg("stopping fleet")
	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		log.Info().Msg("fleet stopped")
		return nil
	case <-timer.C:
		hung := s.running()
		log.Error().Strs("vehicles", hung).Msg("vehicles did not stop in time")
		return fmt.Errorf("%w: %s", ErrShutdownTimeout, strings.Join(hung, ", "))
	}
}

func (s *Simulator) running() []string {
	var ids []string
	for _, v := range s.vehicles {
		if v.State() != StateStopped {
			ids = append(ids, v.ID.String())
		}
	}
	return ids
}
