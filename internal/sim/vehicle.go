package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/logging"
	"geostream-sim/internal/telemetry"
)

// ErrVehiclePanic wraps a panic recovered inside a vehicle worker.
var ErrVehiclePanic = errors.New("vehicle panicked")

// VehicleConfig holds what a worker needs besides its identity.
type VehicleConfig struct {
	RunID  string
	Region telemetry.Region
	Motion telemetry.Motion
	// Interval is the nominal pause between sends; Jitter widens it to
	// [Interval-Jitter, Interval+Jitter].
	Interval    time.Duration
	Jitter      time.Duration
	CallTimeout time.Duration
	Dialer      ingest.Dialer
	Writer      EventWriter
}

// Vehicle is one simulated truck. It owns its position, its random source
// and its backend connection; nothing is shared with other vehicles.
type Vehicle struct {
	ID telemetry.VehicleID

	cfg   VehicleConfig
	rng   telemetry.Rand
	gen   *telemetry.Generator
	start telemetry.GeoPosition
	state atomic.Int32
	now   func() time.Time
}

// NewVehicle places a vehicle in cfg.Region using rng for all randomness.
func NewVehicle(id telemetry.VehicleID, rng telemetry.Rand, cfg VehicleConfig) *Vehicle {
	gen := telemetry.NewGenerator(cfg.Motion, rng)
	v := &Vehicle{
		ID:    id,
		cfg:   cfg,
		rng:   rng,
		gen:   gen,
		start: gen.InitialPosition(cfg.Region),
		now:   time.Now,
	}
	v.state.Store(int32(StateStarting))
	return v
}

// Start returns the position the vehicle began at.
func (v *Vehicle) Start() telemetry.GeoPosition { return v.start }

// State returns the current lifecycle state.
func (v *Vehicle) State() State { return State(v.state.Load()) }

// Run connects to the backend and sends one reading per tick until ctx is
// canceled or a fatal error occurs. The connection is released exactly once
// on every exit path and the vehicle always ends in StateStopped. Transport
// failures and backend rejections are logged and never stop the loop.
func (v *Vehicle) Run(ctx context.Context) (err error) {
	log := logging.FromContext(ctx).With().Str("vehicle_id", v.ID.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrVehiclePanic, v.ID, r)
			log.Error().Err(err).Msg("vehicle terminating")
			v.emit(Event{Kind: EventTick, Outcome: ingest.OutcomeFatal, Error: err.Error()}, log)
		}
		v.transition(StateStopped, log)
	}()

	client, err := v.cfg.Dialer.Dial(ctx, v.ID)
	if err != nil {
		log.Error().Err(err).Msg("connection failed, vehicle terminating")
		return fmt.Errorf("dial %s: %w", v.ID, err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing connection")
		}
	}()
	v.transition(StateConnected, log)
	log.Info().
		Float64("lat", v.start.Lat).
		Float64("lon", v.start.Lon).
		Msg("vehicle connected")

	pos := v.start
	for ctx.Err() == nil {
		v.transition(StateSending, log)
		var reading telemetry.Reading
		pos, reading = v.gen.Step(v.ID, pos)

		outcome, err := v.send(ctx, client, reading, log)
		switch {
		case outcome == ingest.OutcomeCanceled:
			return nil
		case !outcome.Recoverable():
			return err
		}

		v.transition(StateWaiting, log)
		if !sleep(ctx, v.pause()) {
			return nil
		}
	}
	return nil
}

func (v *Vehicle) send(ctx context.Context, client ingest.Client, r telemetry.Reading, log zerolog.Logger) (ingest.Outcome, error) {
	callCtx := ctx
	if v.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, v.cfg.CallTimeout)
		defer cancel()
	}

	began := time.Now()
	res, err := client.SendData(callCtx, r)
	latency := time.Since(began)
	outcome := ingest.Classify(ctx, res, err)

	switch outcome {
	case ingest.OutcomeAccepted:
		log.Info().
			Float64("lat", r.Position.Lat).
			Float64("lon", r.Position.Lon).
			Float64("speed", r.Speed).
			Float64("engine_temp", r.EngineTemp).
			Str("backend_message", res.Message).
			Msg("reading accepted")
	case ingest.OutcomeRejected:
		log.Warn().Str("backend_message", res.Message).Msg("backend rejected reading")
	case ingest.OutcomeTransport:
		log.Warn().Err(err).Str("code", ingest.Code(err).String()).Msg("send failed")
	case ingest.OutcomeFatal:
		err = fmt.Errorf("send %s: %w", v.ID, err)
		log.Error().Err(err).Msg("vehicle terminating")
	case ingest.OutcomeCanceled:
		log.Debug().Msg("send abandoned on shutdown")
	}

	ev := Event{Kind: EventTick, Outcome: outcome, Reading: r, Message: res.Message, Latency: latency}
	if err != nil {
		ev.Error = err.Error()
	}
	v.emit(ev, log)
	return outcome, err
}

// pause draws the wait before the next send.
func (v *Vehicle) pause() time.Duration {
	if v.cfg.Jitter <= 0 {
		return v.cfg.Interval
	}
	span := float64(2 * v.cfg.Jitter)
	return v.cfg.Interval - v.cfg.Jitter + time.Duration(v.rng.Float64()*span)
}

func (v *Vehicle) transition(to State, log zerolog.Logger) {
	from := State(v.state.Swap(int32(to)))
	if from == to {
		return
	}
	log.Debug().Stringer("from", from).Stringer("to", to).Msg("state change")
	v.emit(Event{Kind: EventState, State: to, Prev: from}, log)
}

func (v *Vehicle) emit(ev Event, log zerolog.Logger) {
	if v.cfg.Writer == nil {
		return
	}
	ev.RunID = v.cfg.RunID
	ev.VehicleID = v.ID
	if ev.Kind == EventTick {
		ev.State = v.State()
	}
	ev.Time = v.now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("event writer panicked")
		}
	}()
	if err := v.cfg.Writer.WriteEvent(ev); err != nil {
		log.Debug().Err(err).Msg("event writer failed")
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
