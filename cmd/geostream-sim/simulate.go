package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"geostream-sim/internal/admin"
	"geostream-sim/internal/config"
	"geostream-sim/internal/ingest"
	"geostream-sim/internal/logging"
	"geostream-sim/internal/sim"
)

var (
	simConfigPath  string
	simSchemaPath  string
	simAddress     string
	simVehicles    int
	simSeed        int64
	simInterval    time.Duration
	simJitter      time.Duration
	simCallTimeout time.Duration
	simAdminAddr   string
	simTUI         bool
	simEvents      bool
	simLogLevel    string
	simLogFormat   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Stream simulated fleet telemetry to the backend",
	Long:  "simulate starts one worker per vehicle. Each worker opens its own gRPC connection and sends a reading every tick until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runSimulation(cmd.Context(), cfg)
	},
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Backend.Address = simAddress
	}
	if flags.Changed("vehicles") {
		cfg.Fleet.Size = simVehicles
	}
	if flags.Changed("seed") {
		cfg.Fleet.Seed = simSeed
	}
	if flags.Changed("interval") {
		cfg.Tick.Interval = simInterval
	}
	if flags.Changed("jitter") {
		cfg.Tick.Jitter = simJitter
	}
	if flags.Changed("call-timeout") {
		cfg.Backend.CallTimeout = simCallTimeout
	}
	if flags.Changed("admin") {
		cfg.Admin.Enabled = simAdminAddr != ""
		if simAdminAddr != "" {
			cfg.Admin.Addr = simAdminAddr
		}
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = simLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = simLogFormat
	}
}

func runSimulation(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := uuid.NewString()

	var logOut io.Writer = os.Stdout
	var eventsOut io.Writer
	var extra []sim.EventWriter
	var tui *sim.TUIWriter
	switch {
	case simTUI:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("--tui requires a terminal")
		}
		tui = sim.NewTUIWriter(runID, cfg.Backend.Address, cancel)
		logOut = tui
		extra = append(extra, tui)
	case simEvents:
		eventsOut = os.Stdout
		logOut = os.Stderr
	}

	logger, err := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger = logger.With().Str("run_id", runID).Logger()
	ctx = logging.NewContext(ctx, logger)

	reg := prometheus.NewRegistry()
	ws, err := newWriters(cfg, reg, eventsOut, extra...)
	if err != nil {
		return err
	}

	dialer := ingest.GRPCDialer{
		Target: cfg.Backend.Address,
		Method: cfg.Backend.Method,
		RunID:  runID,
	}
	simulator := sim.NewSimulator(runID, cfg, dialer, ws.events)

	logger.Info().
		Str("backend", cfg.Backend.Address).
		Int("vehicles", cfg.Fleet.Size).
		Dur("interval", cfg.Tick.Interval).
		Str("region", cfg.Region.Name).
		Msg("simulation starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return simulator.Run(gctx)
	})
	if cfg.Admin.Enabled {
		srv := admin.NewServer(ws.board, ws.hub, reg)
		g.Go(func() error {
			return srv.Start(gctx, cfg.Admin.Addr)
		})
	}
	err = g.Wait()

	if tui != nil {
		tui.Close()
		fmt.Fprintf(os.Stdout, "simulation %s stopped\n", runID)
	}
	health := ws.board.Health()
	logger.Info().
		Int("accepted", health.Accepted).
		Int("rejected", health.Rejected).
		Int("transport_errors", health.TransportErrors).
		Int("fatal", health.Fatal).
		Msg("simulation stopped")
	return err
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simConfigPath, "config", "", "Path to fleet configuration (YAML or JSON)")
	f.StringVar(&simSchemaPath, "schema", "", "Path to CUE schema file (defaults to the built-in schema)")
	f.StringVar(&simAddress, "address", "", "Backend address host:port")
	f.IntVar(&simVehicles, "vehicles", 1, "Number of vehicles")
	f.Int64Var(&simSeed, "seed", 0, "Random seed (0 seeds from the clock)")
	f.DurationVar(&simInterval, "interval", time.Second, "Pause between two sends of a vehicle")
	f.DurationVar(&simJitter, "jitter", 0, "Uniform jitter applied to the interval")
	f.DurationVar(&simCallTimeout, "call-timeout", 0, "Deadline of each SendData call (0 disables)")
	f.StringVar(&simAdminAddr, "admin", "", "Serve the admin UI on this address (empty disables)")
	f.BoolVar(&simTUI, "tui", false, "Show a terminal dashboard")
	f.BoolVar(&simEvents, "events", false, "Print every vehicle event as JSON to STDOUT; logs go to STDERR")
	f.StringVar(&simLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&simLogFormat, "log-format", "console", "Log format (console or json)")
	simulateCmd.MarkFlagsMutuallyExclusive("tui", "events")
}
