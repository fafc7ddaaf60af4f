// Fleet configuration loader: koanf file/env layering with CUE validation
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"geostream-sim/internal/telemetry"
)

// EnvPrefix prefixes environment overrides, e.g. GEOSTREAM_BACKEND__ADDRESS.
const EnvPrefix = "GEOSTREAM_"

// Backend describes the ingestion endpoint.
type Backend struct {
	Address string `yaml:"address"`
	Method  string `yaml:"method"`
	// CallTimeout bounds each SendData call. Zero disables the deadline.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// Fleet sizes the simulated fleet and names its vehicles.
type Fleet struct {
	Size     int    `yaml:"size"`
	IDPrefix string `yaml:"id_prefix"`
	IDWidth  int    `yaml:"id_width"`
	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// Region defines the starting area of the fleet.
type Region struct {
	Name      string  `yaml:"name"`
	CenterLat float64 `yaml:"center_lat"`
	CenterLon float64 `yaml:"center_lon"`
	Jitter    float64 `yaml:"jitter"`
}

// Motion bounds per-tick vehicle behavior.
type Motion struct {
	StepDelta     float64 `yaml:"step_delta"`
	SpeedMin      float64 `yaml:"speed_min"`
	SpeedMax      float64 `yaml:"speed_max"`
	EngineTempMin float64 `yaml:"engine_temp_min"`
	EngineTempMax float64 `yaml:"engine_temp_max"`
}

// Tick controls the pause between two sends of the same vehicle. With a
// non-zero Jitter the pause is uniform in [Interval-Jitter, Interval+Jitter].
type Tick struct {
	Interval time.Duration `yaml:"interval"`
	Jitter   time.Duration `yaml:"jitter"`
}

// Admin configures the optional HTTP status server.
type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Logging selects log verbosity and output format ("console" or "json").
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration of a simulation run.
type Config struct {
	Backend         Backend       `yaml:"backend"`
	Fleet           Fleet         `yaml:"fleet"`
	Region          Region        `yaml:"region"`
	Motion          Motion        `yaml:"motion"`
	Tick            Tick          `yaml:"tick"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Admin           Admin         `yaml:"admin"`
	Logging         Logging       `yaml:"logging"`
}

// Default returns the single-truck scenario.
func Default() Config {
	return Config{
		Backend: Backend{Address: "localhost:50051", Method: "/telemetry.v1.TelemetryService/SendData"},
		Fleet:   Fleet{Size: 1, IDPrefix: "TRUCK", IDWidth: 3},
		Region:  Region{Name: "nyc", CenterLat: 40.7128, CenterLon: -74.0060},
		Motion: Motion{
			StepDelta:     0.0005,
			SpeedMin:      30,
			SpeedMax:      65,
			EngineTempMin: 180,
			EngineTempMax: 210,
		},
		Tick:            Tick{Interval: time.Second},
		ShutdownTimeout: 5 * time.Second,
		Admin:           Admin{Addr: ":8080"},
		Logging:         Logging{Level: "info", Format: "console"},
	}
}

// Load reads the configuration at path on top of Default and applies
// environment overrides. YAML files are validated against the CUE schema
// first; an empty schemaPath uses the embedded schema. An empty path yields
// the defaults plus environment.
func Load(path, schemaPath string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := ValidateWithCue(path, schemaPath); err != nil {
				return nil, err
			}
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", path)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps GEOSTREAM_TICK__INTERVAL to tick.interval.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks semantic constraints the schema cannot express.
func (c Config) Validate() error {
	switch {
	case c.Backend.Address == "":
		return fmt.Errorf("backend.address is required")
	case c.Backend.CallTimeout < 0:
		return fmt.Errorf("backend.call_timeout must not be negative")
	case c.Fleet.Size < 1:
		return fmt.Errorf("fleet.size must be at least 1, got %d", c.Fleet.Size)
	case c.Fleet.IDPrefix == "":
		return fmt.Errorf("fleet.id_prefix is required")
	case c.Fleet.IDWidth < 1 || c.Fleet.IDWidth > 9:
		return fmt.Errorf("fleet.id_width must be within 1..9, got %d", c.Fleet.IDWidth)
	case c.Region.Jitter < 0:
		return fmt.Errorf("region.jitter must not be negative")
	case c.Motion.StepDelta < 0:
		return fmt.Errorf("motion.step_delta must not be negative")
	case c.Motion.SpeedMin > c.Motion.SpeedMax:
		return fmt.Errorf("motion.speed_min %.2f exceeds speed_max %.2f", c.Motion.SpeedMin, c.Motion.SpeedMax)
	case c.Motion.EngineTempMin > c.Motion.EngineTempMax:
		return fmt.Errorf("motion.engine_temp_min %.2f exceeds engine_temp_max %.2f", c.Motion.EngineTempMin, c.Motion.EngineTempMax)
	case c.Tick.Interval <= 0:
		return fmt.Errorf("tick.interval must be positive")
	case c.Tick.Jitter < 0 || c.Tick.Jitter >= c.Tick.Interval:
		return fmt.Errorf("tick.jitter must be within [0, interval)")
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

// StartRegion converts the region section for the generator.
func (c Config) StartRegion() telemetry.Region {
	return telemetry.Region{
		Name:      c.Region.Name,
		CenterLat: c.Region.CenterLat,
		CenterLon: c.Region.CenterLon,
		Jitter:    c.Region.Jitter,
	}
}

// VehicleMotion converts the motion section for the generator.
func (c Config) VehicleMotion() telemetry.Motion {
	return telemetry.Motion{
		StepDelta:  c.Motion.StepDelta,
		Speed:      telemetry.Range{Min: c.Motion.SpeedMin, Max: c.Motion.SpeedMax},
		EngineTemp: telemetry.Range{Min: c.Motion.EngineTempMin, Max: c.Motion.EngineTempMax},
	}
}
