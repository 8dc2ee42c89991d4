// Package config provides configuration loading and access for the wind simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Clock policies.
const (
	ClockWallclock = "wallclock"
	ClockFixed     = "fixed"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Wind      WindConfig      `yaml:"wind"`
	Life      LifeConfig      `yaml:"life"`
	Clock     ClockConfig     `yaml:"clock"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Field     FieldConfig     `yaml:"field"`
	Layers    []LayerConfig   `yaml:"layers"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	TargetFPS int     `yaml:"target_fps"`
	PointSize float64 `yaml:"point_size"`
}

// WindConfig holds the advection parameters.
type WindConfig struct {
	Step     int     `yaml:"step"`      // Subsampling factor from field resolution to tracer grid
	WindGain float64 `yaml:"wind_gain"` // Multiplier applied to decoded wind before integration
	LTarget  float64 `yaml:"l_target"`  // UV path length that makes up one full life
	DistMin  float64 `yaml:"dist_min"`  // Floor on per-step UV distance credited to life
}

// LifeConfig bounds the life budget drawn on reseed.
type LifeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ClockConfig selects the per-frame dt policy.
type ClockConfig struct {
	Policy     string  `yaml:"policy"`       // "wallclock" or "fixed"
	TimeScale  float64 `yaml:"time_scale"`   // Simulated seconds per wall second (wallclock)
	MaxFrameDT float64 `yaml:"max_frame_dt"` // Per-frame cap in simulated seconds (wallclock, 0 = none)
	FixedDT    float64 `yaml:"fixed_dt"`     // Simulated seconds per frame (fixed)
	MaxElapsed float64 `yaml:"max_elapsed"`  // Freeze after this much simulated time (fixed, 0 = never)
}

// ParallelConfig holds worker pool settings.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // Below this many cells the pass runs on the caller
}

// FieldConfig describes where wind slices come from.
type FieldConfig struct {
	Dir       string  `yaml:"dir"`        // Directory of uv_YYYYMMDDHH images ("" = synthetic)
	RangeMPS  float64 `yaml:"range_mps"`  // m/s represented by a fully saturated channel (0 = per level)
	Width     int     `yaml:"width"`      // Synthetic field width
	Height    int     `yaml:"height"`     // Synthetic field height
	Synthetic string  `yaml:"synthetic"`  // "trade_winds" or "uniform"
	UniformU  float64 `yaml:"uniform_u"`  // Eastward m/s for the uniform field
	UniformV  float64 `yaml:"uniform_v"`  // Northward m/s for the uniform field
	SliceSecs float64 `yaml:"slice_secs"` // Simulated seconds between synthetic slices
}

// LayerConfig declares one simulated pressure level.
type LayerConfig struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"` // hPa
	Dir   string `yaml:"dir"`   // Overrides Field.Dir for this layer
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"`          // Frames per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"` // Frames in the perf rolling window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	LifeSpan   float64 // Life.Max - Life.Min
	CreditMin  float64 // Wind.DistMin / Wind.LTarget, the smallest per-frame life credit
	ScreenW32  float32
	ScreenH32  float32
	LayerIndex map[string]int // name -> index into Layers
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks option ranges. Errors name the offending yaml key.
func (c *Config) Validate() error {
	var errs []error
	if c.Wind.Step < 1 {
		errs = append(errs, fmt.Errorf("wind.step must be >= 1, got %d", c.Wind.Step))
	}
	if !finite(c.Wind.WindGain) {
		errs = append(errs, fmt.Errorf("wind.wind_gain must be finite, got %v", c.Wind.WindGain))
	}
	if !(c.Wind.LTarget > 0) || !finite(c.Wind.LTarget) {
		errs = append(errs, fmt.Errorf("wind.l_target must be > 0, got %v", c.Wind.LTarget))
	}
	if !(c.Wind.DistMin > 0) || !finite(c.Wind.DistMin) {
		errs = append(errs, fmt.Errorf("wind.dist_min must be > 0, got %v", c.Wind.DistMin))
	}
	if !(c.Life.Min > 0) || !(c.Life.Max >= c.Life.Min) || !finite(c.Life.Max) {
		errs = append(errs, fmt.Errorf("life range must satisfy 0 < min <= max, got [%v, %v]", c.Life.Min, c.Life.Max))
	}
	switch c.Clock.Policy {
	case ClockWallclock:
		if !(c.Clock.TimeScale > 0) {
			errs = append(errs, fmt.Errorf("clock.time_scale must be > 0, got %v", c.Clock.TimeScale))
		}
	case ClockFixed:
		if !(c.Clock.FixedDT > 0) {
			errs = append(errs, fmt.Errorf("clock.fixed_dt must be > 0, got %v", c.Clock.FixedDT))
		}
	default:
		errs = append(errs, fmt.Errorf("clock.policy %q is not one of %q, %q", c.Clock.Policy, ClockWallclock, ClockFixed))
	}
	if c.Clock.MaxFrameDT < 0 || c.Clock.MaxElapsed < 0 {
		errs = append(errs, errors.New("clock.max_frame_dt and clock.max_elapsed must be >= 0"))
	}
	if c.Parallel.Workers < 0 {
		errs = append(errs, fmt.Errorf("parallel.workers must be >= 0, got %d", c.Parallel.Workers))
	}
	if c.Field.RangeMPS < 0 {
		errs = append(errs, fmt.Errorf("field.range_mps must be >= 0, got %v", c.Field.RangeMPS))
	}
	seen := make(map[string]bool, len(c.Layers))
	for _, l := range c.Layers {
		if l.Name == "" {
			errs = append(errs, errors.New("layers: every layer needs a name"))
			continue
		}
		if seen[l.Name] {
			errs = append(errs, fmt.Errorf("layers: duplicate layer %q", l.Name))
		}
		seen[l.Name] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.LifeSpan = c.Life.Max - c.Life.Min
	c.Derived.CreditMin = c.Wind.DistMin / c.Wind.LTarget
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	// A config without layers still simulates one level
	if len(c.Layers) == 0 {
		c.Layers = []LayerConfig{{Name: "500hpa", Level: 500}}
	}

	c.Derived.LayerIndex = make(map[string]int, len(c.Layers))
	for i, l := range c.Layers {
		c.Derived.LayerIndex[l.Name] = i
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
