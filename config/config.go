// Package config provides configuration loading and access for the simulations.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Physarum  PhysarumConfig  `yaml:"physarum"`
	Metaballs MetaballsConfig `yaml:"metaballs"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	TargetFPS  int    `yaml:"target_fps"`
	Simulation string `yaml:"simulation"` // simulation shown at startup
	Resizable  bool   `yaml:"resizable"`
}

// Seed modes for physarum resets.
const (
	SeedEdges  = "edges"
	SeedCenter = "center"
)

// PhysarumConfig holds the agent simulation parameters. Per-species arrays
// are indexed by species 0..2.
type PhysarumConfig struct {
	ParticleWidth          int    `yaml:"particle_width"` // agent grid is N x N
	SpeciesCount           int    `yaml:"species_count"`
	SingleTeam             int    `yaml:"single_team"`
	SeedMode               string `yaml:"seed_mode"`
	InitialActiveParticles int    `yaml:"initial_active_particles"`

	MousePush        bool    `yaml:"mouse_push"`
	MouseRadius      float32 `yaml:"mouse_radius"`
	MousePlaceAmount int     `yaml:"mouse_place_amount"`
	MousePlaceRadius float32 `yaml:"mouse_place_radius"`
	MousePlaceColor  int     `yaml:"mouse_place_color"` // -1 = random

	SobelFilter    bool    `yaml:"sobel_filter"`
	Monochrome     bool    `yaml:"monochrome"`
	DotOpacity     float32 `yaml:"dot_opacity"`
	TrailOpacity   float32 `yaml:"trail_opacity"`
	FlatShading    bool    `yaml:"flat_shading"`
	ColorThreshold float32 `yaml:"color_threshold"`
	ShowCellCount  bool    `yaml:"show_cell_count"`

	Decay            float32 `yaml:"decay"`
	Displacement     bool    `yaml:"displacement"`
	RestrictToMiddle bool    `yaml:"restrict_to_middle"`

	MoveSpeed      [3]float32    `yaml:"move_speed"`
	SensorDistance [3]float32    `yaml:"sensor_distance"`
	RotationAngle  [3]float32    `yaml:"rotation_angle"`
	SensorAngle    [3]float32    `yaml:"sensor_angle"`
	DotSize        [3]float32    `yaml:"dot_size"`
	Infectious     [3]bool       `yaml:"infectious"`
	Attract        [3][3]float32 `yaml:"attract"` // Attract[s][t]: pull of species t's trail on species s
	Colors         [3]string     `yaml:"colors"`
}

// Colour modes for metaballs.
const (
	ColorModeSingle  = "single"
	ColorModePalette = "palette"
)

// MetaballsConfig holds the metaballs parameters.
type MetaballsConfig struct {
	GridSize             int         `yaml:"grid_size"`
	BallCount            int         `yaml:"ball_count"`
	Animate              bool        `yaml:"animate"`
	Speed                float32     `yaml:"speed"`
	Threshold            float32     `yaml:"threshold"`
	Softness             float32     `yaml:"softness"`
	LineWidthPx          float32     `yaml:"line_width_px"`
	ShowContours         bool        `yaml:"show_contours"`
	ColorMode            string      `yaml:"color_mode"`
	Palette              string      `yaml:"palette"`
	UsePaletteBackground bool        `yaml:"use_palette_background"`
	BlobColor            string      `yaml:"blob_color"`
	Background           string      `yaml:"background"`
	Click                ClickConfig `yaml:"click"`
	Bloom                BloomConfig `yaml:"bloom"`
}

// ClickConfig controls ball insertion on pointer press.
type ClickConfig struct {
	AddOnClick    bool    `yaml:"add_on_click"`
	MinRadius     float32 `yaml:"min_radius"`
	MaxRadius     float32 `yaml:"max_radius"`
	ReplaceOldest bool    `yaml:"replace_oldest"`
	Motion        float32 `yaml:"motion"`
}

// BloomConfig controls the glow post-process.
type BloomConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Strength  float32 `yaml:"strength"`
	Radius    float32 `yaml:"radius"`
	Threshold float32 `yaml:"threshold"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow         int `yaml:"perf_window"`         // frames in the rolling perf window
	StatsInterval      int `yaml:"stats_interval"`      // frames between perf log lines
	PopulationInterval int `yaml:"population_interval"` // frames between census readbacks
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

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
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
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Screen.Simulation {
	case "physarum", "metaballs":
	default:
		return fmt.Errorf("screen.simulation: unknown simulation %q", c.Screen.Simulation)
	}
	switch strings.ToLower(c.Physarum.SeedMode) {
	case SeedEdges, SeedCenter:
	default:
		return fmt.Errorf("physarum.seed_mode: unknown mode %q", c.Physarum.SeedMode)
	}
	switch c.Physarum.SpeciesCount {
	case 1, 3:
	default:
		return fmt.Errorf("physarum.species_count: must be 1 or 3, got %d", c.Physarum.SpeciesCount)
	}
	if c.Physarum.ParticleWidth < 1 {
		return fmt.Errorf("physarum.particle_width: must be positive, got %d", c.Physarum.ParticleWidth)
	}
	switch strings.ToLower(c.Metaballs.ColorMode) {
	case ColorModeSingle, ColorModePalette:
	default:
		return fmt.Errorf("metaballs.color_mode: unknown mode %q", c.Metaballs.ColorMode)
	}
	if c.Metaballs.GridSize < 2 {
		return fmt.Errorf("metaballs.grid_size: must be at least 2, got %d", c.Metaballs.GridSize)
	}
	return nil
}

// normalize lower-cases enum strings and clamps counts into range.
func (c *Config) normalize() {
	c.Physarum.SeedMode = strings.ToLower(c.Physarum.SeedMode)
	c.Physarum.SingleTeam = max(0, min(2, c.Physarum.SingleTeam))
	c.Physarum.InitialActiveParticles = max(0, c.Physarum.InitialActiveParticles)
	c.Metaballs.ColorMode = strings.ToLower(c.Metaballs.ColorMode)
	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 60
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
