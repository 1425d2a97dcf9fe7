package voxworld

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/mesh"
	"github.com/gekko3d/voxworld/engine/physics"
	"github.com/gekko3d/voxworld/engine/store"
	"github.com/gekko3d/voxworld/engine/terraingen"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the config file used when LoadConfig gets no path.
const ConfigEnv = "VOXWORLD_CONFIG"

type Config struct {
	App     AppConfig     `yaml:"app"`
	Log     LogConfig     `yaml:"log"`
	World   WorldConfig   `yaml:"world"`
	Mesher  MesherConfig  `yaml:"mesher"`
	Physics PhysicsConfig `yaml:"physics"`
	Store   StoreConfig   `yaml:"store"`
	Terrain TerrainConfig `yaml:"terrain"`
}

type AppConfig struct {
	TickRate         float64 `yaml:"tick_rate"`
	MaxTicksPerFrame int     `yaml:"max_ticks_per_frame"`
}

type LogConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

type WorldConfig struct {
	Name               string     `yaml:"name"`
	ChunkSize          int        `yaml:"chunk_size"`
	AddDistance        [2]float64 `yaml:"add_distance"`
	RemoveDistance     [2]float64 `yaml:"remove_distance"`
	MaxTickMillis      float64    `yaml:"max_tick_ms"`
	MaxRenderMillis    float64    `yaml:"max_render_ms"`
	MaxPendingCreation int        `yaml:"max_pending_creation"`
	MaxPendingMeshing  int        `yaml:"max_pending_meshing"`
	MinNeighborsToMesh int        `yaml:"min_neighbors_to_mesh"`
	ManualLoading      bool       `yaml:"manual_loading"`
}

type MesherConfig struct {
	AO        bool       `yaml:"ao"`
	ReverseAO bool       `yaml:"reverse_ao"`
	AOValues  [3]float64 `yaml:"ao_values"`
	RevAO     float64    `yaml:"reverse_ao_value"`
}

type PhysicsConfig struct {
	Gravity          [3]float64 `yaml:"gravity"`
	AirDrag          float64    `yaml:"air_drag"`
	FluidDrag        float64    `yaml:"fluid_drag"`
	FluidDensity     float64    `yaml:"fluid_density"`
	MinBounceImpulse float64    `yaml:"min_bounce_impulse"`
	SleepFrames      int        `yaml:"sleep_frames"`
}

type StoreConfig struct {
	// An empty Path with InMemory unset disables persistence.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type TerrainConfig struct {
	Seed          int64   `yaml:"seed"`
	Scale         float64 `yaml:"scale"`
	BaseHeight    float64 `yaml:"base_height"`
	Amplitude     float64 `yaml:"amplitude"`
	SeaLevel      int     `yaml:"sea_level"`
	DirtDepth     int     `yaml:"dirt_depth"`
	CaveThreshold float64 `yaml:"cave_threshold"`
	CaveScale     float64 `yaml:"cave_scale"`
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func fromMillis(ms float64) time.Duration { return time.Duration(ms * float64(time.Millisecond)) }

func DefaultConfig() Config {
	w := chunks.DefaultOptions()
	m := mesh.DefaultOptions()
	p := physics.DefaultOptions()
	t := terraingen.DefaultOptions()
	return Config{
		App: AppConfig{
			TickRate:         DefaultTickRate,
			MaxTicksPerFrame: DefaultMaxTicksPerFrame,
		},
		Log: LogConfig{Prefix: "voxworld"},
		World: WorldConfig{
			Name:               w.WorldName,
			ChunkSize:          w.ChunkSize,
			AddDistance:        w.AddDistance,
			RemoveDistance:     w.RemoveDistance,
			MaxTickMillis:      millis(w.MaxProcessingPerTick),
			MaxRenderMillis:    millis(w.MaxProcessingPerRender),
			MaxPendingCreation: w.MaxChunksPendingCreation,
			MaxPendingMeshing:  w.MaxChunksPendingMeshing,
			MinNeighborsToMesh: w.MinNeighborsToMesh,
		},
		Mesher: MesherConfig{
			AO:        m.UseAO,
			ReverseAO: m.ReverseAO,
			AOValues:  m.AOVals,
			RevAO:     m.RevAOVal,
		},
		Physics: PhysicsConfig{
			Gravity:          [3]float64(p.Gravity),
			AirDrag:          p.AirDrag,
			FluidDrag:        p.FluidDrag,
			FluidDensity:     p.FluidDensity,
			MinBounceImpulse: p.MinBounceImpulse,
			SleepFrames:      p.SleepFrames,
		},
		Terrain: TerrainConfig{
			Seed:          t.Seed,
			Scale:         t.Scale,
			BaseHeight:    t.BaseHeight,
			Amplitude:     t.Amplitude,
			SeaLevel:      t.SeaLevel,
			DirtDepth:     t.DirtDepth,
			CaveThreshold: t.CaveThreshold,
			CaveScale:     t.CaveScale,
		},
	}
}

// LoadConfig reads the YAML file at path, or at $VOXWORLD_CONFIG when path
// is empty, over the defaults. With neither it returns DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(ConfigEnv))
	}
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func badFloat(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

func (c Config) Validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.App.TickRate <= 0 || badFloat(c.App.TickRate), "app.tick_rate must be positive, got %v", c.App.TickRate)
	check(c.App.MaxTicksPerFrame <= 0, "app.max_ticks_per_frame must be positive, got %d", c.App.MaxTicksPerFrame)

	w := c.World
	check(w.ChunkSize < 8 || w.ChunkSize > 64, "world.chunk_size must be in 8..64, got %d", w.ChunkSize)
	for i, d := range append(w.AddDistance[:], w.RemoveDistance[:]...) {
		check(d < 0 || badFloat(d), "world distance #%d must be a non-negative number, got %v", i, d)
	}
	check(w.MaxTickMillis < 0 || badFloat(w.MaxTickMillis), "world.max_tick_ms must not be negative")
	check(w.MaxRenderMillis < 0 || badFloat(w.MaxRenderMillis), "world.max_render_ms must not be negative")
	check(w.MaxPendingCreation < 0, "world.max_pending_creation must not be negative")
	check(w.MaxPendingMeshing < 0, "world.max_pending_meshing must not be negative")
	check(w.MinNeighborsToMesh < 0 || w.MinNeighborsToMesh > 26, "world.min_neighbors_to_mesh must be in 0..26, got %d", w.MinNeighborsToMesh)
	check(w.Name == "", "world.name must not be empty")

	check(c.Physics.SleepFrames < 0, "physics.sleep_frames must not be negative")
	check(c.Physics.FluidDensity <= 0, "physics.fluid_density must be positive")
	return errors.Join(errs...)
}

// WorldOptions maps the world section onto chunks.Options. Registry,
// Generator and the other collaborators are left for the caller.
func (c Config) WorldOptions() chunks.Options {
	o := chunks.DefaultOptions()
	w := c.World
	o.WorldName = w.Name
	o.ChunkSize = w.ChunkSize
	o.AddDistance = w.AddDistance
	o.RemoveDistance = w.RemoveDistance
	o.MaxProcessingPerTick = fromMillis(w.MaxTickMillis)
	o.MaxProcessingPerRender = fromMillis(w.MaxRenderMillis)
	o.MaxChunksPendingCreation = w.MaxPendingCreation
	o.MaxChunksPendingMeshing = w.MaxPendingMeshing
	o.MinNeighborsToMesh = w.MinNeighborsToMesh
	o.ManualChunkLoading = w.ManualLoading
	o.Mesher = c.MesherOptions()
	return o
}

func (c Config) MesherOptions() mesh.Options {
	return mesh.Options{
		UseAO:     c.Mesher.AO,
		ReverseAO: c.Mesher.ReverseAO,
		AOVals:    c.Mesher.AOValues,
		RevAOVal:  c.Mesher.RevAO,
	}
}

func (c Config) PhysicsOptions() physics.Options {
	p := c.Physics
	return physics.Options{
		Gravity:          mgl64.Vec3(p.Gravity),
		AirDrag:          p.AirDrag,
		FluidDrag:        p.FluidDrag,
		FluidDensity:     p.FluidDensity,
		MinBounceImpulse: p.MinBounceImpulse,
		SleepFrames:      p.SleepFrames,
	}
}

// TerrainOptions leaves the palette empty; block ids belong to the
// registry the caller builds.
func (c Config) TerrainOptions() terraingen.Options {
	t := c.Terrain
	return terraingen.Options{
		Seed:          t.Seed,
		Scale:         t.Scale,
		BaseHeight:    t.BaseHeight,
		Amplitude:     t.Amplitude,
		SeaLevel:      t.SeaLevel,
		DirtDepth:     t.DirtDepth,
		CaveThreshold: t.CaveThreshold,
		CaveScale:     t.CaveScale,
	}
}

// StoreOptions reports false when persistence is not configured.
func (c Config) StoreOptions() (store.Options, bool) {
	if c.Store.Path == "" && !c.Store.InMemory {
		return store.Options{}, false
	}
	return store.Options{Path: c.Store.Path, InMemory: c.Store.InMemory}, true
}
