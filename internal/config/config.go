// Package config holds the engine's init-time configuration (§6.1): the
// planet/chunk/stream blocks, terrain layers, biomes, and cave parameters.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/biome"
	"github.com/kvossen/planetforge/internal/cave"
	"github.com/kvossen/planetforge/internal/noise"
)

// ErrorKind is the internal error taxonomy (§7). Only ConfigInvalid ever
// crosses the public API.
type ErrorKind string

const (
	ConfigInvalid ErrorKind = "config_invalid"
)

// EngineError wraps a Kind alongside the underlying cause.
type EngineError struct {
	Kind ErrorKind
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) *EngineError {
	return &EngineError{Kind: ConfigInvalid, Err: fmt.Errorf(format, args...)}
}

// PlanetConfig is §6.1's planet block.
type PlanetConfig struct {
	Center               mgl32.Vec3 `json:"center"`
	Radius               float32    `json:"radius"`
	MaxTerrainHeight     float32    `json:"max_terrain_height"`
	MaxTerrainDepth      float32    `json:"max_terrain_depth"`
	SurfaceBlendDistance float32    `json:"surface_blend_distance"`
	MaxInteriorDensity   float32    `json:"max_interior_density"`
}

// ChunkConfig is §6.1's chunk block.
type ChunkConfig struct {
	Size       float32 `json:"size"`
	Resolution int32   `json:"resolution"`
}

// StreamConfig is §6.1's stream block.
type StreamConfig struct {
	LoadDistance     float32 `json:"load_distance"`
	UnloadDistance   float32 `json:"unload_distance"`
	ChunksPerFrame   int     `json:"chunks_per_frame"`
	MeshesPerFrame   int     `json:"meshes_per_frame"`
	SearchIntervalS  float32 `json:"search_interval_s"`
}

// BiomeSelectionConfig is §6.1's biomes.selection block.
type BiomeSelectionConfig struct {
	NoiseSeedOffset int32   `json:"noise_seed_offset"`
	SampleRadius    float32 `json:"sample_radius"`
	BlendWidth      float32 `json:"blend_width"`
	Contrast        float32 `json:"contrast"`
}

// CaveConfig is §6.1's caves block.
type CaveConfig struct {
	Enabled     bool    `json:"enabled"`
	Variant     string  `json:"variant"`
	MinDepth    float32 `json:"min_depth"`
	MaxDepth    float32 `json:"max_depth"`
	FadeRange   float32 `json:"fade_range"`
	Threshold   float32 `json:"threshold"`
	Width       float32 `json:"width"`
	CaveDensity float32 `json:"cave_density"`
	CellSize    float32 `json:"cell_size"`
	Frequency   float32 `json:"frequency"`
	Octaves     int     `json:"octaves"`
	Persistence float32 `json:"persistence"`
	Lacunarity  float32 `json:"lacunarity"`

	// Color and ColorDeep are the vertex tint blended in near a cave
	// opening (§4.9); DepthSpan is the depth range over which Color fades
	// to ColorDeep.
	Color     biome.Color `json:"color"`
	ColorDeep biome.Color `json:"color_deep"`
	DepthSpan float32     `json:"depth_span"`
}

// Config is the complete engine configuration (§6.1), loaded at init and
// never mutated afterward; a seed/config change starts a new engine.
type Config struct {
	Seed   int32                `json:"seed"`
	Planet PlanetConfig         `json:"planet"`
	Chunk  ChunkConfig          `json:"chunk"`
	Stream StreamConfig         `json:"stream"`

	TerrainLayers []noise.LayerConfig `json:"terrain_layers"`

	Biomes          []BiomeDefinition    `json:"biomes"`
	BiomeSelection  BiomeSelectionConfig `json:"biome_selection"`

	Caves CaveConfig `json:"caves"`

	Workers             int `json:"workers"`
	MeshSampleStride    int `json:"mesh_sample_stride"`
	TargetSurfacePoints int `json:"target_surface_points"`

	// SurfaceSampleMinRadialAlign and SurfaceSampleMinAltitude are the
	// §4.9 surface-point sampling filters: a sampled vertex must have a
	// normal whose alignment with the planet-radial direction meets or
	// exceeds MinRadialAlign, and an altitude above MinAltitude.
	SurfaceSampleMinRadialAlign float32 `json:"surface_sample_min_radial_align"`
	SurfaceSampleMinAltitude    float32 `json:"surface_sample_min_altitude"`
}

// BiomeDefinition is the JSON-serializable form of a biome.Biome.
type BiomeDefinition struct {
	Name             string              `json:"name"`
	Layers           []noise.LayerConfig `json:"layers"`
	HeightMultiplier float32             `json:"height_multiplier"`
	HeightOffset     float32             `json:"height_offset"`
	DebugColor       biome.Color         `json:"debug_color"`
	MaxSlope         float32             `json:"max_slope"`
	MinAltitude      float32             `json:"min_altitude"`
	MaxAltitude      float32             `json:"max_altitude"`
}

// ToBiome converts a BiomeDefinition into a runtime biome.Biome.
func (d BiomeDefinition) ToBiome() *biome.Biome {
	return &biome.Biome{
		Name:             d.Name,
		Layers:           d.Layers,
		HeightMultiplier: d.HeightMultiplier,
		HeightOffset:     d.HeightOffset,
		DebugColor:       d.DebugColor,
		Predicate: biome.Predicate{
			MaxSlope:    d.MaxSlope,
			MinAltitude: d.MinAltitude,
			MaxAltitude: d.MaxAltitude,
		},
	}
}

// Default returns sensible defaults for a bare spherical planet: no noise,
// no biomes, no caves.
func Default() *Config {
	return &Config{
		Seed: 1,
		Planet: PlanetConfig{
			Radius:               100,
			MaxTerrainHeight:     20,
			MaxTerrainDepth:      20,
			SurfaceBlendDistance: 8,
			MaxInteriorDensity:   1000,
		},
		Chunk: ChunkConfig{Size: 16, Resolution: 16},
		Stream: StreamConfig{
			LoadDistance:    80,
			UnloadDistance:  120,
			ChunksPerFrame:  4,
			MeshesPerFrame:  4,
			SearchIntervalS: 0.25,
		},
		BiomeSelection: BiomeSelectionConfig{NoiseSeedOffset: 9999, Contrast: 1},
		Caves: CaveConfig{
			Color:     biome.Color{R: 0.15, G: 0.13, B: 0.12, A: 1},
			ColorDeep: biome.Color{R: 0.04, G: 0.04, B: 0.05, A: 1},
			DepthSpan: 20,
		},
		Workers:                     4,
		MeshSampleStride:            4,
		TargetSurfacePoints:         64,
		SurfaceSampleMinRadialAlign: 0.5,
		SurfaceSampleMinAltitude:    -1000,
	}
}

// Validate enforces §7's config_invalid checks.
func (c *Config) Validate() error {
	if c.Chunk.Resolution < 4 || c.Chunk.Resolution > 64 {
		return invalid("chunk.resolution %d out of range [4,64]", c.Chunk.Resolution)
	}
	if c.Planet.Radius <= 0 {
		return invalid("planet.radius %f must be > 0", c.Planet.Radius)
	}
	if c.Chunk.Size <= 0 {
		return invalid("chunk.size %f must be > 0", c.Chunk.Size)
	}
	if c.Planet.SurfaceBlendDistance <= 0 {
		return invalid("planet.surface_blend_distance %f must be > 0", c.Planet.SurfaceBlendDistance)
	}
	if c.Stream.UnloadDistance <= c.Stream.LoadDistance {
		return invalid("stream.unload_distance %f must exceed stream.load_distance %f", c.Stream.UnloadDistance, c.Stream.LoadDistance)
	}
	for i, b := range c.Biomes {
		if b.Name == "" {
			return invalid("biome at index %d has an empty name", i)
		}
	}
	return nil
}

// BuildCaveField constructs a cave.Field from the caves block.
func (c *Config) BuildCaveField() *cave.Field {
	cfg := cave.Config{
		Enabled:     c.Caves.Enabled,
		Variant:     cave.ParseVariant(c.Caves.Variant),
		MinDepth:    c.Caves.MinDepth,
		MaxDepth:    c.Caves.MaxDepth,
		FadeRange:   c.Caves.FadeRange,
		Threshold:   c.Caves.Threshold,
		Width:       c.Caves.Width,
		CaveDensity: c.Caves.CaveDensity,
		CellSize:    c.Caves.CellSize,
		Frequency:   c.Caves.Frequency,
		Octaves:     c.Caves.Octaves,
		Persistence: c.Caves.Persistence,
		Lacunarity:  c.Caves.Lacunarity,
	}
	return cave.New(cfg, c.Seed, c.Planet.Center, c.Planet.Radius)
}

// BuildBiomeSelector constructs a biome.Selector from the biomes block, or
// nil if no biomes are configured (the density function then falls back to
// TerrainLayers).
func (c *Config) BuildBiomeSelector() *biome.Selector {
	if len(c.Biomes) == 0 {
		return nil
	}
	biomes := make([]*biome.Biome, len(c.Biomes))
	for i, b := range c.Biomes {
		biomes[i] = b.ToBiome()
	}
	return biome.NewSelector(biomes, biome.SelectionConfig{
		SeedOffset:   c.BiomeSelection.NoiseSeedOffset,
		SampleRadius: c.BiomeSelection.SampleRadius,
		BlendWidth:   c.BiomeSelection.BlendWidth,
		Contrast:     c.BiomeSelection.Contrast,
	}, c.Seed)
}

// Load reads a JSON config file into cfg, leaving cfg unchanged if the file
// does not exist yet.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to path atomically, the same temp-file-then-rename
// pattern used for all other engine persistence.
func Save(path string, cfg *Config, log *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp config file: %w", err)
	}
	if log != nil {
		log.Info("saved config", "path", path)
	}
	return nil
}
