package config

import (
	"path/filepath"
	"testing"

	"github.com/kvossen/planetforge/internal/noise"
)

func TestDefaultPassesValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() failed Validate(): %v", err)
	}
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"resolution too low", func(c *Config) { c.Chunk.Resolution = 3 }},
		{"resolution too high", func(c *Config) { c.Chunk.Resolution = 65 }},
		{"zero radius", func(c *Config) { c.Planet.Radius = 0 }},
		{"negative radius", func(c *Config) { c.Planet.Radius = -5 }},
		{"zero chunk size", func(c *Config) { c.Chunk.Size = 0 }},
		{"zero surface blend distance", func(c *Config) { c.Planet.SurfaceBlendDistance = 0 }},
		{"unload distance equal to load distance", func(c *Config) { c.Stream.UnloadDistance = c.Stream.LoadDistance }},
		{"unload distance less than load distance", func(c *Config) { c.Stream.UnloadDistance = c.Stream.LoadDistance - 1 }},
		{"empty biome name", func(c *Config) { c.Biomes = []BiomeDefinition{{Name: ""}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() returned nil, want config_invalid error")
			}
			var ee *EngineError
			if !asEngineError(err, &ee) {
				t.Fatalf("Validate() error is not *EngineError: %v", err)
			}
			if ee.Kind != ConfigInvalid {
				t.Fatalf("Validate() error kind = %q, want %q", ee.Kind, ConfigInvalid)
			}
		})
	}
}

func asEngineError(err error, target **EngineError) bool {
	ee, ok := err.(*EngineError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

func TestBuildBiomeSelectorNilWhenNoBiomes(t *testing.T) {
	cfg := Default()
	if sel := cfg.BuildBiomeSelector(); sel != nil {
		t.Fatalf("BuildBiomeSelector() = %v, want nil for empty Biomes", sel)
	}
}

func TestBuildBiomeSelectorNonNilWithBiomes(t *testing.T) {
	cfg := Default()
	cfg.Biomes = []BiomeDefinition{
		{
			Name:        "plains",
			Layers:      []noise.LayerConfig{{Enabled: true, Frequency: 0.01, Strength: 5, Octaves: 3, Lacunarity: 2, Persistence: 0.5}},
			MaxSlope:    1,
			MinAltitude: -1000,
			MaxAltitude: 1000,
		},
	}
	if sel := cfg.BuildBiomeSelector(); sel == nil {
		t.Fatal("BuildBiomeSelector() = nil, want non-nil with one biome configured")
	}
}

func TestBuildCaveFieldHonorsEnabledFlag(t *testing.T) {
	cfg := Default()
	cfg.Caves.Enabled = false
	field := cfg.BuildCaveField()
	if field == nil {
		t.Fatal("BuildCaveField() returned nil")
	}
	if v := field.Evaluate(cfg.Planet.Center); v != 0 {
		t.Fatalf("Evaluate() at planet center with caves disabled = %f, want 0", v)
	}
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planet.json")

	original := Default()
	original.Seed = 42
	original.Planet.Radius = 250

	if err := Save(path, original, nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded := &Config{}
	if err := Load(path, loaded); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Seed != original.Seed {
		t.Fatalf("Load() Seed = %d, want %d", loaded.Seed, original.Seed)
	}
	if loaded.Planet.Radius != original.Planet.Radius {
		t.Fatalf("Load() Planet.Radius = %f, want %f", loaded.Planet.Radius, original.Planet.Radius)
	}
}

func TestLoadLeavesConfigUnchangedWhenFileMissing(t *testing.T) {
	cfg := Default()
	want := *cfg
	if err := Load(filepath.Join(t.TempDir(), "missing.json"), cfg); err != nil {
		t.Fatalf("Load() error for missing file: %v", err)
	}
	if cfg.Seed != want.Seed || cfg.Planet.Radius != want.Planet.Radius {
		t.Fatal("Load() mutated cfg despite a missing file")
	}
}
