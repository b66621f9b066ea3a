// Package density implements the core scalar field (C3): a spherical base
// blended with layered or biome-weighted terrain noise, minus a carved cave
// contribution. Positive is solid, negative is empty, zero is the surface.
package density

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/biome"
	"github.com/kvossen/planetforge/internal/cave"
	"github.com/kvossen/planetforge/internal/noise"
)

// PlanetConfig describes the spherical base and the terrain/cave blend
// window around it (§6.1's planet block).
type PlanetConfig struct {
	Center               mgl32.Vec3
	Radius               float32
	MaxTerrainHeight     float32
	MaxTerrainDepth      float32
	SurfaceBlendDistance float32
	MaxInteriorDensity   float32
}

// Field is the deterministic density function d(p). A Field is safe for
// concurrent Evaluate calls from any number of worker goroutines: every
// component it dispatches to (noise.Source, biome.Selector, cave.Field) is
// itself safe for concurrent reads.
type Field struct {
	planet PlanetConfig

	// Exactly one of (selector, globalSrc+globalLayers) is active, per §4.3
	// step 4: a biome selector if configured, else a flat global layer list.
	selector     *biome.Selector
	globalSrc    *noise.Source
	globalLayers []noise.LayerConfig

	caves *cave.Field
}

// New builds a Field. Pass a nil selector to use globalLayers instead of
// biome-weighted terrain.
func New(planet PlanetConfig, seed int32, selector *biome.Selector, globalLayers []noise.LayerConfig, caves *cave.Field) *Field {
	return &Field{
		planet:       planet,
		selector:     selector,
		globalSrc:    noise.New(seed),
		globalLayers: globalLayers,
		caves:        caves,
	}
}

// Evaluate returns d(p), clamping any NaN/Inf noise contribution to 0 per
// the noise_nan error policy (§7). Use EvaluateChecked to learn whether
// clamping occurred, e.g. to rate-limit a log line per chunk.
func (f *Field) Evaluate(p mgl32.Vec3) float32 {
	v, _ := f.EvaluateChecked(p)
	return v
}

// EvaluateChecked is Evaluate plus a flag reporting whether a NaN/Inf noise
// sample had to be clamped.
func (f *Field) EvaluateChecked(p mgl32.Vec3) (float32, bool) {
	toCenter := p.Sub(f.planet.Center)
	r := toCenter.Len()
	base := f.planet.Radius - r

	blendDist := f.planet.SurfaceBlendDistance
	var blend float32
	if blendDist > 0 {
		blend = clamp01(1 - absF(base)/blendDist)
	}

	var dir mgl32.Vec3
	if r > 0 {
		dir = toCenter.Mul(1 / r)
	} else {
		dir = mgl32.Vec3{0, 1, 0}
	}

	terrainNoise := f.terrainAt(dir)
	clamped := false
	if isBad(terrainNoise) {
		terrainNoise = 0
		clamped = true
	}

	terrain := base + terrainNoise*blend

	caveContribution := f.caves.Evaluate(p)

	// §4.3 step 6: clamp deep-interior density before subtracting caves, so
	// caves stay visible at depth instead of being overwritten by an
	// unbounded sphere-base contribution.
	if terrain > f.planet.MaxInteriorDensity && caveContribution < 0 {
		terrain = f.planet.MaxInteriorDensity
	}

	terrain += caveContribution

	return terrain, clamped
}

func (f *Field) terrainAt(dir mgl32.Vec3) float32 {
	samplePoint := dir.Mul(f.planet.Radius)
	if f.selector != nil {
		weights := f.selector.Select(dir)
		return biome.CombinedTerrain(f.globalSrc, weights, samplePoint)
	}
	return noise.Stack(f.globalSrc, f.globalLayers, samplePoint)
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func absF(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func isBad(x float32) bool {
	f := float64(x)
	return math.IsNaN(f) || math.IsInf(f, 0)
}
