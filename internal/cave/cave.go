// Package cave implements the subtractive cave field (C5): a
// threshold-gated, depth-faded noise contribution carved out of the
// density function, backed by a coarse-lattice interpolation cache.
package cave

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/noise"
)

// Variant selects how the raw cave noise sample is constructed before the
// threshold/strength/depth discipline common to every variant is applied.
type Variant int

const (
	VariantWorm Variant = iota
	VariantCavern
	VariantFracture
	VariantStratified
	VariantSponge
	VariantHybrid
)

// ParseVariant maps a config string to a Variant, defaulting to VariantWorm
// for an empty or unrecognized name.
func ParseVariant(name string) Variant {
	switch name {
	case "cavern":
		return VariantCavern
	case "fracture":
		return VariantFracture
	case "stratified":
		return VariantStratified
	case "sponge":
		return VariantSponge
	case "hybrid":
		return VariantHybrid
	default:
		return VariantWorm
	}
}

// Config parameters a Field (§6.1 caves block).
type Config struct {
	Enabled bool

	MinDepth  float32
	MaxDepth  float32
	FadeRange float32

	Threshold   float32
	Width       float32 // worm_width
	CaveDensity float32

	Variant     Variant
	Octaves     int
	Frequency   float32
	Lacunarity  float32
	Persistence float32

	// CellSize is the world-unit spacing of the coarse interpolation
	// lattice the noise is sampled and cached on.
	CellSize float32
}

// Field evaluates the cave contribution to density and caches coarse-lattice
// noise samples keyed by packed cell coordinate. A Field is safe for
// concurrent use; the cache is read-mostly and guarded by a single mutex.
// Sharding across several Fields partitioning cells is possible but not
// required for correctness.
type Field struct {
	cfg    Config
	src    *noise.Source
	center mgl32.Vec3
	radius float32

	mu    sync.RWMutex
	cache map[uint64]float32
}

// New builds a Field for the given planet center/radius and seed. Call
// Reset whenever seed, center, or radius change.
func New(cfg Config, seed int32, center mgl32.Vec3, radius float32) *Field {
	return &Field{
		cfg:    cfg,
		src:    noise.New(seed + 555),
		center: center,
		radius: radius,
		cache:  make(map[uint64]float32),
	}
}

// Reset flushes the coarse-lattice cache and re-seeds the underlying noise
// source. Call this when the engine's seed, planet center, or radius change.
func (f *Field) Reset(seed int32, center mgl32.Vec3, radius float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = noise.New(seed + 555)
	f.center = center
	f.radius = radius
	f.cache = make(map[uint64]float32)
}

// Evaluate returns the (non-positive) cave contribution to density at p.
func (f *Field) Evaluate(p mgl32.Vec3) float32 {
	if !f.cfg.Enabled {
		return 0
	}

	depth := f.radius - p.Sub(f.center).Len()
	if depth < f.cfg.MinDepth || depth > f.cfg.MaxDepth {
		return 0
	}

	fade := f.depthFade(depth)
	if fade <= 0 {
		return 0
	}

	raw := f.sampleInterpolated(p)
	value := (raw + 1) / 2 // normalize to [0,1]

	if value <= f.cfg.Threshold {
		return 0
	}

	strength := (value - f.cfg.Threshold) / (1 - f.cfg.Threshold) * f.cfg.CaveDensity * fade
	return -strength * f.cfg.Width
}

func (f *Field) depthFade(depth float32) float32 {
	if f.cfg.FadeRange <= 0 {
		return 1
	}
	lowFade := smoothstep01((depth - f.cfg.MinDepth) / f.cfg.FadeRange)
	highFade := smoothstep01((f.cfg.MaxDepth - depth) / f.cfg.FadeRange)
	if lowFade < highFade {
		return lowFade
	}
	return highFade
}

func smoothstep01(x float32) float32 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}

// sampleInterpolated evaluates the cave noise at the coarser cell
// resolution and trilinearly interpolates with smoothstepped interpolants,
// per §4.5's cost-bounding scheme.
func (f *Field) sampleInterpolated(p mgl32.Vec3) float32 {
	cell := f.cfg.CellSize
	if cell <= 0 {
		cell = 1
	}

	fx, fy, fz := p.X()/cell, p.Y()/cell, p.Z()/cell
	ix, iy, iz := floorI(fx), floorI(fy), floorI(fz)
	tx, ty, tz := fx-float32(ix), fy-float32(iy), fz-float32(iz)
	tx, ty, tz = smoothstep01(tx), smoothstep01(ty), smoothstep01(tz)

	c000 := f.cornerSample(ix, iy, iz)
	c100 := f.cornerSample(ix+1, iy, iz)
	c010 := f.cornerSample(ix, iy+1, iz)
	c110 := f.cornerSample(ix+1, iy+1, iz)
	c001 := f.cornerSample(ix, iy, iz+1)
	c101 := f.cornerSample(ix+1, iy, iz+1)
	c011 := f.cornerSample(ix, iy+1, iz+1)
	c111 := f.cornerSample(ix+1, iy+1, iz+1)

	c00 := lerp(c000, c100, tx)
	c10 := lerp(c010, c110, tx)
	c01 := lerp(c001, c101, tx)
	c11 := lerp(c011, c111, tx)

	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)

	return lerp(c0, c1, tz)
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func floorI(x float32) int32 {
	i := int32(x)
	if x < float32(i) {
		return i - 1
	}
	return i
}

func (f *Field) cornerSample(ix, iy, iz int32) float32 {
	key := packCell(ix, iy, iz)

	f.mu.RLock()
	v, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return v
	}

	cell := f.cfg.CellSize
	if cell <= 0 {
		cell = 1
	}
	worldPos := mgl32.Vec3{float32(ix) * cell, float32(iy) * cell, float32(iz) * cell}
	v = f.variantSample(worldPos)

	f.mu.Lock()
	f.cache[key] = v
	f.mu.Unlock()

	return v
}

// variantSample computes the raw (pre-normalization) noise value for the
// configured variant. All variants ultimately combine octaves of the same
// noise source; they differ in domain warp, axis scaling, and the octave
// count, frequency and persistence they pass to it.
func (f *Field) variantSample(p mgl32.Vec3) float32 {
	octaves, freq, lac, pers := f.cfg.Octaves, f.cfg.Frequency, f.cfg.Lacunarity, f.cfg.Persistence

	switch f.cfg.Variant {
	case VariantCavern:
		// Large, blobby chambers: half the configured frequency, no warp.
		return f.src.Octaves(p, octaves, freq*0.5, lac, pers)

	case VariantFracture:
		// Domain-warped threshold noise produces thin cracked sheets.
		warp := f.src.Octaves(p, 2, freq*2, lac, pers)
		warped := p.Add(mgl32.Vec3{warp, warp, warp}.Mul(1 / freq))
		return f.src.Octaves(warped, octaves, freq, lac, pers)

	case VariantStratified:
		// Scale the radial axis independently to produce horizontal bands.
		radial := p.Sub(f.center)
		r := radial.Len()
		var dir mgl32.Vec3
		if r > 0 {
			dir = radial.Mul(1 / r)
		}
		stratified := p.Add(dir.Mul(r * 0.75))
		return f.src.Octaves(stratified, octaves, freq, lac, pers)

	case VariantSponge:
		// Higher persistence and more octaves give fine, porous voids.
		return f.src.Octaves(p, octaves+2, freq*1.5, lac, pers*1.2)

	case VariantHybrid:
		worm := f.src.Octaves(p, octaves, freq, lac, pers)
		cavern := f.src.Octaves(p, octaves, freq*0.5, lac, pers)
		return (worm + cavern) / 2

	default: // VariantWorm
		return f.src.Octaves(p, octaves, freq, lac, pers)
	}
}

// packCell packs a signed 3D coarse-lattice coordinate into a single uint64
// cache key, per §4.5.
func packCell(ix, iy, iz int32) uint64 {
	const bias = 1 << 20 // supports coordinates in [-2^20, 2^20)
	ux := uint64(ix+bias) & 0x1FFFFF
	uy := uint64(iy+bias) & 0x1FFFFF
	uz := uint64(iz+bias) & 0x1FFFFF
	return ux<<42 | uy<<21 | uz
}
