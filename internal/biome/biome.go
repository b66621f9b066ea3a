// Package biome selects and blends biomes (C4) across a planet surface
// direction, and carries each biome's terrain noise stack and debug color.
package biome

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/noise"
)

// Color is a linear RGBA tint, used both for a biome's debug color and for
// the blended vertex colors mesh utilities (C9) produce.
type Color struct {
	R, G, B, A float32
}

// Predicate gates where a biome is eligible to apply. A zero-value Predicate
// applies everywhere. Directions, when non-empty, restrict the biome to
// radial directions within DirectionAngle radians of any listed direction.
type Predicate struct {
	MaxSlope       float32 // radians; 0 means unconstrained
	MinAltitude    float32
	MaxAltitude    float32 // 0 means unconstrained (treated as +inf)
	Directions     []mgl32.Vec3
	DirectionAngle float32 // radians, used only when Directions is non-empty
}

// Allows reports whether a surface point with the given slope, altitude and
// normalized radial direction satisfies p.
func (p Predicate) Allows(slope, altitude float32, dir mgl32.Vec3) bool {
	if p.MaxSlope > 0 && slope > p.MaxSlope {
		return false
	}
	if altitude < p.MinAltitude {
		return false
	}
	if p.MaxAltitude > 0 && altitude > p.MaxAltitude {
		return false
	}
	if len(p.Directions) > 0 {
		ok := false
		for _, d := range p.Directions {
			if angleBetween(dir, d) <= p.DirectionAngle {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func angleBetween(a, b mgl32.Vec3) float32 {
	denom := a.Len() * b.Len()
	if denom == 0 {
		return 0
	}
	cos := a.Dot(b) / denom
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return float32(math.Acos(float64(cos)))
}

// Biome is a named terrain recipe: a noise layer stack, height shaping, a
// debug color, and an application predicate.
type Biome struct {
	Name             string
	Layers           []noise.LayerConfig
	HeightMultiplier float32
	HeightOffset     float32
	DebugColor       Color
	Predicate        Predicate
}

// Weighted pairs a biome with its blend weight in [0, 1].
type Weighted struct {
	Biome  *Biome
	Weight float32
}

// SelectionConfig parameters the large-scale biome-selection noise (§4.4).
type SelectionConfig struct {
	SeedOffset   int32 // added to the engine seed as given; config.Default sets 9999
	SampleRadius float32
	BlendWidth   float32
	Contrast     float32 // 1 means no contrast adjustment
}

// Selector maps a normalized surface direction to a weighted biome set.
type Selector struct {
	biomes []*Biome
	cfg    SelectionConfig
	src    *noise.Source

	mu         sync.Mutex
	cachedPos  mgl32.Vec3
	cachedHit  bool
	cachedOut  []Weighted
}

const cacheEpsilon = 1e-6

// NewSelector builds a Selector over an ordered biome list. biomes must be
// non-empty; the caller (engine config validation) enforces that.
func NewSelector(biomes []*Biome, cfg SelectionConfig, seed int32) *Selector {
	if cfg.Contrast == 0 {
		cfg.Contrast = 1
	}
	return &Selector{
		biomes: biomes,
		cfg:    cfg,
		src:    noise.New(seed + cfg.SeedOffset),
	}
}

// Select returns the weighted biome set at a normalized direction dir. The
// result is either a singleton {(b,1)} or a blended pair summing to 1.
func (s *Selector) Select(dir mgl32.Vec3) []Weighted {
	s.mu.Lock()
	if s.cachedHit && approxEqual(dir, s.cachedPos, cacheEpsilon) {
		out := s.cachedOut
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	out := s.selectUncached(dir)

	s.mu.Lock()
	s.cachedPos = dir
	s.cachedHit = true
	s.cachedOut = out
	s.mu.Unlock()

	return out
}

func (s *Selector) selectUncached(dir mgl32.Vec3) []Weighted {
	n := len(s.biomes)
	if n == 1 {
		return []Weighted{{Biome: s.biomes[0], Weight: 1}}
	}

	raw := s.src.Sample3(dir.Mul(s.cfg.SampleRadius))
	t := (raw + 1) / 2

	if s.cfg.Contrast != 1 {
		centered := 2*t - 1
		sign := float32(1)
		if centered < 0 {
			sign = -1
		}
		t = sign*float32(math.Pow(float64(abs32(centered)), 1/float64(s.cfg.Contrast)))/2 + 0.5
	}

	scaled := t * float32(n)
	i := int(scaled)
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}

	within := scaled - float32(i)
	binWidth := 1 / float32(n)
	nearest := within
	neighbor := i - 1
	if within >= 0.5 {
		nearest = 1 - within
		neighbor = i + 1
	}
	distInT := nearest * binWidth

	if s.cfg.BlendWidth <= 0 || distInT >= s.cfg.BlendWidth || neighbor < 0 || neighbor > n-1 {
		return []Weighted{{Biome: s.biomes[i], Weight: 1}}
	}

	x := distInT / s.cfg.BlendWidth
	primaryWeight := 0.5 + 0.5*smoothstep(x)

	return []Weighted{
		{Biome: s.biomes[i], Weight: primaryWeight},
		{Biome: s.biomes[neighbor], Weight: 1 - primaryWeight},
	}
}

func smoothstep(x float32) float32 {
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return x * x * (3 - 2*x)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func approxEqual(a, b mgl32.Vec3, eps float32) bool {
	return abs32(a.X()-b.X()) < eps && abs32(a.Y()-b.Y()) < eps && abs32(a.Z()-b.Z()) < eps
}

// CombinedTerrain evaluates §4.4 step 5: the weighted sum of each biome's
// noise-layer stack, scaled by its height multiplier and offset, normalized
// by the total weight.
func CombinedTerrain(src *noise.Source, weights []Weighted, samplePoint mgl32.Vec3) float32 {
	var sum, totalWeight float32
	for _, w := range weights {
		layerSum := noise.Stack(src, w.Biome.Layers, samplePoint)
		sum += w.Weight * (layerSum*w.Biome.HeightMultiplier + w.Biome.HeightOffset)
		totalWeight += w.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

// Dominant returns the highest-weighted biome in a selection, used wherever
// a single representative biome is needed (e.g. surface-point sampling).
func Dominant(weights []Weighted) *Biome {
	if len(weights) == 0 {
		return nil
	}
	best := weights[0]
	for _, w := range weights[1:] {
		if w.Weight > best.Weight {
			best = w
		}
	}
	return best.Biome
}
