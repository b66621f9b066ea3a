// Package mesh implements the surface-crossing test, vertex color tinting,
// and surface-point sampling utilities (C9) that turn a marching-cubes
// triangle soup into a decorated, externally consumable mesh.
package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/biome"
	"github.com/kvossen/planetforge/internal/cave"
	"github.com/kvossen/planetforge/internal/marching"
)

// Color is an RGBA vertex color.
type Color struct {
	R, G, B, A float32
}

// Mesh is the fully decorated output of a chunk's mesh generation: the
// marching-cubes positions and indices plus per-vertex normals and colors.
type Mesh struct {
	Positions []mgl32.Vec3
	Indices   []int32
	Normals   []mgl32.Vec3
	Colors    []Color
}

// SurfacePoint is a sampled point on the mesh surface, used by external
// vegetation/structure decorators.
type SurfacePoint struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Slope    float32
	Altitude float32
	Biome    *biome.Biome
}

// HasSurfaceCrossing reports whether the lattice contains at least one
// sample below 0 and at least one at or above 0, i.e. whether marching cubes
// could possibly emit a triangle. O(R^3) worst case, early-exits as soon as
// both signs are seen.
func HasSurfaceCrossing(l marching.Lattice) bool {
	r := l.Resolution()
	sawNegative, sawNonNegative := false, false
	for x := int32(0); x <= r; x++ {
		for y := int32(0); y <= r; y++ {
			for z := int32(0); z <= r; z++ {
				if l.Density(x, y, z) < 0 {
					sawNegative = true
				} else {
					sawNonNegative = true
				}
				if sawNegative && sawNonNegative {
					return true
				}
			}
		}
	}
	return false
}

// NormalsFromGeometry computes one normal per position: the normalized sum
// of the unit face normals (cross product of the triangle's edges) of every
// triangle that references that position. C7 may instead recompute from
// density gradients, which this package does not do.
func NormalsFromGeometry(positions []mgl32.Vec3, indices []int32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		e1 := positions[b].Sub(positions[a])
		e2 := positions[c].Sub(positions[a])
		n := e1.Cross(e2)
		if n.Len() > 1e-9 {
			n = n.Normalize()
		}
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	for i, n := range normals {
		if n.Len() > 1e-9 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}

// TintConfig parameterizes vertex color tinting.
type TintConfig struct {
	PlanetCenter  mgl32.Vec3
	CaveColor     Color
	CaveColorDeep Color
	CaveDepthSpan float32 // depth below surface at which CaveColorDeep fully applies
	CavesEnabled  bool
}

// Colors computes one vertex color per position: biome debug colors blended
// by the selector's weights at that vertex's radial direction, then tinted
// toward a cave color when the point sits inside carved rock and caves are
// enabled for this field (§9 open question: disabled caves must not tint).
func Colors(cfg TintConfig, positions []mgl32.Vec3, selector *biome.Selector, caves *cave.Field, planetRadius float32) []Color {
	colors := make([]Color, len(positions))
	for i, p := range positions {
		toCenter := p.Sub(cfg.PlanetCenter)
		r := toCenter.Len()
		var dir mgl32.Vec3
		if r > 1e-6 {
			dir = toCenter.Mul(1 / r)
		} else {
			dir = mgl32.Vec3{0, 1, 0}
		}

		var base Color
		if selector != nil {
			base = blendBiomeColors(selector.Select(dir))
		} else {
			base = Color{0.5, 0.5, 0.5, 1}
		}

		if cfg.CavesEnabled && caves != nil {
			caveValue := caves.Evaluate(p)
			if caveValue < 0 {
				depth := planetRadius - r
				t := float32(1)
				if cfg.CaveDepthSpan > 0 {
					t = clamp01(depth / cfg.CaveDepthSpan)
				}
				caveTint := lerpColor(cfg.CaveColor, cfg.CaveColorDeep, t)
				base = lerpColor(base, caveTint, 0.6)
			}
		}

		colors[i] = base
	}
	return colors
}

func blendBiomeColors(weights []biome.Weighted) Color {
	var out Color
	var sum float32
	for _, w := range weights {
		if w.Biome == nil {
			continue
		}
		c := w.Biome.DebugColor
		out.R += c.R * w.Weight
		out.G += c.G * w.Weight
		out.B += c.B * w.Weight
		out.A += c.A * w.Weight
		sum += w.Weight
	}
	if sum > 1e-6 {
		out.R /= sum
		out.G /= sum
		out.B /= sum
		out.A /= sum
	}
	return out
}

func lerpColor(a, b Color, t float32) Color {
	return Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
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

// SampleConfig parameterizes surface-point sampling.
type SampleConfig struct {
	PlanetCenter     mgl32.Vec3
	PlanetRadius     float32
	Stride           int
	MinRadialAlign   float32 // minimum dot(normal, radialDir) to keep a point
	MinAltitude      float32
	TargetCount      int
}

// SamplePoints strides over vertices, keeping those whose normal points
// sufficiently outward and whose altitude clears the configured floor, up
// to TargetCount results.
func SamplePoints(cfg SampleConfig, m Mesh, selector *biome.Selector) []SurfacePoint {
	if cfg.Stride < 1 {
		cfg.Stride = 1
	}
	var points []SurfacePoint
	for i := 0; i < len(m.Positions); i += cfg.Stride {
		if cfg.TargetCount > 0 && len(points) >= cfg.TargetCount {
			break
		}
		p := m.Positions[i]
		var n mgl32.Vec3
		if i < len(m.Normals) {
			n = m.Normals[i]
		}

		toCenter := p.Sub(cfg.PlanetCenter)
		r := toCenter.Len()
		var radialDir mgl32.Vec3
		if r > 1e-6 {
			radialDir = toCenter.Mul(1 / r)
		} else {
			continue
		}

		altitude := r - cfg.PlanetRadius
		if altitude < cfg.MinAltitude {
			continue
		}

		align := n.Dot(radialDir)
		if align < cfg.MinRadialAlign {
			continue
		}

		slope := float32(math.Acos(clampCos(float64(align))))

		var b *biome.Biome
		if selector != nil {
			b = biome.Dominant(selector.Select(radialDir))
		}

		points = append(points, SurfacePoint{
			Position: p,
			Normal:   n,
			Slope:    slope,
			Altitude: altitude,
			Biome:    b,
		})
	}
	return points
}

func clampCos(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}
