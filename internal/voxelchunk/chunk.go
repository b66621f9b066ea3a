// Package voxelchunk implements the chunk type (C7): a (R+1)^3 density
// lattice with dirty-region tracking, in-place terrain modification, and
// marching-cubes mesh generation against the shared boundary store.
package voxelchunk

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/biome"
	"github.com/kvossen/planetforge/internal/boundary"
	"github.com/kvossen/planetforge/internal/cave"
	"github.com/kvossen/planetforge/internal/coord"
	"github.com/kvossen/planetforge/internal/marching"
	"github.com/kvossen/planetforge/internal/mesh"
)

// Evaluator is the density function a chunk samples interior lattice points
// from. Satisfied structurally by *density.Field.
type Evaluator interface {
	Evaluate(p mgl32.Vec3) float32
}

// Index is a lattice-local coordinate in [0, resolution].
type Index struct {
	X, Y, Z int32
}

// Chunk owns one (R+1)^3 density lattice, its generated mesh, and
// dirty-region state. A chunk holds a non-owning reference to the shared
// boundary store; it never references neighboring chunks directly.
type Chunk struct {
	Coord      coord.ChunkCoord
	resolution int32
	voxelStep  float32
	size       float32

	mu       sync.RWMutex
	lattice  []float32 // flat [x*(R+1)*(R+1) + y*(R+1) + z]
	allEmpty bool
	allSolid bool
	modified bool
	failed   bool

	dirtyMin Index
	dirtyMax Index
	hasDirty bool

	mesh          mesh.Mesh
	surfacePoints []mesh.SurfacePoint

	cancelled atomic.Bool
}

// New creates an un-generated chunk at the given coordinate. Call
// GenerateDensityField before any meshing or modification.
func New(c coord.ChunkCoord, resolution int32, size float32) *Chunk {
	n := resolution + 1
	return &Chunk{
		Coord:      c,
		resolution: resolution,
		voxelStep:  size / float32(resolution),
		size:       size,
		lattice:    make([]float32, n*n*n),
	}
}

func (c *Chunk) idx(x, y, z int32) int {
	n := c.resolution + 1
	return int(x*n*n + y*n + z)
}

// Cancel marks the chunk cancelled; in-flight generation workers observe
// this at phase boundaries and drop the partial lattice (§5).
func (c *Chunk) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether Cancel was called.
func (c *Chunk) Cancelled() bool { return c.cancelled.Load() }

// GenerateDensityField fills the lattice in the four phases §4.7 mandates:
// corners and edges and faces from the shared boundary store, then interior
// points directly from the density function. Returns false if cancelled
// partway through, leaving the chunk's lattice unusable.
func (c *Chunk) GenerateDensityField(store *boundary.Store, density Evaluator) bool {
	r := c.resolution

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelled.Load() {
		c.failed = true
		return false
	}

	// Phase 1: 8 corners.
	for lx := int32(0); lx <= 1; lx++ {
		for ly := int32(0); ly <= 1; ly++ {
			for lz := int32(0); lz <= 1; lz++ {
				v := store.GetOrCreateCorner(c.Coord, lx*r, ly*r, lz*r)
				c.lattice[c.idx(lx*r, ly*r, lz*r)] = v
			}
		}
	}

	if c.cancelled.Load() {
		c.failed = true
		return false
	}

	// Phase 2: 12 edges, skipping endpoints (already filled by phase 1).
	offsets := []int32{0, r}
	for _, axis := range []coord.Axis{coord.AxisX, coord.AxisY, coord.AxisZ} {
		for _, a := range offsets {
			for _, b := range offsets {
				var lx, ly, lz int32
				switch axis {
				case coord.AxisX:
					lx, ly, lz = 0, a, b
				case coord.AxisY:
					lx, ly, lz = a, 0, b
				default:
					lx, ly, lz = a, b, 0
				}
				samples := store.GetOrCreateEdge(c.Coord, axis, lx, ly, lz)
				for i := int32(1); i < r; i++ {
					var x, y, z int32
					switch axis {
					case coord.AxisX:
						x, y, z = i, a, b
					case coord.AxisY:
						x, y, z = a, i, b
					default:
						x, y, z = a, b, i
					}
					c.lattice[c.idx(x, y, z)] = samples[i]
				}
			}
		}
	}

	if c.cancelled.Load() {
		c.failed = true
		return false
	}

	// Phase 3: 6 faces, skipping edges.
	for _, faceDir := range []coord.FaceDir{coord.PosX, coord.NegX, coord.PosY, coord.NegY, coord.PosZ, coord.NegZ} {
		grid := store.GetOrCreateFace(c.Coord, faceDir)
		var fixed int32
		if faceDir.Sign > 0 {
			fixed = r
		}
		for u := int32(1); u < r; u++ {
			for v := int32(1); v < r; v++ {
				var x, y, z int32
				switch faceDir.Axis {
				case coord.AxisX:
					x, y, z = fixed, u, v
				case coord.AxisY:
					x, y, z = u, fixed, v
				default:
					x, y, z = u, v, fixed
				}
				c.lattice[c.idx(x, y, z)] = grid[u][v]
			}
		}
	}

	if c.cancelled.Load() {
		c.failed = true
		return false
	}

	// Phase 4: interior points sampled directly.
	for x := int32(1); x < r; x++ {
		for y := int32(1); y < r; y++ {
			for z := int32(1); z < r; z++ {
				p := c.worldPosLocked(x, y, z)
				c.lattice[c.idx(x, y, z)] = density.Evaluate(p)
			}
		}
	}

	c.recomputeLifecycleFlagsLocked()
	return true
}

func (c *Chunk) worldPosLocked(x, y, z int32) mgl32.Vec3 {
	min := c.Coord.WorldMin(c.size)
	return mgl32.Vec3{min.X() + float32(x)*c.voxelStep, min.Y() + float32(y)*c.voxelStep, min.Z() + float32(z)*c.voxelStep}
}

func (c *Chunk) recomputeLifecycleFlagsLocked() {
	allEmpty, allSolid := true, true
	for _, v := range c.lattice {
		if v < 0 {
			allSolid = false
		} else {
			allEmpty = false
		}
		if !allEmpty && !allSolid {
			break
		}
	}
	c.allEmpty = allEmpty
	c.allSolid = allSolid
}

// AllEmpty reports whether every lattice sample is negative (no solid
// material at all).
func (c *Chunk) AllEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allEmpty
}

// AllSolid reports whether every lattice sample is non-negative.
func (c *Chunk) AllSolid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allSolid
}

// Modified reports whether the player has edited any sample.
func (c *Chunk) Modified() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modified
}

// Failed reports whether generation was cancelled or otherwise aborted.
func (c *Chunk) Failed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failed
}

// MarkDirty expands the dirty-region AABB to include [min, max].
func (c *Chunk) MarkDirty(min, max Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markDirtyLocked(min, max)
}

func (c *Chunk) markDirtyLocked(min, max Index) {
	if !c.hasDirty {
		c.dirtyMin, c.dirtyMax = min, max
		c.hasDirty = true
		return
	}
	c.dirtyMin = Index{minI(c.dirtyMin.X, min.X), minI(c.dirtyMin.Y, min.Y), minI(c.dirtyMin.Z, min.Z)}
	c.dirtyMax = Index{maxI(c.dirtyMax.X, max.X), maxI(c.dirtyMax.Y, max.Y), maxI(c.dirtyMax.Z, max.Z)}
}

// DirtyRegion reports the current dirty AABB and whether one is pending.
func (c *Chunk) DirtyRegion() (min, max Index, dirty bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirtyMin, c.dirtyMax, c.hasDirty
}

// Modify applies a quadratic-falloff density change within a sphere
// centered at a world point, per §4.7: every lattice sample within radius
// gains strength*(1-dist/radius)^2. Returns false (modify_out_of_bounds)
// if the sphere does not intersect the lattice at all.
func (c *Chunk) Modify(center mgl32.Vec3, radius, strength float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Coord.AABBIntersectsSphere(c.size, center, radius) {
		return false
	}

	r := c.resolution
	min := c.Coord.WorldMin(c.size)

	changed := false
	var dirtyMin, dirtyMax Index
	first := true

	for x := int32(0); x <= r; x++ {
		wx := min.X() + float32(x)*c.voxelStep
		for y := int32(0); y <= r; y++ {
			wy := min.Y() + float32(y)*c.voxelStep
			for z := int32(0); z <= r; z++ {
				wz := min.Z() + float32(z)*c.voxelStep
				p := mgl32.Vec3{wx, wy, wz}
				dist := p.Sub(center).Len()
				if dist > radius {
					continue
				}
				falloff := 1 - dist/radius
				delta := strength * falloff * falloff
				c.lattice[c.idx(x, y, z)] += delta
				changed = true

				idx := Index{x, y, z}
				if first {
					dirtyMin, dirtyMax = idx, idx
					first = false
				} else {
					dirtyMin = Index{minI(dirtyMin.X, x), minI(dirtyMin.Y, y), minI(dirtyMin.Z, z)}
					dirtyMax = Index{maxI(dirtyMax.X, x), maxI(dirtyMax.Y, y), maxI(dirtyMax.Z, z)}
				}
			}
		}
	}

	if !changed {
		return false
	}

	c.modified = true
	c.markDirtyLocked(dirtyMin, dirtyMax)
	c.recomputeLifecycleFlagsLocked()
	return true
}

// ApplyRawDelta adds delta directly to one lattice sample, bypassing the
// quadratic-falloff shaping Modify applies. Used by persistence to replay
// a saved sparse delta set onto a freshly generated chunk.
func (c *Chunk) ApplyRawDelta(x, y, z int32, delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lattice[c.idx(x, y, z)] += delta
	c.modified = true
	c.markDirtyLocked(Index{x, y, z}, Index{x, y, z})
	c.recomputeLifecycleFlagsLocked()
}

// Lattice returns a copy of the chunk's flat density lattice, indexed
// [x*(R+1)^2 + y*(R+1) + z], for persistence snapshotting.
func (c *Chunk) Lattice() []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]float32, len(c.lattice))
	copy(out, c.lattice)
	return out
}

func minI(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxI(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Resolution, Density, and WorldPos implement marching.Lattice.
func (c *Chunk) Resolution() int32 { return c.resolution }

func (c *Chunk) Density(x, y, z int32) float32 {
	return c.lattice[c.idx(x, y, z)]
}

func (c *Chunk) WorldPos(x, y, z int32) mgl32.Vec3 {
	return c.worldPosLocked(x, y, z)
}

// TintParams bundles the inputs GenerateMesh needs for vertex coloring,
// decoupled from the engine so this package stays free of a cyclic
// dependency on it.
type TintParams struct {
	Selector            *biome.Selector
	Caves               *cave.Field
	CavesEnabled        bool
	PlanetCenter        mgl32.Vec3
	PlanetRadius        float32
	CaveColor           mesh.Color
	CaveColorDeep       mesh.Color
	CaveDepthSpan       float32
	SampleStride        int
	MinRadialAlign      float32
	MinAltitude         float32
	TargetSurfacePoints int
}

// GenerateMesh runs marching cubes over the full lattice, decorates the
// result with normals, colors, and a bounded surface-point list, and clears
// the dirty AABB. If the lattice has no surface crossing, the mesh is
// cleared instead (mesh_empty: not an error).
func (c *Chunk) GenerateMesh(tint TintParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.allEmpty || c.allSolid {
		c.mesh = mesh.Mesh{}
		c.surfacePoints = nil
		c.hasDirty = false
		return
	}

	raw := marching.Extract(c)
	normals := mesh.NormalsFromGeometry(raw.Positions, raw.Indices)
	colors := mesh.Colors(mesh.TintConfig{
		PlanetCenter:  tint.PlanetCenter,
		CaveColor:     tint.CaveColor,
		CaveColorDeep: tint.CaveColorDeep,
		CaveDepthSpan: tint.CaveDepthSpan,
		CavesEnabled:  tint.CavesEnabled,
	}, raw.Positions, tint.Selector, tint.Caves, tint.PlanetRadius)

	c.mesh = mesh.Mesh{
		Positions: raw.Positions,
		Indices:   raw.Indices,
		Normals:   normals,
		Colors:    colors,
	}

	c.surfacePoints = mesh.SamplePoints(mesh.SampleConfig{
		PlanetCenter:   tint.PlanetCenter,
		PlanetRadius:   tint.PlanetRadius,
		Stride:         tint.SampleStride,
		MinRadialAlign: tint.MinRadialAlign,
		MinAltitude:    tint.MinAltitude,
		TargetCount:    tint.TargetSurfacePoints,
	}, c.mesh, tint.Selector)

	c.hasDirty = false
}

// Mesh returns the chunk's current generated mesh, or an empty mesh if
// all_empty/all_solid/no surface crossing.
func (c *Chunk) Mesh() mesh.Mesh {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mesh
}

// SurfacePoints returns the chunk's last-sampled surface points.
func (c *Chunk) SurfacePoints() []mesh.SurfacePoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surfacePoints
}
