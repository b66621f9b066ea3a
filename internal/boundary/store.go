// Package boundary implements the shared boundary store (C6): a
// process-scoped cache that deduplicates density samples on chunk corners,
// edges, and faces so neighboring chunks agree at shared positions.
package boundary

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvossen/planetforge/internal/coord"
)

// Evaluator is the subset of density.Field the store needs. Defined locally
// to avoid a dependency from boundary onto density.
type Evaluator interface {
	Evaluate(p mgl32.Vec3) float32
}

type edgeKey struct {
	Min  coord.LatticeIndex
	Axis coord.Axis
}

type faceKey struct {
	Owner coord.ChunkCoord
	Axis  coord.Axis
}

// Store caches density samples on chunk boundaries. Up to 8 chunks may read
// any corner, up to 4 any edge, and exactly 2 any face; see §4.6.
//
// Each table uses double-checked locking: a read under RLock, and on miss
// a compute outside any lock followed by a write-locked recheck-then-store
// in which the first stored value wins. Concurrent requests for the same
// key may each evaluate the density function, but all of them return the
// one stored value.
type Store struct {
	resolution int32
	voxelStep  float32
	density    Evaluator

	cornerMu sync.RWMutex
	corners  map[coord.LatticeIndex]float32

	edgeMu sync.RWMutex
	edges  map[edgeKey][]float32

	faceMu sync.RWMutex
	faces  map[faceKey][][]float32
}

// New builds a Store for chunks of the given resolution and voxel step,
// sampling the given density evaluator on cache misses.
func New(resolution int32, voxelStep float32, density Evaluator) *Store {
	return &Store{
		resolution: resolution,
		voxelStep:  voxelStep,
		density:    density,
		corners:    make(map[coord.LatticeIndex]float32),
		edges:      make(map[edgeKey][]float32),
		faces:      make(map[faceKey][][]float32),
	}
}

// GetOrCreateCorner returns the density at the indexed corner (lx, ly, lz
// each 0 or the chunk's resolution) of chunk c, creating it by evaluating
// the density function if absent.
func (s *Store) GetOrCreateCorner(c coord.ChunkCoord, lx, ly, lz int32) float32 {
	key := coord.CornerLatticeIndex(c, s.resolution, lx, ly, lz)

	s.cornerMu.RLock()
	if v, ok := s.corners[key]; ok {
		s.cornerMu.RUnlock()
		return v
	}
	s.cornerMu.RUnlock()

	v := s.density.Evaluate(key.WorldPos(s.voxelStep))

	s.cornerMu.Lock()
	if existing, ok := s.corners[key]; ok {
		s.cornerMu.Unlock()
		return existing
	}
	s.corners[key] = v
	s.cornerMu.Unlock()
	return v
}

// GetOrCreateEdge returns the resolution+1 densities along the edge of
// chunk c on the given axis starting at local corner (lx, ly, lz). Exactly
// one of lx, ly, lz varies with axis; the other two are fixed
// 0-or-resolution offsets identifying which of the 12 edges this is.
func (s *Store) GetOrCreateEdge(c coord.ChunkCoord, axis coord.Axis, lx, ly, lz int32) []float32 {
	min := coord.CornerLatticeIndex(c, s.resolution, lx, ly, lz)
	key := edgeKey{Min: min, Axis: axis}

	s.edgeMu.RLock()
	if v, ok := s.edges[key]; ok {
		s.edgeMu.RUnlock()
		return v
	}
	s.edgeMu.RUnlock()

	v := s.sampleEdge(min, axis)

	s.edgeMu.Lock()
	if existing, ok := s.edges[key]; ok {
		s.edgeMu.Unlock()
		return existing
	}
	s.edges[key] = v
	s.edgeMu.Unlock()
	return v
}

func (s *Store) sampleEdge(min coord.LatticeIndex, axis coord.Axis) []float32 {
	out := make([]float32, s.resolution+1)
	for i := int32(0); i <= s.resolution; i++ {
		p := min
		switch axis {
		case coord.AxisX:
			p.X += i
		case coord.AxisY:
			p.Y += i
		default:
			p.Z += i
		}
		out[i] = s.density.Evaluate(p.WorldPos(s.voxelStep))
	}
	return out
}

// GetOrCreateFace returns the (resolution+1)x(resolution+1) density grid for
// the positive face of faceDir's axis, owned by the lower-coordinate chunk
// on that axis (§4.6's ownership convention): a request for the negative
// face of c translates to the positive face of c's neighbor across that
// axis.
func (s *Store) GetOrCreateFace(c coord.ChunkCoord, faceDir coord.FaceDir) [][]float32 {
	owner := c
	if faceDir.Sign < 0 {
		owner = c.Neighbor(faceDir)
	}
	key := faceKey{Owner: owner, Axis: faceDir.Axis}

	s.faceMu.RLock()
	if v, ok := s.faces[key]; ok {
		s.faceMu.RUnlock()
		return v
	}
	s.faceMu.RUnlock()

	v := s.sampleFace(owner, faceDir.Axis)

	s.faceMu.Lock()
	if existing, ok := s.faces[key]; ok {
		s.faceMu.Unlock()
		return existing
	}
	s.faces[key] = v
	s.faceMu.Unlock()
	return v
}

func (s *Store) sampleFace(owner coord.ChunkCoord, axis coord.Axis) [][]float32 {
	r := s.resolution
	grid := make([][]float32, r+1)
	for u := int32(0); u <= r; u++ {
		row := make([]float32, r+1)
		for v := int32(0); v <= r; v++ {
			var lx, ly, lz int32
			switch axis {
			case coord.AxisX:
				lx, ly, lz = r, u, v
			case coord.AxisY:
				lx, ly, lz = u, r, v
			default:
				lx, ly, lz = u, v, r
			}
			p := coord.CornerLatticeIndex(owner, s.resolution, lx, ly, lz)
			row[v] = s.density.Evaluate(p.WorldPos(s.voxelStep))
		}
		grid[u] = row
	}
	return grid
}

// Invalidate removes every corner, edge, and face entry touching chunk c:
// its own 8 corners/12 edges/6 faces, and the matching entries owned by
// neighbors that reach into c.
func (s *Store) Invalidate(c coord.ChunkCoord) {
	s.invalidateCorners(c)
	s.invalidateEdges(c)
	s.invalidateFaces(c)
}

func (s *Store) invalidateCorners(c coord.ChunkCoord) {
	s.cornerMu.Lock()
	defer s.cornerMu.Unlock()
	for lx := int32(0); lx <= 1; lx++ {
		for ly := int32(0); ly <= 1; ly++ {
			for lz := int32(0); lz <= 1; lz++ {
				key := coord.CornerLatticeIndex(c, s.resolution, lx*s.resolution, ly*s.resolution, lz*s.resolution)
				delete(s.corners, key)
			}
		}
	}
}

func (s *Store) invalidateEdges(c coord.ChunkCoord) {
	s.edgeMu.Lock()
	defer s.edgeMu.Unlock()
	r := s.resolution
	// The 12 edges of chunk c itself, plus the edges of the (up to 4)
	// neighbors sharing c's axis-aligned edges, all keyed by min-corner.
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
				min := coord.CornerLatticeIndex(c, r, lx, ly, lz)
				delete(s.edges, edgeKey{Min: min, Axis: axis})
			}
		}
	}
}

func (s *Store) invalidateFaces(c coord.ChunkCoord) {
	s.faceMu.Lock()
	defer s.faceMu.Unlock()
	for _, axis := range []coord.Axis{coord.AxisX, coord.AxisY, coord.AxisZ} {
		delete(s.faces, faceKey{Owner: c, Axis: axis})
		neighbor := c.Neighbor(coord.FaceDir{Axis: axis, Sign: -1})
		delete(s.faces, faceKey{Owner: neighbor, Axis: axis})
	}
}

// Clear empties all three tables.
func (s *Store) Clear() {
	s.cornerMu.Lock()
	s.corners = make(map[coord.LatticeIndex]float32)
	s.cornerMu.Unlock()

	s.edgeMu.Lock()
	s.edges = make(map[edgeKey][]float32)
	s.edgeMu.Unlock()

	s.faceMu.Lock()
	s.faces = make(map[faceKey][][]float32)
	s.faceMu.Unlock()
}
