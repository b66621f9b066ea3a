// Package coord defines the chunk-coordinate and lattice-index types shared
// by the boundary store, chunk, and streamer packages.
package coord

import "github.com/go-gl/mathgl/mgl32"

// ChunkCoord is a signed 3-integer chunk coordinate (§3.1). Chunk (x,y,z)
// occupies the world-space box [coord*S, (coord+1)*S) for chunk size S.
type ChunkCoord struct {
	X, Y, Z int32
}

// Add returns c shifted by (dx, dy, dz).
func (c ChunkCoord) Add(dx, dy, dz int32) ChunkCoord {
	return ChunkCoord{c.X + dx, c.Y + dy, c.Z + dz}
}

// Axis identifies one of the three world axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// FaceDir is a signed face direction, one of ±X, ±Y, ±Z.
type FaceDir struct {
	Axis Axis
	Sign int32 // +1 or -1
}

var (
	PosX = FaceDir{AxisX, 1}
	NegX = FaceDir{AxisX, -1}
	PosY = FaceDir{AxisY, 1}
	NegY = FaceDir{AxisY, -1}
	PosZ = FaceDir{AxisZ, 1}
	NegZ = FaceDir{AxisZ, -1}
)

// Neighbor returns the chunk adjacent to c across the given face.
func (c ChunkCoord) Neighbor(f FaceDir) ChunkCoord {
	switch f.Axis {
	case AxisX:
		return c.Add(f.Sign, 0, 0)
	case AxisY:
		return c.Add(0, f.Sign, 0)
	default:
		return c.Add(0, 0, f.Sign)
	}
}

// WorldMin returns the world-space minimum corner of the chunk for a given
// chunk side length.
func (c ChunkCoord) WorldMin(size float32) mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X) * size, float32(c.Y) * size, float32(c.Z) * size}
}

// Center returns the world-space center of the chunk.
func (c ChunkCoord) Center(size float32) mgl32.Vec3 {
	half := size / 2
	min := c.WorldMin(size)
	return mgl32.Vec3{min.X() + half, min.Y() + half, min.Z() + half}
}

// LatticeIndex is a global integer position in lattice-step units — the
// coordinate space shared samples on chunk boundaries are keyed in.
// A chunk at ChunkCoord c with resolution R spans lattice indices
// [c*R, (c+1)*R] inclusive on every axis.
type LatticeIndex struct {
	X, Y, Z int32
}

// CornerLatticeIndex returns the lattice-space position of local corner
// (lx, ly, lz), each 0 or resolution, within chunk c.
func CornerLatticeIndex(c ChunkCoord, resolution, lx, ly, lz int32) LatticeIndex {
	return LatticeIndex{c.X*resolution + lx, c.Y*resolution + ly, c.Z*resolution + lz}
}

// WorldPos converts a lattice index to a world position given the voxel step.
func (i LatticeIndex) WorldPos(voxelStep float32) mgl32.Vec3 {
	return mgl32.Vec3{float32(i.X) * voxelStep, float32(i.Y) * voxelStep, float32(i.Z) * voxelStep}
}

// AABBIntersectsSphere reports whether the chunk's axis-aligned box
// intersects a sphere of the given center and radius.
func (c ChunkCoord) AABBIntersectsSphere(size float32, center mgl32.Vec3, radius float32) bool {
	min := c.WorldMin(size)
	max := mgl32.Vec3{min.X() + size, min.Y() + size, min.Z() + size}

	var closest mgl32.Vec3
	closest[0] = clampF(center.X(), min.X(), max.X())
	closest[1] = clampF(center.Y(), min.Y(), max.Y())
	closest[2] = clampF(center.Z(), min.Z(), max.Z())

	return closest.Sub(center).Len() <= radius
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DistanceTo returns the euclidean distance from the chunk's center to p.
func (c ChunkCoord) DistanceTo(size float32, p mgl32.Vec3) float32 {
	return c.Center(size).Sub(p).Len()
}
