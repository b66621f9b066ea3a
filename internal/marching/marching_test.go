package marching

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// denseLattice is a (Resolution+1)-cubed grid of density samples addressable by
// a function, used to build small synthetic test fixtures.
type denseLattice struct {
	resolution int32
	step       float32
	fn         func(x, y, z int32) float32
}

func (d denseLattice) Resolution() int32 { return d.resolution }
func (d denseLattice) Density(x, y, z int32) float32 {
	return d.fn(x, y, z)
}
func (d denseLattice) WorldPos(x, y, z int32) mgl32.Vec3 {
	return mgl32.Vec3{float32(x) * d.step, float32(y) * d.step, float32(z) * d.step}
}

func allSolid(r int32, step float32) denseLattice {
	return denseLattice{resolution: r, step: step, fn: func(x, y, z int32) float32 { return 1 }}
}

func allEmpty(r int32, step float32) denseLattice {
	return denseLattice{resolution: r, step: step, fn: func(x, y, z int32) float32 { return -1 }}
}

func TestExtractEmitsNoTrianglesWhenAllSolid(t *testing.T) {
	mesh := Extract(allSolid(4, 1))
	if len(mesh.Indices) != 0 {
		t.Fatalf("Extract() on all-solid lattice emitted %d indices, want 0", len(mesh.Indices))
	}
}

func TestExtractEmitsNoTrianglesWhenAllEmpty(t *testing.T) {
	mesh := Extract(allEmpty(4, 1))
	if len(mesh.Indices) != 0 {
		t.Fatalf("Extract() on all-empty lattice emitted %d indices, want 0", len(mesh.Indices))
	}
}

func TestExtractSingleCubeCrossingEmitsTriangles(t *testing.T) {
	// A single solid corner at the origin, empty everywhere else, carves one
	// tetrahedron-shaped corner off the cube: cube index 254 (bits 1-7 set,
	// one for each negative corner).
	l := denseLattice{resolution: 1, step: 1, fn: func(x, y, z int32) float32 {
		if x == 0 && y == 0 && z == 0 {
			return 1
		}
		return -1
	}}
	mesh := Extract(l)
	if len(mesh.Indices) == 0 {
		t.Fatal("Extract() on single-corner-solid lattice emitted no triangles")
	}
	if len(mesh.Indices)%3 != 0 {
		t.Fatalf("index count %d is not a multiple of 3", len(mesh.Indices))
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Positions) {
			t.Fatalf("index %d out of range for %d positions", idx, len(mesh.Positions))
		}
	}
}

func TestInterpolateSnapsNearZeroToEndpoint(t *testing.T) {
	p1 := mgl32.Vec3{0, 0, 0}
	p2 := mgl32.Vec3{1, 0, 0}

	got := interpolate(p1, p2, 1e-7, -1)
	if got != p1 {
		t.Fatalf("interpolate() with v1~=0 = %v, want p1 %v", got, p1)
	}

	got = interpolate(p1, p2, 1, -1e-7)
	if got != p2 {
		t.Fatalf("interpolate() with v2~=0 = %v, want p2 %v", got, p2)
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	p1 := mgl32.Vec3{0, 0, 0}
	p2 := mgl32.Vec3{2, 0, 0}
	got := interpolate(p1, p2, 1, -1)
	want := mgl32.Vec3{1, 0, 0}
	if got.Sub(want).Len() > 1e-4 {
		t.Fatalf("interpolate() = %v, want %v", got, want)
	}
}
