// Package marching implements table-driven marching-cubes isosurface
// extraction (C8): Paul Bourke's canonical edge and triangle tables over a
// density lattice, threshold 0.
package marching

import "github.com/go-gl/mathgl/mgl32"

const degenerateEpsilon = 1e-5

// Lattice is the minimal surface a density grid must expose to be meshed.
// Index order is [x][y][z], 0..resolution inclusive on every axis.
type Lattice interface {
	Resolution() int32
	Density(x, y, z int32) float32
	WorldPos(x, y, z int32) mgl32.Vec3
}

// Mesh is the triangle soup produced by Extract: positions and flat index
// triples. Normals and colors are filled in by the mesh package, not here.
type Mesh struct {
	Positions []mgl32.Vec3
	Indices   []int32
}

// Extract runs marching cubes over the full lattice at threshold 0. It
// returns an empty Mesh (not nil) when no cube emits a triangle; callers use
// the surface-crossing test to skip calling Extract entirely when possible.
func Extract(l Lattice) Mesh {
	r := l.Resolution()
	var mesh Mesh

	var cornerDensity [8]float32
	var cornerPos [8]mgl32.Vec3
	var edgeVertex [12]int32
	var edgeSet [12]bool

	for x := int32(0); x < r; x++ {
		for y := int32(0); y < r; y++ {
			for z := int32(0); z < r; z++ {
				for i, off := range cornerOffset {
					cx, cy, cz := x+off[0], y+off[1], z+off[2]
					cornerDensity[i] = l.Density(cx, cy, cz)
					cornerPos[i] = l.WorldPos(cx, cy, cz)
				}

				var cubeIndex uint16
				for i := 0; i < 8; i++ {
					if cornerDensity[i] < 0 {
						cubeIndex |= 1 << uint(i)
					}
				}

				bits := edgeTable[cubeIndex]
				if bits == 0 {
					continue
				}

				for e := range edgeSet {
					edgeSet[e] = false
				}

				for e := 0; e < 12; e++ {
					if bits&(1<<uint(e)) == 0 {
						continue
					}
					a, b := edgeCorners[e][0], edgeCorners[e][1]
					pos := interpolate(cornerPos[a], cornerPos[b], cornerDensity[a], cornerDensity[b])
					mesh.Positions = append(mesh.Positions, pos)
					edgeVertex[e] = int32(len(mesh.Positions) - 1)
					edgeSet[e] = true
				}

				tris := triTable[cubeIndex]
				for i := 0; i < len(tris) && tris[i] != -1; i += 3 {
					mesh.Indices = append(mesh.Indices,
						edgeVertex[tris[i]], edgeVertex[tris[i+1]], edgeVertex[tris[i+2]])
				}
			}
		}
	}

	return mesh
}

// interpolate finds the zero-crossing point between two corners per the
// linear interpolation rule t = -v1/(v2-v1), guarding the degenerate cases
// where either density or their difference is within epsilon of zero by
// snapping to the nearer endpoint.
func interpolate(p1, p2 mgl32.Vec3, v1, v2 float32) mgl32.Vec3 {
	if absF(v1) < degenerateEpsilon {
		return p1
	}
	if absF(v2) < degenerateEpsilon {
		return p2
	}
	if absF(v1-v2) < degenerateEpsilon {
		return p1
	}
	t := -v1 / (v2 - v1)
	return p1.Add(p2.Sub(p1).Mul(t))
}

func absF(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
