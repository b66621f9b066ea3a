package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type fixedLattice struct {
	resolution int32
	values     map[[3]int32]float32
}

func (f fixedLattice) Resolution() int32 { return f.resolution }
func (f fixedLattice) Density(x, y, z int32) float32 {
	if v, ok := f.values[[3]int32{x, y, z}]; ok {
		return v
	}
	return 1
}
func (f fixedLattice) WorldPos(x, y, z int32) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), float32(y), float32(z)}
}

func TestHasSurfaceCrossingFalseWhenAllSolid(t *testing.T) {
	l := fixedLattice{resolution: 2, values: map[[3]int32]float32{}}
	if HasSurfaceCrossing(l) {
		t.Fatal("HasSurfaceCrossing() = true on uniformly solid lattice")
	}
}

func TestHasSurfaceCrossingTrueWithOneNegativeSample(t *testing.T) {
	l := fixedLattice{resolution: 2, values: map[[3]int32]float32{{1, 1, 1}: -1}}
	if !HasSurfaceCrossing(l) {
		t.Fatal("HasSurfaceCrossing() = false despite a negative sample present")
	}
}

func TestNormalsFromGeometryUnitLength(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	indices := []int32{0, 1, 2}
	normals := NormalsFromGeometry(positions, indices)
	for i, n := range normals {
		if l := n.Len(); l < 0.99 || l > 1.01 {
			t.Errorf("normal[%d] length = %f, want ~1", i, l)
		}
	}
}

func TestSamplePointsFiltersByAltitudeAndAlignment(t *testing.T) {
	m := Mesh{
		Positions: []mgl32.Vec3{
			{100, 0, 0}, // altitude 0 at radius 100
			{50, 0, 0},  // altitude -50, below floor
			{110, 0, 0}, // altitude 10
		},
		Normals: []mgl32.Vec3{
			{1, 0, 0}, // aligned outward
			{1, 0, 0},
			{-1, 0, 0}, // pointing inward, should be rejected
		},
	}
	cfg := SampleConfig{
		PlanetCenter:   mgl32.Vec3{0, 0, 0},
		PlanetRadius:   100,
		Stride:         1,
		MinRadialAlign: 0.5,
		MinAltitude:    -1,
	}
	points := SamplePoints(cfg, m, nil)
	if len(points) != 1 {
		t.Fatalf("SamplePoints() returned %d points, want 1", len(points))
	}
	if points[0].Altitude != 0 {
		t.Errorf("surviving point altitude = %f, want 0", points[0].Altitude)
	}
}

func TestSamplePointsRespectsTargetCount(t *testing.T) {
	m := Mesh{}
	for i := 0; i < 10; i++ {
		m.Positions = append(m.Positions, mgl32.Vec3{100, 0, 0})
		m.Normals = append(m.Normals, mgl32.Vec3{1, 0, 0})
	}
	cfg := SampleConfig{
		PlanetCenter:   mgl32.Vec3{0, 0, 0},
		PlanetRadius:   100,
		Stride:         1,
		MinRadialAlign: 0,
		TargetCount:    3,
	}
	points := SamplePoints(cfg, m, nil)
	if len(points) != 3 {
		t.Fatalf("SamplePoints() returned %d points, want target of 3", len(points))
	}
}
