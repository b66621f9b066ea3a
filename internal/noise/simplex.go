// Package noise implements the deterministic 3D scalar noise primitive (C1)
// the rest of the engine builds layers, biome blending, and cave carving on.
package noise

import "github.com/go-gl/mathgl/mgl32"

// grad3 are the gradient vectors for 3D simplex noise.
var grad3 = [12][3]float32{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Source produces deterministic 3D simplex noise from a 32-bit seed.
// A Source is immutable after construction and safe for concurrent use by
// any number of goroutines.
type Source struct {
	perm [512]int32
}

// New builds a Source whose permutation table is a deterministic shuffle of
// seed. Equal seeds always yield equal Sources, and therefore equal Sample3
// outputs for equal inputs (the determinism invariant in §3.2).
func New(seed int32) *Source {
	s := &Source{}

	var p [256]int32
	for i := range p {
		p[i] = int32(i)
	}

	// Fisher-Yates shuffle driven by a seed-derived LCG, matching the
	// teacher's permutation construction so results are reproducible
	// across platforms given identical float rounding.
	state := int64(seed)
	for i := 255; i > 0; i-- {
		state = state*6364136223846793005 + 1442695040888963407
		j := int((state >> 33) & 0x7FFFFFFF) % (i + 1)
		if j < 0 {
			j = -j
		}
		p[i], p[j] = p[j], p[i]
	}

	for i := 0; i < 512; i++ {
		s.perm[i] = p[i&255]
	}
	return s
}

// Sample3 returns deterministic noise at p in [-1, 1]. NaN or infinite
// intermediate results (can occur when p carries a NaN from upstream
// configuration) are clamped to 0 by the caller per the noise_nan error
// policy in §7, not here — Sample3 itself is a pure function of its inputs.
func (s *Source) Sample3(p mgl32.Vec3) float32 {
	const (
		f3 = 1.0 / 3.0
		g3 = 1.0 / 6.0
	)

	x, y, z := p.X(), p.Y(), p.Z()

	sum := (x + y + z) * f3
	i := fastFloor(x + sum)
	j := fastFloor(y + sum)
	k := fastFloor(z + sum)

	t := float32(i+j+k) * g3
	x0 := x - (float32(i) - t)
	y0 := y - (float32(j) - t)
	z0 := z - (float32(k) - t)

	var i1, j1, k1, i2, j2, k2 int32
	if x0 >= y0 {
		switch {
		case y0 >= z0:
			i1, j1, k1 = 1, 0, 0
			i2, j2, k2 = 1, 1, 0
		case x0 >= z0:
			i1, j1, k1 = 1, 0, 0
			i2, j2, k2 = 1, 0, 1
		default:
			i1, j1, k1 = 0, 0, 1
			i2, j2, k2 = 1, 0, 1
		}
	} else {
		switch {
		case y0 < z0:
			i1, j1, k1 = 0, 0, 1
			i2, j2, k2 = 0, 1, 1
		case x0 < z0:
			i1, j1, k1 = 0, 1, 0
			i2, j2, k2 = 0, 1, 1
		default:
			i1, j1, k1 = 0, 1, 0
			i2, j2, k2 = 1, 1, 0
		}
	}

	x1 := x0 - float32(i1) + g3
	y1 := y0 - float32(j1) + g3
	z1 := z0 - float32(k1) + g3
	x2 := x0 - float32(i2) + 2*g3
	y2 := y0 - float32(j2) + 2*g3
	z2 := z0 - float32(k2) + 2*g3
	x3 := x0 - 1 + 3*g3
	y3 := y0 - 1 + 3*g3
	z3 := z0 - 1 + 3*g3

	ii := i & 255
	jj := j & 255
	kk := k & 255
	gi0 := s.perm[ii+s.perm[jj+s.perm[kk]]] % 12
	gi1 := s.perm[ii+i1+s.perm[jj+j1+s.perm[kk+k1]]] % 12
	gi2 := s.perm[ii+i2+s.perm[jj+j2+s.perm[kk+k2]]] % 12
	gi3 := s.perm[ii+1+s.perm[jj+1+s.perm[kk+1]]] % 12

	var n0, n1, n2, n3 float32

	if t0 := 0.6 - x0*x0 - y0*y0 - z0*z0; t0 >= 0 {
		t0 *= t0
		n0 = t0 * t0 * dot3(grad3[gi0], x0, y0, z0)
	}
	if t1 := 0.6 - x1*x1 - y1*y1 - z1*z1; t1 >= 0 {
		t1 *= t1
		n1 = t1 * t1 * dot3(grad3[gi1], x1, y1, z1)
	}
	if t2 := 0.6 - x2*x2 - y2*y2 - z2*z2; t2 >= 0 {
		t2 *= t2
		n2 = t2 * t2 * dot3(grad3[gi2], x2, y2, z2)
	}
	if t3 := 0.6 - x3*x3 - y3*y3 - z3*z3; t3 >= 0 {
		t3 *= t3
		n3 = t3 * t3 * dot3(grad3[gi3], x3, y3, z3)
	}

	return 32 * (n0 + n1 + n2 + n3)
}

// Octaves layers count octaves of Sample3 into a standard fBM sum, roughly
// in [-1, 1]. frequency scales p before the first octave; lacunarity scales
// frequency between octaves; persistence scales amplitude between octaves.
func (s *Source) Octaves(p mgl32.Vec3, octaves int, frequency, lacunarity, persistence float32) float32 {
	var total, amplitude, norm float32 = 0, 1, 0
	freq := frequency
	for i := 0; i < octaves; i++ {
		total += s.Sample3(p.Mul(freq)) * amplitude
		norm += amplitude
		amplitude *= persistence
		freq *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return total / norm
}

func fastFloor(x float32) int32 {
	xi := int32(x)
	if x < float32(xi) {
		return xi - 1
	}
	return xi
}

func dot3(g [3]float32, x, y, z float32) float32 {
	return g[0]*x + g[1]*y + g[2]*z
}
