package mesh

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gekko3d/stripray/striprt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleArea(a, b, c [3]float32) float32 {
	return float32(math.Abs(float64((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1])))) / 2
}

func TestIndexCountAndRange(t *testing.T) {
	sizes := [][2]int{{2, 2}, {3, 2}, {5, 4}, {150, 250}, {400, 240}}
	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		idx := BuildIndices(w, h)
		require.Len(t, idx, 2*w*h+2*h, "grid %dx%d", w, h)
		for i, v := range idx {
			if int(v) >= w*h {
				t.Fatalf("grid %dx%d: index %d = %d out of range", w, h, i, v)
			}
		}
	}
}

func TestStripCoversEveryCellTwice(t *testing.T) {
	for _, sz := range [][2]int{{2, 2}, {4, 3}, {7, 5}} {
		w, h := sz[0], sz[1]
		g, err := NewGrid(w, h, false)
		require.NoError(t, err)

		cells := map[[2]int]int{}
		idx := g.Indices
		for i := 0; i+2 < len(idx); i++ {
			a, b, c := idx[i], idx[i+1], idx[i+2]
			area := triangleArea(g.Direct[a].Coords, g.Direct[b].Coords, g.Direct[c].Coords)

			if a == b || b == c || a == c {
				assert.Zero(t, area, "degenerate triangle %d should have no area", i)
				continue
			}
			require.Greater(t, area, float32(0), "triangle %d (%d,%d,%d) has zero area", i, a, b, c)

			minX, minY := w, h
			maxX, maxY := 0, 0
			for _, v := range []uint32{a, b, c} {
				x, y := int(v)%w, int(v)/w
				minX, maxX = min(minX, x), max(maxX, x)
				minY, maxY = min(minY, y), max(maxY, y)
			}
			require.Equal(t, 1, maxX-minX, "triangle %d spans more than one column", i)
			require.Equal(t, 1, maxY-minY, "triangle %d spans more than one row", i)
			cells[[2]int{minX, minY}]++
		}

		assert.Len(t, cells, (w-1)*(h-1), "grid %dx%d", w, h)
		for cell, n := range cells {
			assert.Equal(t, 2, n, "cell %v", cell)
		}
	}
}

func TestGridTooSmall(t *testing.T) {
	_, err := NewGrid(1, 10, true)
	assert.True(t, errors.Is(err, ErrGridTooSmall))
	_, err = NewGrid(10, 1, false)
	assert.True(t, errors.Is(err, ErrGridTooSmall))
}

func TestGridCoordsSpanClipSpace(t *testing.T) {
	g, err := NewGrid(5, 3, true)
	require.NoError(t, err)

	first := g.DeferredVerts[0].Coords
	last := g.DeferredVerts[g.VertexCount()-1].Coords
	assert.Equal(t, [3]float32{-1, -1, MeshDepth}, first)
	assert.Equal(t, [3]float32{1, 1, MeshDepth}, last)
	assert.Equal(t, 28, g.Stride())
	assert.Len(t, g.VertexBytes(), g.VertexCount()*28)
	assert.Len(t, g.IndexBytes(), g.IndexCount()*4)

	d, err := NewGrid(5, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 24, d.Stride())
}

func TestSetRaysMatchesCamera(t *testing.T) {
	cam := core.NewCamera(mgl32.Vec3{0, 0.6125, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, 90, 400.0/240.0)
	g, err := NewGrid(6, 4, false)
	require.NoError(t, err)
	g.SetRays(cam)

	ll := g.Direct[0].Direction
	assert.Equal(t, [3]float32{cam.LowerLeftCorner[0], cam.LowerLeftCorner[1], cam.LowerLeftCorner[2]}, ll)

	ur := g.Direct[g.VertexCount()-1].Direction
	want := cam.RayDirection(1, 1)
	for k := 0; k < 3; k++ {
		assert.InDelta(t, want[k], ur[k], 1e-5)
	}
}

func TestJitterStaysInsideOnePixel(t *testing.T) {
	g, err := NewGrid(8, 6, true)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))

	before := append([]DeferredVertex(nil), g.DeferredVerts...)
	g.Jitter(rng)

	moved := 0
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			s, tt := g.ST(x, y)
			uv := g.DeferredVerts[x+y*g.W].JitterUV
			assert.GreaterOrEqual(t, uv[0], s-0.5/float32(g.W))
			assert.LessOrEqual(t, uv[0], s+0.5/float32(g.W))
			assert.GreaterOrEqual(t, uv[1], tt-0.5/float32(g.H))
			assert.LessOrEqual(t, uv[1], tt+0.5/float32(g.H))
			if uv != before[x+y*g.W].JitterUV {
				moved++
			}
			// Geometry is untouched.
			assert.Equal(t, before[x+y*g.W].Coords, g.DeferredVerts[x+y*g.W].Coords)
		}
	}
	assert.Greater(t, moved, 0)
}

type scaleMapper struct{ sx, sy float32 }

func (m scaleMapper) UV(s, t float32) [2]float32 { return [2]float32{s * m.sx, t * m.sy} }

func TestInterpolateIsLinear(t *testing.T) {
	g, err := NewGrid(5, 4, true)
	require.NoError(t, err)
	g.SetTexUV(scaleMapper{0.5, 0.25})

	points := [][2]float32{{0, 0}, {1, 1}, {0.3, 0.7}, {0.99, 0.01}, {0.5, 0.5}, {0.126, 0.334}}
	for _, p := range points {
		called := false
		g.Interpolate(p[0], p[1], func(idx [3]int, bary [3]float32) {
			called = true
			assert.InDelta(t, 1, bary[0]+bary[1]+bary[2], 1e-5)
			var u, v float32
			for k := 0; k < 3; k++ {
				assert.GreaterOrEqual(t, bary[k], float32(-1e-5))
				u += bary[k] * g.DeferredVerts[idx[k]].TexUV[0]
				v += bary[k] * g.DeferredVerts[idx[k]].TexUV[1]
			}
			// TexUV is linear in (s, t), so interpolation must reproduce it.
			assert.InDelta(t, p[0]*0.5, u, 1e-5, "point %v", p)
			assert.InDelta(t, p[1]*0.25, v, 1e-5, "point %v", p)
		})
		assert.True(t, called)
	}
}

// interpolatedJitter is the jittered UV the rasterizer would hand a fragment
// at (s, t).
func interpolatedJitter(g *Grid, s, t float32) [2]float32 {
	var uv [2]float32
	g.Interpolate(s, t, func(idx [3]int, bary [3]float32) {
		for i, vi := range idx {
			uv[0] += g.DeferredVerts[vi].JitterUV[0] * bary[i]
			uv[1] += g.DeferredVerts[vi].JitterUV[1] * bary[i]
		}
	})
	return uv
}

func TestJitterCentresOnPixelFootprint(t *testing.T) {
	g, err := NewGrid(8, 6, true)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))

	pixels := []struct {
		name   string
		px, py int
	}{
		{"lower left", 0, 0},
		{"interior", 3, 2},
		{"upper right", 7, 5},
	}
	for _, p := range pixels {
		t.Run(p.name, func(t *testing.T) {
			cs := (float32(p.px) + 0.5) / float32(g.W)
			ct := (float32(p.py) + 0.5) / float32(g.H)

			const draws = 4000
			var sumS, sumT float64
			for i := 0; i < draws; i++ {
				g.Jitter(rng)
				uv := interpolatedJitter(g, cs, ct)
				require.GreaterOrEqual(t, uv[0], float32(-1e-6))
				require.LessOrEqual(t, uv[0], float32(1+1e-6))
				require.GreaterOrEqual(t, uv[1], float32(-1e-6))
				require.LessOrEqual(t, uv[1], float32(1+1e-6))
				require.InDelta(t, cs, uv[0], 0.5/float64(g.W)+1e-5)
				require.InDelta(t, ct, uv[1], 0.5/float64(g.H)+1e-5)
				sumS += float64(uv[0])
				sumT += float64(uv[1])
			}
			assert.InDelta(t, cs, sumS/draws, 0.1/float64(g.W))
			assert.InDelta(t, ct, sumT/draws, 0.1/float64(g.H))
		})
	}
}
