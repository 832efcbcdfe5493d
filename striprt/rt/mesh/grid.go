package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"unsafe"

	"github.com/gekko3d/stripray/striprt/rt/core"
)

// MeshDepth is the constant clip-space depth of the screen proxy. Real depth
// comes from the analytic intersection in the fragment stage.
const MeshDepth = 0.5

var ErrGridTooSmall = errors.New("mesh: grid must be at least 2x2")

// DirectVertex carries a precomputed primary ray. Matches vs_direct input.
type DirectVertex struct {
	Direction [3]float32
	Coords    [3]float32
}

// DeferredVertex carries the data needed to rebuild the ray in-shader.
// Matches vs_deferred input.
type DeferredVertex struct {
	JitterUV [2]float32
	Coords   [3]float32
	TexUV    [2]float32
}

// UVMapper maps normalized screen coordinates onto the feedback texture.
type UVMapper interface {
	UV(s, t float32) [2]float32
}

// Grid is a W x H lattice of screen-space vertices drawn as one triangle strip.
// Vertex (x, y) lives at index x + y*W; y grows from the bottom of the screen.
type Grid struct {
	W, H     int
	Deferred bool

	Direct        []DirectVertex
	DeferredVerts []DeferredVertex
	Indices       []uint32
}

func NewGrid(w, h int, deferred bool) (*Grid, error) {
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrGridTooSmall, w, h)
	}
	g := &Grid{
		W:        w,
		H:        h,
		Deferred: deferred,
		Indices:  BuildIndices(w, h),
	}

	n := w * h
	if deferred {
		g.DeferredVerts = make([]DeferredVertex, n)
	} else {
		g.Direct = make([]DirectVertex, n)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s, t := g.ST(x, y)
			coords := [3]float32{2*s - 1, 2*t - 1, MeshDepth}
			i := x + y*w
			if deferred {
				g.DeferredVerts[i].Coords = coords
				g.DeferredVerts[i].JitterUV = [2]float32{s, t}
			} else {
				g.Direct[i].Coords = coords
			}
		}
	}
	return g, nil
}

// IndexCount is the strip length for a W x H grid: 2*W*H + 2*H.
func IndexCount(w, h int) int {
	return 2*w*h + 2*h
}

// BuildIndices emits one strip row per grid row. Each row opens with a
// repeat of its first top vertex and closes with a repeat of its last bottom
// vertex, so the joins between rows are zero-area triangles. The final row
// has no row below it and is stitched onto itself, which keeps every index
// in range and makes that row contribute no area.
func BuildIndices(w, h int) []uint32 {
	indices := make([]uint32, 0, IndexCount(w, h))
	for y := 0; y < h; y++ {
		below := y + 1
		if below > h-1 {
			below = h - 1
		}

		indices = append(indices, uint32(y*w))
		for x := 0; x < w; x++ {
			indices = append(indices, uint32(y*w+x), uint32(below*w+x))
		}
		indices = append(indices, uint32(below*w+w-1))
	}
	return indices
}

// ST returns the normalized screen coordinates of vertex (x, y).
func (g *Grid) ST(x, y int) (float32, float32) {
	return float32(x) / float32(g.W-1), float32(y) / float32(g.H-1)
}

func (g *Grid) VertexCount() int {
	return g.W * g.H
}

func (g *Grid) IndexCount() int {
	return len(g.Indices)
}

// SetRays writes the camera ray of every vertex. Direct grids only.
func (g *Grid) SetRays(cam core.Camera) {
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			s, t := g.ST(x, y)
			d := cam.RayDirection(s, t)
			g.Direct[x+y*g.W].Direction = [3]float32{d[0], d[1], d[2]}
		}
	}
}

// Jitter offsets every vertex UV by a uniform draw in [0, 1/W) x [0, 1/H),
// added to a base pulled back by half a pixel. Interpolated at a pixel centre
// the sample window is that pixel's own footprint, so rasterized UVs stay in
// [0,1]. Border vertices may step half a pixel outside; no fragment lands
// there. Deferred grids only.
func (g *Grid) Jitter(rng *rand.Rand) {
	dx := 1 / float32(g.W)
	dy := 1 / float32(g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			s, t := g.ST(x, y)
			g.DeferredVerts[x+y*g.W].JitterUV = [2]float32{
				s - dx/2 + rng.Float32()*dx,
				t - dy/2 + rng.Float32()*dy,
			}
		}
	}
}

// SetTexUV fixes the feedback texture coordinate of every vertex.
func (g *Grid) SetTexUV(m UVMapper) {
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			s, t := g.ST(x, y)
			g.DeferredVerts[x+y*g.W].TexUV = m.UV(s, t)
		}
	}
}

func (g *Grid) Stride() int {
	if g.Deferred {
		return int(unsafe.Sizeof(DeferredVertex{}))
	}
	return int(unsafe.Sizeof(DirectVertex{}))
}

// VertexBytes returns the vertex data in upload layout. The slice aliases the
// grid's vertex storage.
func (g *Grid) VertexBytes() []byte {
	if g.Deferred {
		return unsafe.Slice((*byte)(unsafe.Pointer(&g.DeferredVerts[0])), len(g.DeferredVerts)*g.Stride())
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&g.Direct[0])), len(g.Direct)*g.Stride())
}

func (g *Grid) IndexBytes() []byte {
	buf := make([]byte, len(g.Indices)*4)
	for i, idx := range g.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// Interpolate evaluates the strip's linear interpolation of per-vertex data
// at normalized screen position (s, t), exactly as the rasterizer would. The
// callback receives up to three vertex indices and their barycentric weights.
func (g *Grid) Interpolate(s, t float32, fn func(idx [3]int, bary [3]float32)) {
	gx := clampf(s, 0, 1) * float32(g.W-1)
	gy := clampf(t, 0, 1) * float32(g.H-1)
	x := int(math.Floor(float64(gx)))
	y := int(math.Floor(float64(gy)))
	if x > g.W-2 {
		x = g.W - 2
	}
	if y > g.H-2 {
		y = g.H - 2
	}
	fx := gx - float32(x)
	fy := gy - float32(y)

	a := x + y*g.W   // (x, y)
	b := a + 1       // (x+1, y)
	c := a + g.W     // (x, y+1)
	d := a + g.W + 1 // (x+1, y+1)

	// The strip splits each cell along the b-c diagonal.
	if fx+fy <= 1 {
		fn([3]int{a, b, c}, [3]float32{1 - fx - fy, fx, fy})
		return
	}
	fn([3]int{d, c, b}, [3]float32{fx + fy - 1, 1 - fx, 1 - fy})
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
