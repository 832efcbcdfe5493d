package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/stripray/striprt/rt/accum"
	"github.com/gekko3d/stripray/striprt/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxRandom is the length of the random-vector array in the shader.
const MaxRandom = 16

// UniformSize is the byte size of the Params block:
//
//	struct Params {
//	  origin:     vec4<f32>,               // 0
//	  lower_left: vec4<f32>,               // 16
//	  horizontal: vec4<f32>,               // 32
//	  vertical:   vec4<f32>,               // 48
//	  spheres:    array<vec4<f32>, 8>,     // 64   center.xyz, radius
//	  colors:     array<vec4<f32>, 8>,     // 192
//	  emission:   array<vec4<f32>, 8>,     // 320
//	  randoms:    array<vec4<f32>, 16>,    // 448  unit-ball vector, weight
//	  control:    vec4<f32>,               // 704  blend, history, spheres, randoms
//	}                                      // 720
const UniformSize = 720

const (
	offOrigin     = 0
	offLowerLeft  = 16
	offHorizontal = 32
	offVertical   = 48
	offSpheres    = 64
	offColors     = 192
	offEmission   = 320
	offRandoms    = 448
	offControl    = 704
)

// Uniforms holds every pipeline-wide (non-interpolated) parameter of a draw.
type Uniforms struct {
	Origin     mgl32.Vec3
	LowerLeft  mgl32.Vec3
	Horizontal mgl32.Vec3
	Vertical   mgl32.Vec3

	Spheres     [core.MaxSpheres]mgl32.Vec4
	Colors      [core.MaxSpheres]mgl32.Vec3
	Emission    [core.MaxSpheres]mgl32.Vec3
	SphereCount int

	Randoms     [MaxRandom]mgl32.Vec4
	RandomCount int

	// Blend is the quantized weight of the new sample; 255 replaces history.
	Blend   uint8
	History bool
	Frame   uint32
}

func (u *Uniforms) SetCamera(cam core.Camera) {
	u.Origin = cam.Origin
	u.LowerLeft = cam.LowerLeftCorner
	u.Horizontal = cam.Horizontal
	u.Vertical = cam.Vertical
}

// Camera rebuilds the basis the shading stage sees.
func (u *Uniforms) Camera() core.Camera {
	return core.Camera{
		Origin:          u.Origin,
		LowerLeftCorner: u.LowerLeft,
		Horizontal:      u.Horizontal,
		Vertical:        u.Vertical,
	}
}

func (u *Uniforms) SetScene(p core.SceneParams) {
	n := min(p.Len(), core.MaxSpheres)
	u.SphereCount = n
	for i := 0; i < n; i++ {
		u.Spheres[i] = p.Spheres[i]
		u.Colors[i] = p.Colors[i]
		u.Emission[i] = p.Emission[i]
	}
}

// Scene returns the packed scene as the shading stage sees it.
func (u *Uniforms) Scene() core.SceneParams {
	return core.SceneParams{
		Spheres:  u.Spheres[:u.SphereCount],
		Colors:   u.Colors[:u.SphereCount],
		Emission: u.Emission[:u.SphereCount],
	}
}

func (u *Uniforms) SetRandom(b *core.RandomBatch) {
	n := min(b.Len(), MaxRandom)
	u.RandomCount = n
	for i := 0; i < n; i++ {
		u.Randoms[i] = b.Vectors[i].Vec4(b.Weights[i])
	}
}

// RandomSlot returns the random vector and weight assigned to pixel (px, py).
func (u *Uniforms) RandomSlot(px, py int) (mgl32.Vec3, float32) {
	if u.RandomCount == 0 {
		return mgl32.Vec3{}, 0
	}
	r := u.Randoms[core.RandomSlot(px, py, u.RandomCount)]
	return r.Vec3(), r.W()
}

func (u *Uniforms) SetBlend(a *accum.Accumulator) {
	u.Frame = a.Frame()
	u.Blend = a.QuantizedWeight()
	u.History = a.HistoryEnabled()
}

// BlendWeight is the dequantized weight applied by the shading stage.
func (u *Uniforms) BlendWeight() float32 {
	if !u.History {
		return 1
	}
	return accum.DequantizeWeight(u.Blend)
}

// Bytes encodes the block in the std140-compatible layout documented on UniformSize.
func (u *Uniforms) Bytes() []byte {
	buf := make([]byte, UniformSize)

	putVec3 := func(offset int, v mgl32.Vec3, w float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[offset+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[offset+8:], math.Float32bits(v[2]))
		binary.LittleEndian.PutUint32(buf[offset+12:], math.Float32bits(w))
	}

	putVec3(offOrigin, u.Origin, 1)
	putVec3(offLowerLeft, u.LowerLeft, 0)
	putVec3(offHorizontal, u.Horizontal, 0)
	putVec3(offVertical, u.Vertical, 0)

	for i := 0; i < core.MaxSpheres; i++ {
		putVec3(offSpheres+i*16, u.Spheres[i].Vec3(), u.Spheres[i].W())
		putVec3(offColors+i*16, u.Colors[i], 0)
		putVec3(offEmission+i*16, u.Emission[i], 0)
	}
	for i := 0; i < MaxRandom; i++ {
		putVec3(offRandoms+i*16, u.Randoms[i].Vec3(), u.Randoms[i].W())
	}

	history := float32(0)
	if u.History {
		history = 1
	}
	control := mgl32.Vec3{u.BlendWeight(), history, float32(u.SphereCount)}
	putVec3(offControl, control, float32(u.RandomCount))

	return buf
}
