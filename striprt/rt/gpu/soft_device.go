package gpu

import (
	"errors"
	"image"
	"image/color"

	"github.com/gekko3d/stripray/striprt/rt/accum"
	"github.com/gekko3d/stripray/striprt/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// SoftDevice rasterizes the strip on the CPU. It interpolates vertex data
// the same way the hardware does and runs the same shading model, which makes
// it the reference backend for headless runs and tests.
type SoftDevice struct {
	layout   accum.FeedbackLayout
	target   *image.RGBA
	feedback *image.RGBA

	frames FrameTracker
	// Surface, when set, receives every presented frame scaled to its
	// bounds, as a window surface larger than the render target would.
	Surface *image.RGBA

	// NotReady, when set, is consulted before each Submit. Returning true
	// simulates a frame the backend could not start.
	NotReady func(seq uint64) bool
	// OnPresent receives the render target of every presented frame.
	OnPresent func(img *image.RGBA)
}

func NewSoftDevice(width, height int) *SoftDevice {
	layout := accum.NewFeedbackLayout(width, height, accum.OriginBottomLeft)
	return &SoftDevice{
		layout:   layout,
		target:   image.NewRGBA(image.Rect(0, 0, width, height)),
		feedback: image.NewRGBA(image.Rect(0, 0, layout.TexWidth, layout.TexHeight)),
	}
}

// FeedbackOrigin is bottom-left: the feedback image is a linear buffer and
// the frame sits in its last Height rows.
func (d *SoftDevice) FeedbackOrigin() accum.Origin {
	return accum.OriginBottomLeft
}

func (d *SoftDevice) Layout() accum.FeedbackLayout {
	return d.layout
}

// Target is the most recently rendered image.
func (d *SoftDevice) Target() *image.RGBA {
	return d.target
}

// Feedback is the padded history texture.
func (d *SoftDevice) Feedback() *image.RGBA {
	return d.feedback
}

func (d *SoftDevice) Submit(f *Frame) (FrameHandle, error) {
	if err := d.frames.Begin(); err != nil {
		return FrameHandle{}, err
	}
	if f == nil || f.Grid == nil || f.Uniforms == nil {
		return FrameHandle{}, errors.New("gpu: incomplete frame")
	}
	if d.NotReady != nil && d.NotReady(d.frames.Next()) {
		return FrameHandle{}, ErrFrameNotReady
	}

	bg := rgba(mgl32.Vec3{f.ClearColor[0], f.ClearColor[1], f.ClearColor[2]}, f.ClearColor[3])
	draw.Draw(d.target, d.target.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	w, h := d.layout.Width, d.layout.Height
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			// Pixel centre, t up.
			s := (float32(px) + 0.5) / float32(w)
			t := 1 - (float32(py)+0.5)/float32(h)
			var c mgl32.Vec3
			if f.Grid.Deferred {
				c = d.shadeDeferred(f, px, py, s, t)
			} else {
				c = d.shadeDirect(f, px, py, s, t)
			}
			d.target.SetRGBA(px, py, rgba(c, 1))
		}
	}

	return d.frames.Issue(), nil
}

func (d *SoftDevice) shadeDirect(f *Frame, px, py int, s, t float32) mgl32.Vec3 {
	var dir mgl32.Vec3
	f.Grid.Interpolate(s, t, func(idx [3]int, bary [3]float32) {
		for i, vi := range idx {
			v := f.Grid.Direct[vi].Direction
			dir = dir.Add(mgl32.Vec3{v[0], v[1], v[2]}.Mul(bary[i]))
		}
	})
	rv, rw := f.Uniforms.RandomSlot(px, py)
	return clamp01(core.Shade(f.Uniforms.Origin, dir, f.Uniforms.Scene(), rv, rw))
}

func (d *SoftDevice) shadeDeferred(f *Frame, px, py int, s, t float32) mgl32.Vec3 {
	var uv, texUV mgl32.Vec2
	f.Grid.Interpolate(s, t, func(idx [3]int, bary [3]float32) {
		for i, vi := range idx {
			v := f.Grid.DeferredVerts[vi]
			uv = uv.Add(mgl32.Vec2{v.JitterUV[0], v.JitterUV[1]}.Mul(bary[i]))
			texUV = texUV.Add(mgl32.Vec2{v.TexUV[0], v.TexUV[1]}.Mul(bary[i]))
		}
	})

	u := f.Uniforms
	origin, dir := u.Camera().Ray(uv[0], uv[1])
	rv, rw := u.RandomSlot(px, py)
	sample := clamp01(core.Shade(origin, dir, u.Scene(), rv, rw))

	if !u.History {
		return sample
	}
	p := d.layout.Texel([2]float32{texUV[0], texUV[1]})
	hc := d.feedback.RGBAAt(p.X, p.Y)
	history := mgl32.Vec3{float32(hc.R) / 255, float32(hc.G) / 255, float32(hc.B) / 255}

	w := u.BlendWeight()
	return mgl32.Vec3{
		accum.Blend(history[0], sample[0], w),
		accum.Blend(history[1], sample[1], w),
		accum.Blend(history[2], sample[2], w),
	}
}

func (d *SoftDevice) CopyFrame(h FrameHandle, region accum.CopyRegion) error {
	if err := d.frames.Check(h); err != nil {
		return err
	}
	draw.Copy(d.feedback, region.DstOrigin, d.target, region.SrcRect(), draw.Src, nil)
	return nil
}

func (d *SoftDevice) Present(h FrameHandle) error {
	if err := d.frames.Retire(h); err != nil {
		return err
	}
	if d.Surface != nil {
		draw.NearestNeighbor.Scale(d.Surface, d.Surface.Bounds(), d.target, d.target.Bounds(), draw.Src, nil)
	}
	if d.OnPresent != nil {
		d.OnPresent(d.target)
	}
	return nil
}

func (d *SoftDevice) Release() {
	d.frames.Release()
}

func clamp01(c mgl32.Vec3) mgl32.Vec3 {
	for i := range c {
		c[i] = mgl32.Clamp(c[i], 0, 1)
	}
	return c
}

func rgba(c mgl32.Vec3, a float32) color.RGBA {
	to8 := func(v float32) uint8 {
		return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
	}
	return color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(a)}
}
