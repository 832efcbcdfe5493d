package accum

import (
	"fmt"
	"image"
)

// BytesPerPixel of the RGBA8 render target and feedback texture.
const BytesPerPixel = 4

// Origin says which corner of the padded texture holds the image.
type Origin int

const (
	// OriginTopLeft matches APIs whose texture rows run top to bottom.
	OriginTopLeft Origin = iota
	// OriginBottomLeft matches bottom-up texture memory, where the image has
	// to be pushed down into the last Height rows.
	OriginBottomLeft
)

func (o Origin) String() string {
	switch o {
	case OriginTopLeft:
		return "top-left"
	case OriginBottomLeft:
		return "bottom-left"
	}
	return fmt.Sprintf("Origin(%d)", int(o))
}

// FeedbackLayout describes where a Width x Height frame sits inside its
// power-of-two feedback texture.
type FeedbackLayout struct {
	Width, Height       int
	TexWidth, TexHeight int
	Origin              Origin
}

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func NewFeedbackLayout(width, height int, origin Origin) FeedbackLayout {
	return FeedbackLayout{
		Width:     width,
		Height:    height,
		TexWidth:  NextPow2(width),
		TexHeight: NextPow2(height),
		Origin:    origin,
	}
}

// Offset is the texel position of the frame's top-left pixel.
func (l FeedbackLayout) Offset() image.Point {
	if l.Origin == OriginBottomLeft {
		return image.Pt(0, l.TexHeight-l.Height)
	}
	return image.Point{}
}

// UV maps normalized screen coordinates (t grows upwards) to texture UV.
// Because both the fragment position and the UV are linear in (s, t),
// floor(UV * TexSize) is exactly the texel the frame's pixel was copied to.
func (l FeedbackLayout) UV(s, t float32) [2]float32 {
	off := l.Offset()
	px := s * float32(l.Width)
	py := (1 - t) * float32(l.Height)
	return [2]float32{
		(px + float32(off.X)) / float32(l.TexWidth),
		(py + float32(off.Y)) / float32(l.TexHeight),
	}
}

// Texel returns the integer texel for a texture UV, clamped to the texture.
func (l FeedbackLayout) Texel(uv [2]float32) image.Point {
	x := int(uv[0] * float32(l.TexWidth))
	y := int(uv[1] * float32(l.TexHeight))
	return image.Pt(clamp(x, 0, l.TexWidth-1), clamp(y, 0, l.TexHeight-1))
}

// CopyRegion describes the render target -> feedback texture copy.
type CopyRegion struct {
	SrcOrigin      image.Point
	DstOrigin      image.Point
	Size           image.Point
	SrcBytesPerRow int
	DstBytesPerRow int
	// DstByteOffset is the byte offset of DstOrigin in a linear texture.
	DstByteOffset int
}

func (l FeedbackLayout) CopyRegion() CopyRegion {
	off := l.Offset()
	return CopyRegion{
		DstOrigin:      off,
		Size:           image.Pt(l.Width, l.Height),
		SrcBytesPerRow: l.Width * BytesPerPixel,
		DstBytesPerRow: l.TexWidth * BytesPerPixel,
		DstByteOffset:  (off.Y*l.TexWidth + off.X) * BytesPerPixel,
	}
}

// SrcRect and DstRect are the copy's rectangles in texel space.
func (r CopyRegion) SrcRect() image.Rectangle {
	return image.Rectangle{Min: r.SrcOrigin, Max: r.SrcOrigin.Add(r.Size)}
}

func (r CopyRegion) DstRect() image.Rectangle {
	return image.Rectangle{Min: r.DstOrigin, Max: r.DstOrigin.Add(r.Size)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
