package accum

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPow2(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 240: 256, 256: 256, 257: 512, 400: 512}
	for in, want := range tests {
		assert.Equal(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
}

func TestCopyRegion(t *testing.T) {
	top := NewFeedbackLayout(400, 240, OriginTopLeft)
	assert.Equal(t, 512, top.TexWidth)
	assert.Equal(t, 256, top.TexHeight)

	r := top.CopyRegion()
	assert.Equal(t, image.Point{}, r.DstOrigin)
	assert.Equal(t, image.Pt(400, 240), r.Size)
	assert.Equal(t, 1600, r.SrcBytesPerRow)
	assert.Equal(t, 2048, r.DstBytesPerRow)
	assert.Equal(t, 0, r.DstByteOffset)

	bottom := NewFeedbackLayout(400, 240, OriginBottomLeft)
	r = bottom.CopyRegion()
	assert.Equal(t, image.Pt(0, 16), r.DstOrigin)
	assert.Equal(t, 16*2048, r.DstByteOffset)
	assert.Equal(t, image.Rect(0, 16, 400, 256), r.DstRect())
	assert.Equal(t, image.Rect(0, 0, 400, 240), r.SrcRect())
}

// Every pixel centre must sample the texel its own pixel was copied to, or
// the history would drift by a pixel per frame.
func TestUVHitsCopiedTexel(t *testing.T) {
	for _, origin := range []Origin{OriginTopLeft, OriginBottomLeft} {
		l := NewFeedbackLayout(40, 24, origin)
		dst := l.CopyRegion().DstOrigin
		for py := 0; py < l.Height; py++ {
			for px := 0; px < l.Width; px++ {
				s := (float32(px) + 0.5) / float32(l.Width)
				tt := 1 - (float32(py)+0.5)/float32(l.Height)
				got := l.Texel(l.UV(s, tt))
				want := image.Pt(px, py).Add(dst)
				if got != want {
					t.Fatalf("%v: pixel (%d,%d) samples %v, want %v", origin, px, py, got, want)
				}
			}
		}
	}
}

func TestTexelClamps(t *testing.T) {
	l := NewFeedbackLayout(4, 4, OriginTopLeft)
	assert.Equal(t, image.Pt(0, 0), l.Texel([2]float32{-1, -1}))
	assert.Equal(t, image.Pt(3, 3), l.Texel([2]float32{2, 2}))
}
