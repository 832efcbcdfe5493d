package gpu

import (
	"errors"

	"github.com/gekko3d/stripray/striprt/rt/accum"
	"github.com/gekko3d/stripray/striprt/rt/mesh"
)

var (
	// ErrFrameNotReady means the device could not start a frame this tick
	// (for example the swapchain had no image). Callers skip the frame
	// without advancing the accumulator.
	ErrFrameNotReady = errors.New("gpu: frame not ready")
	// ErrStaleFrame is returned when a handle does not belong to the frame
	// currently in flight.
	ErrStaleFrame = errors.New("gpu: stale frame handle")
	ErrReleased   = errors.New("gpu: device released")
)

// Frame is everything a device needs to draw one image.
type Frame struct {
	Grid       *mesh.Grid
	Uniforms   *Uniforms
	ClearColor [4]float32
}

// FrameHandle identifies a submitted frame until it is presented.
type FrameHandle struct {
	Seq uint64
}

// Device is the rendering backend driven by the render loop. Per frame the
// loop calls Submit, then CopyFrame (progressive mode only), then Present.
type Device interface {
	// Submit draws the grid into the offscreen render target.
	Submit(f *Frame) (FrameHandle, error)
	// CopyFrame copies the render target into the feedback texture.
	CopyFrame(h FrameHandle, region accum.CopyRegion) error
	// Present shows the render target.
	Present(h FrameHandle) error
	// FeedbackOrigin is the corner of the feedback texture the device's
	// texture coordinates start from.
	FeedbackOrigin() accum.Origin
	Release()
}
