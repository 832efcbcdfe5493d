package accum

import (
	"math"
)

// QuantizedOverride is the 8-bit weight that makes the new sample replace
// the history entirely.
const QuantizedOverride uint8 = 255

// FreezeFrame is the first frame whose quantized weight is 0.
const FreezeFrame uint32 = 510

// Accumulator tracks how many frames have been folded into the feedback
// texture since the camera last moved.
//
// The 8-bit blend control rounds to 0 from frame FreezeFrame on, so an image
// held still that long stops taking new samples until the camera moves.
//
// The counter wraps at 2^32. A wrap lands on frame 0, which renders one
// frame with full override; the only visible effect is a single noisy frame.
type Accumulator struct {
	frame uint32
}

func (a *Accumulator) Frame() uint32 {
	return a.frame
}

// Reset restarts convergence. Called whenever the camera moves.
func (a *Accumulator) Reset() {
	a.frame = 0
}

// Advance is called once the current frame has been submitted.
func (a *Accumulator) Advance() {
	a.frame++
}

// Weight is the contribution of the frame about to be rendered.
func (a *Accumulator) Weight() float32 {
	return BlendWeight(a.frame)
}

func (a *Accumulator) QuantizedWeight() uint8 {
	return QuantizeWeight(a.Weight())
}

// HistoryEnabled reports whether the shading stage should read the feedback
// texture at all. Frame 0 has no valid history.
func (a *Accumulator) HistoryEnabled() bool {
	return a.frame > 0
}

// BlendWeight is the running-mean weight 1/(n+1) of sample n. At n = 0 it is
// exactly 1, so the same formula covers the "no history" frame.
func BlendWeight(n uint32) float32 {
	return float32(1 / (float64(n) + 1))
}

// QuantizeWeight converts a weight in [0,1] to the 8-bit blend control.
func QuantizeWeight(w float32) uint8 {
	q := math.Round(float64(w) * 255)
	if q < 0 || math.IsNaN(q) {
		return 0
	}
	if q > 255 {
		return 255
	}
	return uint8(q)
}

// DequantizeWeight is the weight the shading stage actually applies.
func DequantizeWeight(q uint8) float32 {
	return float32(q) / 255
}

// Blend folds sample into history: history*(1-w) + sample*w.
func Blend(history, sample, w float32) float32 {
	return history + (sample-history)*w
}
