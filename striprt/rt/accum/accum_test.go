package accum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlendWeightLaw(t *testing.T) {
	for n := uint32(1); n <= 5000; n++ {
		want := 1 / float64(n+1)
		w := BlendWeight(n)
		if math.Abs(float64(w)-want) > 1e-7 {
			t.Fatalf("n=%d: weight %v, want %v", n, w, want)
		}
		q := DequantizeWeight(QuantizeWeight(w))
		if math.Abs(float64(q)-want) > 1.0/255 {
			t.Fatalf("n=%d: quantized weight %v too far from %v", n, q, want)
		}
	}
}

func TestFrameZeroIsFullOverride(t *testing.T) {
	var a Accumulator
	assert.Equal(t, uint32(0), a.Frame())
	assert.False(t, a.HistoryEnabled())

	// The closed form and the override sentinel agree at n = 0.
	assert.Equal(t, float32(1), a.Weight())
	assert.Equal(t, QuantizedOverride, a.QuantizedWeight())
	assert.Equal(t, float32(7), Blend(123, 7, DequantizeWeight(QuantizedOverride)))
}

func TestAccumulatorLifecycle(t *testing.T) {
	var a Accumulator
	a.Advance()
	a.Advance()
	assert.Equal(t, uint32(2), a.Frame())
	assert.True(t, a.HistoryEnabled())
	assert.InDelta(t, 1.0/3.0, a.Weight(), 1e-7)
	assert.Equal(t, uint8(85), a.QuantizedWeight())

	a.Reset()
	assert.Equal(t, uint32(0), a.Frame())
	assert.Equal(t, QuantizedOverride, a.QuantizedWeight())
}

func TestAccumulatorWraps(t *testing.T) {
	a := Accumulator{frame: math.MaxUint32}
	assert.False(t, math.IsInf(float64(a.Weight()), 0), "n+1 must not overflow")
	assert.Greater(t, a.Weight(), float32(0))

	a.Advance()
	assert.Equal(t, uint32(0), a.Frame())
	assert.Equal(t, QuantizedOverride, a.QuantizedWeight())
}

func TestQuantizeWeightClamps(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{2, 255},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuantizeWeight(tt.in), "QuantizeWeight(%v)", tt.in)
	}
}

func TestBlendIsRunningMean(t *testing.T) {
	samples := []float32{0.9, 0.1, 0.4, 0.8, 0.3, 0.0, 1.0, 0.55}

	var a Accumulator
	var history, sum float32
	for i, s := range samples {
		history = Blend(history, s, a.Weight())
		a.Advance()
		sum += s
		assert.InDelta(t, sum/float32(i+1), history, 1e-5, "after %d samples", i+1)
	}
}

func TestQuantizedWeightFreezes(t *testing.T) {
	assert.Equal(t, uint8(1), QuantizeWeight(BlendWeight(FreezeFrame-1)))
	assert.Equal(t, uint8(0), QuantizeWeight(BlendWeight(FreezeFrame)))
	assert.Equal(t, uint8(0), QuantizeWeight(BlendWeight(FreezeFrame+1000)))
}
