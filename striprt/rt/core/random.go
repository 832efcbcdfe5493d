package core

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// RandomInUnitBall draws points in the [-1,1) cube until one lands strictly
// inside the unit ball. There is no iteration cap: each trial succeeds with
// probability pi/6 (about 0.52), so the expected number of trials is below two.
func RandomInUnitBall(rng *rand.Rand) mgl32.Vec3 {
	for {
		p := mgl32.Vec3{
			2*rng.Float32() - 1,
			2*rng.Float32() - 1,
			2*rng.Float32() - 1,
		}
		if p.Dot(p) < 1 {
			return p
		}
	}
}

// RandomBatch is the per-frame set of stochastic vectors the shading stage
// uses for soft shadows and diffuse scatter. Weights[i] belongs to Vectors[i].
type RandomBatch struct {
	Vectors []mgl32.Vec3
	Weights []float32
}

func NewRandomBatch(size int) *RandomBatch {
	return &RandomBatch{
		Vectors: make([]mgl32.Vec3, size),
		Weights: make([]float32, size),
	}
}

func (b *RandomBatch) Len() int {
	return len(b.Vectors)
}

// Refresh regenerates every slot in place.
func (b *RandomBatch) Refresh(rng *rand.Rand) {
	for i := range b.Vectors {
		b.Vectors[i] = RandomInUnitBall(rng)
		b.Weights[i] = rng.Float32()
	}
}

// Slot picks the batch entry for a pixel so neighbouring pixels decorrelate.
func (b *RandomBatch) Slot(px, py int) int {
	return RandomSlot(px, py, len(b.Vectors))
}

func RandomSlot(px, py, n int) int {
	if n <= 0 {
		return 0
	}
	k := (7*px + 13*py) % n
	if k < 0 {
		k += n
	}
	return k
}
