package stripray

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestMotionDelta(t *testing.T) {
	const step = float32(1.0 / 60.0)
	tests := []struct {
		keys Keys
		want mgl32.Vec3
	}{
		{0, mgl32.Vec3{}},
		{KeyLeft, mgl32.Vec3{-step, 0, 0}},
		{KeyRight, mgl32.Vec3{step, 0, 0}},
		{KeyUp, mgl32.Vec3{0, 0, step}},
		{KeyDown, mgl32.Vec3{0, 0, -step}},
		{KeySink, mgl32.Vec3{0, -step, 0}},
		{KeyRise, mgl32.Vec3{0, step, 0}},
		{KeyLeft | KeyRight, mgl32.Vec3{}},
		{KeyRight | KeyRise, mgl32.Vec3{step, step, 0}},
		{KeyExit, mgl32.Vec3{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MotionDelta(tt.keys, step), "keys %b", tt.keys)
	}
}

func TestScriptedInput(t *testing.T) {
	in := &ScriptedInput{Script: []Keys{KeyUp, 0}, Tail: KeyDown}
	assert.Equal(t, KeyUp, in.Poll())
	assert.Equal(t, Keys(0), in.Poll())
	assert.Equal(t, KeyDown, in.Poll())
	assert.Equal(t, KeyDown, in.Poll())
	assert.Equal(t, 4, in.Polls())
}

func TestFrameLimit(t *testing.T) {
	in := &FrameLimit{Source: &ScriptedInput{Tail: KeyLeft}, Limit: 2}
	assert.False(t, in.Poll().Held(KeyExit))
	assert.False(t, in.Poll().Held(KeyExit))
	k := in.Poll()
	assert.True(t, k.Held(KeyExit))
	assert.True(t, k.Held(KeyLeft), "source keys pass through")

	unlimited := &FrameLimit{}
	for i := 0; i < 10; i++ {
		assert.Equal(t, Keys(0), unlimited.Poll())
	}
}
