package stripray

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Keys is the bitmask of currently held control keys, read once per frame.
type Keys uint32

const (
	KeyLeft Keys = 1 << iota
	KeyRight
	KeyUp
	KeyDown
	KeyRise
	KeySink
	KeyExit
)

// KeysDirectional covers every key that moves the eye.
const KeysDirectional = KeyLeft | KeyRight | KeyUp | KeyDown | KeyRise | KeySink

func (k Keys) Held(key Keys) bool {
	return k&key != 0
}

// InputSource is polled once per loop iteration.
type InputSource interface {
	Poll() Keys
}

// MotionDelta converts held directional keys into a per-frame eye offset.
// Left/right move along x, up/down along z, rise/sink along y.
func MotionDelta(keys Keys, step float32) mgl32.Vec3 {
	var d mgl32.Vec3
	if keys.Held(KeyLeft) {
		d[0] -= step
	}
	if keys.Held(KeyRight) {
		d[0] += step
	}
	if keys.Held(KeyUp) {
		d[2] += step
	}
	if keys.Held(KeyDown) {
		d[2] -= step
	}
	if keys.Held(KeySink) {
		d[1] -= step
	}
	if keys.Held(KeyRise) {
		d[1] += step
	}
	return d
}

// ScriptedInput replays a fixed key sequence, one entry per Poll. Once the
// script is exhausted it returns Tail forever.
type ScriptedInput struct {
	Script []Keys
	Tail   Keys
	polls  int
}

func (s *ScriptedInput) Poll() Keys {
	i := s.polls
	s.polls++
	if i < len(s.Script) {
		return s.Script[i]
	}
	return s.Tail
}

func (s *ScriptedInput) Polls() int {
	return s.polls
}

// FrameLimit wraps an InputSource and forces KeyExit after Limit polls.
// A Limit of zero never forces an exit.
type FrameLimit struct {
	Source InputSource
	Limit  int
	polls  int
}

func (f *FrameLimit) Poll() Keys {
	var keys Keys
	if f.Source != nil {
		keys = f.Source.Poll()
	}
	f.polls++
	if f.Limit > 0 && f.polls > f.Limit {
		keys |= KeyExit
	}
	return keys
}
