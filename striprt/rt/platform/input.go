package platform

import (
	"github.com/gekko3d/stripray"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// keyToGlfw maps each input bit to the physical keys that hold it.
var keyToGlfw = map[stripray.Keys][]glfw.Key{
	stripray.KeyLeft:  {glfw.KeyLeft, glfw.KeyA},
	stripray.KeyRight: {glfw.KeyRight, glfw.KeyD},
	stripray.KeyUp:    {glfw.KeyUp, glfw.KeyW},
	stripray.KeyDown:  {glfw.KeyDown, glfw.KeyS},
	stripray.KeyRise:  {glfw.KeyPageUp, glfw.KeyE},
	stripray.KeySink:  {glfw.KeyPageDown, glfw.KeyQ},
	stripray.KeyExit:  {glfw.KeyEscape},
}

// KeyState reports the last action of a key, as glfw.Window.GetKey does.
type KeyState func(key glfw.Key) glfw.Action

// PollKeys folds the state of every mapped key into a Keys mask.
func PollKeys(state KeyState) stripray.Keys {
	var keys stripray.Keys
	for bit, glfwKeys := range keyToGlfw {
		for _, k := range glfwKeys {
			if state(k) != glfw.Release {
				keys |= bit
				break
			}
		}
	}
	return keys
}

// GlfwInput is the interactive input source. Closing the window reads as
// the exit key.
type GlfwInput struct {
	window *glfw.Window
}

func NewInput(w *Window) *GlfwInput {
	return &GlfwInput{window: w.Glfw}
}

func (in *GlfwInput) Poll() stripray.Keys {
	glfw.PollEvents()
	keys := PollKeys(in.window.GetKey)
	if in.window.ShouldClose() {
		keys |= stripray.KeyExit
	}
	return keys
}

var _ stripray.InputSource = (*GlfwInput)(nil)
