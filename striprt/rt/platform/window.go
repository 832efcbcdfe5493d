package platform

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window is the GLFW window the wgpu surface is created on. GLFW must be
// driven from the main OS thread.
type Window struct {
	Glfw   *glfw.Window
	Width  int
	Height int
	Title  string
}

// NewWindow initializes GLFW and opens a non-resizable window without a
// client API. Zero sizes fall back to 400x240.
func NewWindow(width, height int, title string) (*Window, error) {
	if width <= 0 {
		width = 400
	}
	if height <= 0 {
		height = 240
	}
	if title == "" {
		title = "stripray"
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: create window: %w", err)
	}

	return &Window{
		Glfw:   win,
		Width:  width,
		Height: height,
		Title:  title,
	}, nil
}

// SurfaceDescriptor wraps the window into a wgpu surface descriptor.
func (w *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.Glfw)
}

func (w *Window) FramebufferSize() (int, int) {
	return w.Glfw.GetFramebufferSize()
}

func (w *Window) OnResize(fn func(width, height int)) {
	w.Glfw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		fn(width, height)
	})
}

func (w *Window) Close() {
	w.Glfw.Destroy()
	glfw.Terminate()
}
