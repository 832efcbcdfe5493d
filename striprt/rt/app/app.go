package app

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/gekko3d/stripray"
	"github.com/gekko3d/stripray/striprt/rt/accum"
	"github.com/gekko3d/stripray/striprt/rt/core"
	"github.com/gekko3d/stripray/striprt/rt/gpu"
	"github.com/gekko3d/stripray/striprt/rt/mesh"

	"github.com/go-gl/mathgl/mgl32"
)

// RendererState is everything the loop mutates between frames.
type RendererState struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	Camera core.Camera
	// Dirty is set by input and cleared once the camera has been rebuilt.
	Dirty bool

	Accum    accum.Accumulator
	Grid     *mesh.Grid
	Random   *core.RandomBatch
	Uniforms gpu.Uniforms
	Layout   accum.FeedbackLayout

	CameraUpdates int
	Frames        int
	Skipped       int
}

type App struct {
	Config   stripray.Config
	State    *RendererState
	Scene    *core.Scene
	Device   gpu.Device
	Input    stripray.InputSource
	Logger   stripray.Logger
	Profiler *Profiler

	rng *rand.Rand
}

// NewApp builds the mesh and the initial camera. The device is owned by the
// app from here on and released when Run returns.
func NewApp(cfg stripray.Config, scene *core.Scene, dev gpu.Device, input stripray.InputSource, logger stripray.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid config: %w", err)
	}
	if dev == nil {
		return nil, errors.New("app: no device")
	}
	if input == nil {
		return nil, errors.New("app: no input source")
	}
	if scene == nil {
		scene = core.DefaultScene()
	}

	gw, gh := cfg.Grid()
	deferred := cfg.Strategy == stripray.StrategyDeferred
	grid, err := mesh.NewGrid(gw, gh, deferred)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	s := &RendererState{
		Eye:    cfg.Eye,
		Target: cfg.Target,
		Up:     cfg.Up,
		Grid:   grid,
		Random: core.NewRandomBatch(cfg.RandomBatch),
		Layout: accum.NewFeedbackLayout(cfg.Width, cfg.Height, dev.FeedbackOrigin()),
	}
	if deferred {
		grid.SetTexUV(s.Layout)
	}
	s.Uniforms.SetScene(scene.Params())

	a := &App{
		Config:   cfg,
		State:    s,
		Scene:    scene,
		Device:   dev,
		Input:    input,
		Logger:   stripray.LoggerOrNop(logger),
		Profiler: NewProfiler(),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
	a.updateCamera()

	a.Logger.Infof("renderer ready: %dx%d output, %dx%d grid (%d indices), %s rays, feedback %dx%d %v",
		cfg.Width, cfg.Height, gw, gh, grid.IndexCount(), cfg.Strategy,
		s.Layout.TexWidth, s.Layout.TexHeight, s.Layout.Origin)
	return a, nil
}

// updateCamera rebuilds the basis from the current eye and restarts
// accumulation.
func (a *App) updateCamera() {
	s := a.State
	s.Camera = core.NewCamera(s.Eye, s.Target, s.Up, a.Config.VFov, a.Config.AspectRatio())
	s.Uniforms.SetCamera(s.Camera)
	if !s.Grid.Deferred {
		s.Grid.SetRays(s.Camera)
	}
	s.Accum.Reset()
	s.Dirty = false
	s.CameraUpdates++
	a.Logger.Debugf("camera reset: eye=%v", s.Eye)
}

// refreshFrame writes the per-frame stochastic inputs and blend weight.
func (a *App) refreshFrame() {
	s := a.State
	if s.Grid.Deferred {
		s.Grid.Jitter(a.rng)
	}
	s.Random.Refresh(a.rng)
	s.Uniforms.SetRandom(s.Random)
	s.Uniforms.SetBlend(&s.Accum)
}

// Step runs one loop iteration. It returns false once the exit key is held.
func (a *App) Step() (bool, error) {
	s := a.State

	keys := a.Input.Poll()
	if keys.Held(stripray.KeyExit) {
		return false, nil
	}
	if keys&stripray.KeysDirectional != 0 {
		s.Eye = s.Eye.Add(stripray.MotionDelta(keys, a.Config.MoveRate))
		s.Dirty = true
	}

	a.Profiler.BeginScope("params")
	if s.Dirty {
		a.updateCamera()
	}
	a.refreshFrame()
	a.Profiler.EndScope("params")

	a.Profiler.BeginScope("submit")
	h, err := a.Device.Submit(&gpu.Frame{
		Grid:       s.Grid,
		Uniforms:   &s.Uniforms,
		ClearColor: a.Config.ClearColor,
	})
	a.Profiler.EndScope("submit")
	if errors.Is(err, gpu.ErrFrameNotReady) {
		s.Skipped++
		a.Profiler.Inc("skipped")
		a.Logger.Debugf("frame %d skipped: %v", s.Accum.Frame(), err)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("app: submit: %w", err)
	}

	if s.Grid.Deferred {
		a.Profiler.BeginScope("copy")
		err = a.Device.CopyFrame(h, s.Layout.CopyRegion())
		a.Profiler.EndScope("copy")
		if err != nil {
			return false, fmt.Errorf("app: copy frame: %w", err)
		}
	}

	a.Profiler.BeginScope("present")
	err = a.Device.Present(h)
	a.Profiler.EndScope("present")
	if err != nil {
		return false, fmt.Errorf("app: present: %w", err)
	}

	s.Accum.Advance()
	s.Frames++
	a.Profiler.SetCount("frame", int(s.Accum.Frame()))
	a.Profiler.SetCount("camera_updates", s.CameraUpdates)

	if a.Config.StatsInterval > 0 && s.Frames%a.Config.StatsInterval == 0 && a.Logger.DebugEnabled() {
		a.Logger.Debugf("stats: %s", a.Profiler.Stats())
	}
	return true, nil
}

// Run steps until the exit key or an error. The device is released on every
// return path.
func (a *App) Run() error {
	defer a.Device.Release()

	for {
		more, err := a.Step()
		if err != nil {
			a.Logger.Errorf("render loop stopped after %d frames: %v", a.State.Frames, err)
			return err
		}
		if !more {
			a.Logger.Infof("exit after %d frames (%d skipped, %d camera updates)",
				a.State.Frames, a.State.Skipped, a.State.CameraUpdates)
			return nil
		}
	}
}
