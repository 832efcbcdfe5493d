package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/gekko3d/stripray"
	"github.com/gekko3d/stripray/striprt/rt/app"
	"github.com/gekko3d/stripray/striprt/rt/core"
	"github.com/gekko3d/stripray/striprt/rt/gpu"
	"github.com/gekko3d/stripray/striprt/rt/gpu/wgpudev"
	"github.com/gekko3d/stripray/striprt/rt/platform"
	"github.com/gekko3d/stripray/striprt/rt/shaders"

	"github.com/google/uuid"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := stripray.DefaultConfig()
	fs := flag.NewFlagSet("striprt", flag.ExitOnError)
	cfg.BindFlags(fs)
	device := fs.String("device", "wgpu", "rendering device: wgpu or soft")
	frames := fs.Int("frames", 0, "exit after this many frames (0 = run until exit key)")
	checkShaders := fs.Bool("check-shaders", false, "compile the embedded shaders to SPIR-V and exit")
	fs.Parse(os.Args[1:])

	session := uuid.New()
	logger := stripray.NewDefaultLogger(session.String()[:8], cfg.Debug)

	if *checkShaders {
		if err := shaders.Validate(); err != nil {
			logger.Errorf("%v", err)
			return 1
		}
		logger.Infof("shaders ok")
		return 0
	}

	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid configuration: %v", err)
		return 1
	}

	var (
		dev   gpu.Device
		input stripray.InputSource
	)
	switch *device {
	case "soft":
		if *frames <= 0 {
			logger.Errorf("the soft device has no window; pass -frames N")
			return 1
		}
		dev = gpu.NewSoftDevice(cfg.Width, cfg.Height)
		input = &stripray.ScriptedInput{}
	case "wgpu":
		window, err := platform.NewWindow(cfg.Width, cfg.Height, "stripray")
		if err != nil {
			logger.Errorf("%v", err)
			return 1
		}
		defer window.Close()

		fbw, fbh := window.FramebufferSize()
		wdev, err := wgpudev.New(window.SurfaceDescriptor(), fbw, fbh, wgpudev.Options{
			Width:  cfg.Width,
			Height: cfg.Height,
			Label:  "stripray " + session.String(),
			Logger: logger.WithPrefix(session.String()[:8] + " wgpu"),
		})
		if err != nil {
			logger.Errorf("%v", err)
			return 1
		}
		window.OnResize(wdev.Resize)
		dev = wdev
		input = platform.NewInput(window)
	default:
		logger.Errorf("unknown device %q", *device)
		return 1
	}

	if *frames > 0 {
		input = &stripray.FrameLimit{Source: input, Limit: *frames}
	}

	a, err := app.NewApp(cfg, core.DefaultScene(), dev, input, logger)
	if err != nil {
		dev.Release()
		logger.Errorf("%v", err)
		return 1
	}
	logger.Infof("session %s", session)

	// Run logs its own failure.
	if err := a.Run(); err != nil {
		return 1
	}
	return 0
}
