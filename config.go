package stripray

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// RayStrategy selects how primary rays reach the fragment stage.
type RayStrategy int

const (
	// StrategyDeferred rebuilds rays in-shader from the camera basis and a
	// jittered per-vertex UV, and accumulates frames through the feedback texture.
	StrategyDeferred RayStrategy = iota
	// StrategyDirect stores a precomputed ray per vertex and renders one sample per frame.
	StrategyDirect
)

func (s RayStrategy) String() string {
	switch s {
	case StrategyDeferred:
		return "deferred"
	case StrategyDirect:
		return "direct"
	}
	return fmt.Sprintf("RayStrategy(%d)", int(s))
}

func ParseRayStrategy(v string) (RayStrategy, error) {
	switch strings.ToLower(v) {
	case "deferred", "progressive":
		return StrategyDeferred, nil
	case "direct", "single":
		return StrategyDirect, nil
	}
	return 0, fmt.Errorf("unknown ray strategy %q", v)
}

type Config struct {
	Width  int
	Height int

	// Mesh grid resolution; zero means one vertex per output pixel.
	GridWidth  int
	GridHeight int

	VFov   float32
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3

	MoveRate    float32
	RandomBatch int
	Seed        int64
	ClearColor  [4]float32
	Strategy    RayStrategy

	// StatsInterval is the number of frames between profiler dumps in debug mode.
	StatsInterval int
	Debug         bool
}

func DefaultConfig() Config {
	return Config{
		Width:         400,
		Height:        240,
		VFov:          90,
		Eye:           mgl32.Vec3{0, 0.6125, 0},
		Target:        mgl32.Vec3{0, 0, -1},
		Up:            mgl32.Vec3{0, 1, 0},
		MoveRate:      1.0 / 60.0,
		RandomBatch:   10,
		Seed:          1,
		ClearColor:    [4]float32{0, 0, 0, 1},
		Strategy:      StrategyDeferred,
		StatsInterval: 120,
	}
}

func (c Config) AspectRatio() float32 {
	return float32(c.Width) / float32(c.Height)
}

// Grid returns the effective mesh resolution.
func (c Config) Grid() (int, int) {
	w, h := c.GridWidth, c.GridHeight
	if w <= 0 {
		w = c.Width
	}
	if h <= 0 {
		h = c.Height
	}
	return w, h
}

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("output size must be positive, got %dx%d", c.Width, c.Height))
	}
	if w, h := c.Grid(); w < 2 || h < 2 {
		errs = append(errs, fmt.Errorf("mesh grid must be at least 2x2, got %dx%d", w, h))
	}
	if c.VFov <= 0 || c.VFov >= 180 {
		errs = append(errs, fmt.Errorf("vertical fov must be in (0, 180), got %g", c.VFov))
	}
	if c.RandomBatch < 1 || c.RandomBatch > MaxRandomBatch {
		errs = append(errs, fmt.Errorf("random batch must be in [1, %d], got %d", MaxRandomBatch, c.RandomBatch))
	}
	if c.MoveRate < 0 {
		errs = append(errs, fmt.Errorf("move rate must not be negative, got %g", c.MoveRate))
	}
	if view := c.Eye.Sub(c.Target); view.Len() == 0 {
		errs = append(errs, errors.New("eye and target must differ"))
	} else if c.Up.Cross(view).Len() == 0 {
		errs = append(errs, errors.New("up vector must not be parallel to the view direction"))
	}
	return errors.Join(errs...)
}

// MaxRandomBatch matches the random-vector array size in the shader.
const MaxRandomBatch = 16

// BindFlags registers command line flags that write into c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "width", c.Width, "output width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "output height in pixels")
	fs.IntVar(&c.GridWidth, "grid-w", c.GridWidth, "mesh vertices per row (0 = width)")
	fs.IntVar(&c.GridHeight, "grid-h", c.GridHeight, "mesh vertex rows (0 = height)")
	fs.Func("fov", fmt.Sprintf("vertical field of view in degrees (default %g)", c.VFov), func(v string) error {
		var f float32
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			return fmt.Errorf("invalid fov %q: %w", v, err)
		}
		c.VFov = f
		return nil
	})
	fs.IntVar(&c.RandomBatch, "batch", c.RandomBatch, "random vectors regenerated per frame")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.Func("strategy", "ray strategy: deferred or direct (default deferred)", func(v string) error {
		s, err := ParseRayStrategy(v)
		if err != nil {
			return err
		}
		c.Strategy = s
		return nil
	})
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging and profiler output")
}
