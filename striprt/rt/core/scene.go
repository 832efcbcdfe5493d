package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxSpheres matches the fixed sphere array length in the shader.
const MaxSpheres = 8

var ErrTooManySpheres = errors.New("core: too many spheres")

type Sphere struct {
	Center   mgl32.Vec3
	Radius   float32
	Color    mgl32.Vec3
	Emission mgl32.Vec3
}

func (s Sphere) Emissive() bool {
	return s.Emission[0] > 0 || s.Emission[1] > 0 || s.Emission[2] > 0
}

// Packed returns the sphere as vec4(center, radius).
func (s Sphere) Packed() mgl32.Vec4 {
	return s.Center.Vec4(s.Radius)
}

// Scene is an ordered, immutable list of spheres. Index 0 is the ground.
type Scene struct {
	Spheres []Sphere
}

// SceneParams is the flat parameter form consumed by the shading stage.
// All three slices have the same length.
type SceneParams struct {
	Spheres  []mgl32.Vec4
	Colors   []mgl32.Vec3
	Emission []mgl32.Vec3
}

func (p SceneParams) Len() int {
	return len(p.Spheres)
}

func NewScene(spheres ...Sphere) (*Scene, error) {
	if len(spheres) > MaxSpheres {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySpheres, len(spheres), MaxSpheres)
	}
	for i, s := range spheres {
		if s.Radius <= 0 {
			return nil, fmt.Errorf("core: sphere %d has non-positive radius %g", i, s.Radius)
		}
	}
	return &Scene{Spheres: append([]Sphere(nil), spheres...)}, nil
}

// DefaultScene is a large ground sphere, two diffuse spheres and a small
// light hovering above them.
func DefaultScene() *Scene {
	s, err := NewScene(
		Sphere{Center: mgl32.Vec3{0, -100.5, -1}, Radius: 100, Color: mgl32.Vec3{0.8, 0.8, 0.0}},
		Sphere{Center: mgl32.Vec3{0.5, 0, -1}, Radius: 0.5, Color: mgl32.Vec3{0.7, 0.3, 0.3}},
		Sphere{Center: mgl32.Vec3{-0.5, 0, -1}, Radius: 0.5, Color: mgl32.Vec3{0.3, 0.3, 0.8}},
		Sphere{Center: mgl32.Vec3{0, 1.25, -1}, Radius: 0.25, Color: mgl32.Vec3{1, 1, 1}, Emission: mgl32.Vec3{4, 4, 4}},
	)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Scene) Params() SceneParams {
	p := SceneParams{
		Spheres:  make([]mgl32.Vec4, len(s.Spheres)),
		Colors:   make([]mgl32.Vec3, len(s.Spheres)),
		Emission: make([]mgl32.Vec3, len(s.Spheres)),
	}
	for i, sp := range s.Spheres {
		p.Spheres[i] = sp.Packed()
		p.Colors[i] = sp.Color
		p.Emission[i] = sp.Emission
	}
	return p
}
