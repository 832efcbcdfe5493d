package core

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSceneParams(t *testing.T) {
	scene := DefaultScene()
	p := scene.Params()

	require.Equal(t, len(scene.Spheres), p.Len())
	assert.Len(t, p.Colors, p.Len())
	assert.Len(t, p.Emission, p.Len())

	// Ground sphere first.
	assert.Equal(t, mgl32.Vec4{0, -100.5, -1, 100}, p.Spheres[0])
	assert.False(t, scene.Spheres[0].Emissive())

	emitters := 0
	for _, s := range scene.Spheres {
		if s.Emissive() {
			emitters++
		}
	}
	assert.Equal(t, 1, emitters)
}

func TestNewSceneLimits(t *testing.T) {
	spheres := make([]Sphere, MaxSpheres+1)
	for i := range spheres {
		spheres[i] = Sphere{Radius: 1}
	}

	_, err := NewScene(spheres...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManySpheres))

	_, err = NewScene(spheres[:MaxSpheres]...)
	assert.NoError(t, err)

	_, err = NewScene(Sphere{Radius: 0})
	assert.Error(t, err)
}

func TestSceneCopiesInput(t *testing.T) {
	in := []Sphere{{Center: mgl32.Vec3{1, 2, 3}, Radius: 1}}
	scene, err := NewScene(in...)
	require.NoError(t, err)

	in[0].Radius = 5
	assert.Equal(t, float32(1), scene.Spheres[0].Radius)
}
