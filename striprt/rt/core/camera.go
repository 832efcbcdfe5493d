package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a pinhole camera with unit focal distance, expressed as the
// viewport basis the shaders consume.
//
// lookFrom, lookAt and vup must not be collinear; otherwise the cross
// products collapse and the basis contains zero or NaN components.
type Camera struct {
	Origin          mgl32.Vec3
	LowerLeftCorner mgl32.Vec3 // relative to Origin, includes -W
	Horizontal      mgl32.Vec3
	Vertical        mgl32.Vec3
	W               mgl32.Vec3 // normalize(lookFrom - lookAt)
}

func NewCamera(lookFrom, lookAt, vup mgl32.Vec3, vfov, aspectRatio float32) Camera {
	theta := mgl32.DegToRad(vfov)
	h := float32(math.Tan(float64(theta) / 2))
	viewportHeight := 2 * h
	viewportWidth := aspectRatio * viewportHeight

	w := lookFrom.Sub(lookAt).Normalize()
	u := vup.Cross(w).Normalize()
	v := w.Cross(u)

	horizontal := u.Mul(viewportWidth)
	vertical := v.Mul(viewportHeight)

	return Camera{
		Origin:          lookFrom,
		Horizontal:      horizontal,
		Vertical:        vertical,
		LowerLeftCorner: horizontal.Mul(-0.5).Sub(vertical.Mul(0.5)).Sub(w),
		W:               w,
	}
}

// RayDirection returns the unnormalized direction through normalized screen
// coordinates s (left to right) and t (bottom to top).
func (c Camera) RayDirection(s, t float32) mgl32.Vec3 {
	return c.LowerLeftCorner.Add(c.Horizontal.Mul(s)).Add(c.Vertical.Mul(t))
}

func (c Camera) Ray(s, t float32) (origin, dir mgl32.Vec3) {
	return c.Origin, c.RayDirection(s, t)
}

// ViewDirection is the direction the camera looks along.
func (c Camera) ViewDirection() mgl32.Vec3 {
	return c.W.Mul(-1)
}
