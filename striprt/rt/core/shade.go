package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	HitEpsilon = 0.001
	// LightSampleProbability is the chance a diffuse hit samples the
	// emitters directly instead of scattering one bounce.
	LightSampleProbability = 0.5
)

var (
	skyHorizon = mgl32.Vec3{1, 1, 1}
	skyZenith  = mgl32.Vec3{0.5, 0.7, 1.0}
)

// Sky is the background radiance for rays that escape the scene.
func Sky(dir mgl32.Vec3) mgl32.Vec3 {
	d := dir.Normalize()
	a := 0.5 * (d.Y() + 1)
	return skyHorizon.Mul(1 - a).Add(skyZenith.Mul(a))
}

// Hit returns the index and distance of the nearest sphere hit in (tMin, tMax).
func Hit(origin, dir mgl32.Vec3, scene SceneParams, tMin, tMax float32) (int, float32, bool) {
	best := -1
	closest := tMax
	for i, sp := range scene.Spheres {
		if t, ok := hitSphere(origin, dir, sp, tMin, closest); ok {
			best = i
			closest = t
		}
	}
	return best, closest, best >= 0
}

func hitSphere(origin, dir mgl32.Vec3, sphere mgl32.Vec4, tMin, tMax float32) (float32, bool) {
	oc := origin.Sub(sphere.Vec3())
	a := dir.Dot(dir)
	halfB := oc.Dot(dir)
	c := oc.Dot(oc) - sphere.W()*sphere.W()
	disc := halfB*halfB - a*c
	if disc < 0 {
		return 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	root := (-halfB - sq) / a
	if root <= tMin || root >= tMax {
		root = (-halfB + sq) / a
		if root <= tMin || root >= tMax {
			return 0, false
		}
	}
	return root, true
}

// Shade evaluates one stochastic sample of the shading function along a
// primary ray. v and w are the random slot assigned to the pixel: v lies in
// the unit ball, w in [0,1].
func Shade(origin, dir mgl32.Vec3, scene SceneParams, v mgl32.Vec3, w float32) mgl32.Vec3 {
	i, t, ok := Hit(origin, dir, scene, HitEpsilon, math.MaxFloat32)
	if !ok {
		return Sky(dir)
	}
	if isEmissive(scene.Emission[i]) {
		return scene.Emission[i]
	}

	center := scene.Spheres[i].Vec3()
	p := origin.Add(dir.Mul(t))
	n := p.Sub(center).Mul(1 / scene.Spheres[i].W())

	var incoming mgl32.Vec3
	if w < LightSampleProbability {
		incoming = sampleEmitters(p, n, scene, v).Mul(1 / LightSampleProbability)
	} else {
		incoming = scatter(p, n, scene, v).Mul(1 / (1 - LightSampleProbability))
	}
	return mulVec(scene.Colors[i], incoming)
}

// sampleEmitters casts one shadow ray towards a jittered point on every emitter.
func sampleEmitters(p, n mgl32.Vec3, scene SceneParams, v mgl32.Vec3) mgl32.Vec3 {
	var sum mgl32.Vec3
	for j, sp := range scene.Spheres {
		if !isEmissive(scene.Emission[j]) {
			continue
		}
		target := sp.Vec3().Add(v.Mul(sp.W()))
		l := target.Sub(p)
		dist := l.Len()
		if dist <= HitEpsilon {
			continue
		}
		ldir := l.Mul(1 / dist)
		cos := n.Dot(ldir)
		if cos <= 0 {
			continue
		}
		hit, _, ok := Hit(p, ldir, scene, HitEpsilon, dist+HitEpsilon)
		if !ok || hit != j {
			continue
		}
		falloff := sp.W() * sp.W() / (dist * dist)
		sum = sum.Add(scene.Emission[j].Mul(cos * falloff))
	}
	return sum
}

// scatter follows a single diffuse bounce and stops at whatever it reaches.
func scatter(p, n mgl32.Vec3, scene SceneParams, v mgl32.Vec3) mgl32.Vec3 {
	d := n.Add(v)
	if d.Len() < 1e-6 {
		d = n
	}
	d = d.Normalize()
	j, _, ok := Hit(p, d, scene, HitEpsilon, math.MaxFloat32)
	if !ok {
		return Sky(d)
	}
	if isEmissive(scene.Emission[j]) {
		return scene.Emission[j]
	}
	return mulVec(scene.Colors[j], Sky(d))
}

func isEmissive(e mgl32.Vec3) bool {
	return e[0] > 0 || e[1] > 0 || e[2] > 0
}

func mulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
