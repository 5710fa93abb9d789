package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// tieEps decides when two slab distances are the same; a ray that enters
// through an edge or corner cannot name a single face.
const tieEps = 1e-9

type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// NewRay normalizes dir. It reports false for a zero direction.
func NewRay(origin, dir mgl64.Vec3) (Ray, bool) {
	l := dir.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Ray{}, false
	}
	return Ray{Origin: origin, Dir: dir.Mul(1 / l)}, true
}

func (r Ray) At(t float64) mgl64.Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

// Hit is a single ray/box intersection. Face is the surface normal as a unit
// grid step and is only meaningful when HasNormal is set.
type Hit struct {
	Distance  float64
	Point     mgl64.Vec3
	Normal    mgl64.Vec3
	Face      Cell
	HasNormal bool
}

type slab struct {
	near, far         float64
	nearAxis, farAxis int
	nearTie, farTie   bool
}

func (r Ray) slabs(b AABB) (slab, bool) {
	s := slab{near: math.Inf(-1), far: math.Inf(1), nearAxis: -1, farAxis: -1}
	for i := 0; i < 3; i++ {
		o, d := r.Origin[i], r.Dir[i]
		if d == 0 {
			if o < b.Min[i] || o > b.Max[i] {
				return s, false
			}
			continue
		}
		t1 := (b.Min[i] - o) / d
		t2 := (b.Max[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		switch {
		case math.Abs(t1-s.near) <= tieEps:
			s.nearTie = true
		case t1 > s.near:
			s.near, s.nearAxis, s.nearTie = t1, i, false
		}
		switch {
		case math.Abs(t2-s.far) <= tieEps:
			s.farTie = true
		case t2 < s.far:
			s.far, s.farAxis, s.farTie = t2, i, false
		}
	}
	return s, s.near <= s.far
}

func (r Ray) faceHit(t float64, axis int, tie bool, sign float64) Hit {
	h := Hit{Distance: t, Point: r.At(t)}
	if axis < 0 || tie {
		return h
	}
	h.Normal[axis] = sign
	face := [3]int{}
	face[axis] = int(sign)
	h.Face = Cell{X: face[0], Y: face[1], Z: face[2]}
	h.HasNormal = true
	return h
}

// EnterBox intersects the ray with the outside of b. Rays starting inside b
// do not hit it. The normal points out of the entered face.
func (r Ray) EnterBox(b AABB) (Hit, bool) {
	s, ok := r.slabs(b)
	if !ok || s.near < 0 || s.nearAxis < 0 {
		return Hit{}, false
	}
	sign := -1.0
	if r.Dir[s.nearAxis] < 0 {
		sign = 1.0
	}
	return r.faceHit(s.near, s.nearAxis, s.nearTie, sign), true
}

// ExitBox intersects a ray that starts inside b with the face it leaves
// through. The normal points back into b, as seen from an observer inside a
// room.
func (r Ray) ExitBox(b AABB) (Hit, bool) {
	if !b.Contains(r.Origin) {
		return Hit{}, false
	}
	s, ok := r.slabs(b)
	if !ok || s.far <= 0 || s.farAxis < 0 {
		return Hit{}, false
	}
	sign := -1.0
	if r.Dir[s.farAxis] < 0 {
		sign = 1.0
	}
	return r.faceHit(s.far, s.farAxis, s.farTie, sign), true
}
