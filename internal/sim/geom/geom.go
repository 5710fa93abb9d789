// Package geom holds the grid and ray primitives shared by the resolver and
// locomotion: unit cells, axis-aligned boxes and slab-test ray casts.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis.
var Up = mgl64.Vec3{0, 1, 0}

// Cell is an integer grid coordinate. The unit cube it names spans
// [X-0.5,X+0.5] x [Y,Y+1] x [Z-0.5,Z+0.5], so a cell with Y=0 rests on the floor.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (c Cell) Add(o Cell) Cell { return Cell{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z} }

func (c Cell) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X), float64(c.Y) + 0.5, float64(c.Z)}
}

// unitBox is the cell at the origin: centred on X and Z, resting on Y=0.
var unitBox = AABB{Min: mgl64.Vec3{-0.5, 0, -0.5}, Max: mgl64.Vec3{0.5, 1, 0.5}}

func (c Cell) Box() AABB {
	return unitBox.Translate(mgl64.Vec3{float64(c.X), float64(c.Y), float64(c.Z)})
}

func (c Cell) Array() [3]int { return [3]int{c.X, c.Y, c.Z} }

// CellAt snaps a world point to the cell containing it.
func CellAt(p mgl64.Vec3) Cell {
	return Cell{
		X: int(math.Round(p.X())),
		Y: int(math.Floor(p.Y())),
		Z: int(math.Round(p.Z())),
	}
}

type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Translate returns the box moved by d.
func (b AABB) Translate(d mgl64.Vec3) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// BoxAround returns a cube of the given edge length centred on p.
func BoxAround(p mgl64.Vec3, edge float64) AABB {
	h := edge / 2
	return AABB{
		Min: mgl64.Vec3{p[0] - h, p[1] - h, p[2] - h},
		Max: mgl64.Vec3{p[0] + h, p[1] + h, p[2] + h},
	}
}
