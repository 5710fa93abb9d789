package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellBoxAndCenter(t *testing.T) {
	c := Cell{X: 2, Y: 0, Z: -3}
	assert.Equal(t, mgl64.Vec3{2, 0.5, -3}, c.Center())
	b := c.Box()
	assert.Equal(t, mgl64.Vec3{1.5, 0, -3.5}, b.Min)
	assert.Equal(t, mgl64.Vec3{2.5, 1, -2.5}, b.Max)
	assert.Equal(t, c, CellAt(c.Center()))
}

func TestCellAtRounding(t *testing.T) {
	assert.Equal(t, Cell{X: 1, Y: 0, Z: -2}, CellAt(mgl64.Vec3{0.6, 0.5, -1.6}))
	assert.Equal(t, Cell{X: 0, Y: 3, Z: 0}, CellAt(mgl64.Vec3{0.4, 3.99, 0.2}))
	assert.Equal(t, Cell{X: 0, Y: -1, Z: 0}, CellAt(mgl64.Vec3{0, -0.01, 0}))
}

func TestNewRayRejectsZero(t *testing.T) {
	_, ok := NewRay(mgl64.Vec3{}, mgl64.Vec3{})
	assert.False(t, ok)
	r, ok := NewRay(mgl64.Vec3{}, mgl64.Vec3{0, 0, -5})
	require.True(t, ok)
	assert.InDelta(t, 1.0, r.Dir.Len(), 1e-12)
}

func TestEnterBoxFrontFace(t *testing.T) {
	r, _ := NewRay(mgl64.Vec3{0, 0.5, 5}, mgl64.Vec3{0, 0, -1})
	h, ok := r.EnterBox(Cell{}.Box())
	require.True(t, ok)
	assert.InDelta(t, 4.5, h.Distance, 1e-12)
	require.True(t, h.HasNormal)
	assert.Equal(t, Cell{Z: 1}, h.Face)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, h.Normal)
}

func TestEnterBoxTopFace(t *testing.T) {
	r, _ := NewRay(mgl64.Vec3{0.1, 4, 0.1}, mgl64.Vec3{0, -1, 0})
	h, ok := r.EnterBox(Cell{}.Box())
	require.True(t, ok)
	assert.Equal(t, Cell{Y: 1}, h.Face)
	assert.InDelta(t, 3.0, h.Distance, 1e-12)
}

func TestEnterBoxMissesAndInside(t *testing.T) {
	r, _ := NewRay(mgl64.Vec3{3, 0.5, 5}, mgl64.Vec3{0, 0, -1})
	_, ok := r.EnterBox(Cell{}.Box())
	assert.False(t, ok, "parallel ray outside the slab")

	r, _ = NewRay(mgl64.Vec3{0, 0.5, 5}, mgl64.Vec3{0, 0, 1})
	_, ok = r.EnterBox(Cell{}.Box())
	assert.False(t, ok, "box behind the ray")

	r, _ = NewRay(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0, 0, 1})
	_, ok = r.EnterBox(Cell{}.Box())
	assert.False(t, ok, "ray starting inside")
}

func TestEnterBoxEdgeHasNoNormal(t *testing.T) {
	// Diagonal ray aimed exactly at the vertical edge x=0.5,z=0.5.
	r, _ := NewRay(mgl64.Vec3{1.5, 0.5, 1.5}, mgl64.Vec3{-1, 0, -1})
	h, ok := r.EnterBox(Cell{}.Box())
	require.True(t, ok)
	assert.False(t, h.HasNormal)
}

func TestExitBoxFromInside(t *testing.T) {
	room := AABB{Min: mgl64.Vec3{-19.5, 0, -19.5}, Max: mgl64.Vec3{19.5, 15, 19.5}}
	r, _ := NewRay(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, -1, 0})
	h, ok := r.ExitBox(room)
	require.True(t, ok)
	assert.InDelta(t, 2.0, h.Distance, 1e-12)
	assert.Equal(t, Cell{Y: 1}, h.Face, "floor normal points up into the room")

	r, _ = NewRay(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{1, 0, 0})
	h, ok = r.ExitBox(room)
	require.True(t, ok)
	assert.Equal(t, Cell{X: -1}, h.Face)
	assert.InDelta(t, 19.5, h.Point.X(), 1e-12)

	r, _ = NewRay(mgl64.Vec3{30, 2, 0}, mgl64.Vec3{-1, 0, 0})
	_, ok = r.ExitBox(room)
	assert.False(t, ok, "origin outside the room")
}

func TestBoxAroundAndTranslate(t *testing.T) {
	b := BoxAround(mgl64.Vec3{1, 1, 1}, 0.3)
	assert.True(t, b.Contains(mgl64.Vec3{1.1, 0.9, 1}))
	assert.False(t, b.Contains(mgl64.Vec3{1.2, 1, 1}))
	moved := b.Translate(mgl64.Vec3{1, 0, 0})
	assert.True(t, moved.Contains(mgl64.Vec3{2, 1, 1}))
}
