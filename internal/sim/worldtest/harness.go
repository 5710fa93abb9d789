// Package worldtest drives a world through its exported API only, the way a
// transport or replay would.
package worldtest

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/ids"
	"voxelyard.dev/internal/sim/tuning"
	world "voxelyard.dev/internal/sim/world"
)

var ConfigDir = filepath.Join("..", "..", "..", "configs")

// Harness keeps the last snapshot of a world it steps one tick at a time.
type Harness struct {
	T   *testing.T
	Cat *catalogs.BlockCatalog
	W   *world.World

	last world.Snapshot
}

func NewHarness(t *testing.T, opts ...world.Option) *Harness {
	t.Helper()
	cat, err := catalogs.Load(ConfigDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(filepath.Join(ConfigDir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	base := []world.Option{
		world.WithIDs(ids.NewSequential("blk")),
		world.WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	w, err := world.New(world.ConfigFromTuning("test", tune), cat, append(base, opts...)...)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	h := &Harness{T: t, Cat: cat, W: w}
	h.last = w.Snapshot()
	return h
}

func (h *Harness) Last() world.Snapshot { return h.last }

func (h *Harness) Step(in world.Input) world.Snapshot {
	h.T.Helper()
	h.last = h.W.Tick(1/float64(h.W.TickRateHz()), in)
	return h.last
}

// Aim points the player from eye at target, without moving through ticks.
func (h *Harness) Aim(eye, target mgl64.Vec3) world.Snapshot {
	h.T.Helper()
	d := target.Sub(eye)
	if d.Len() == 0 {
		h.T.Fatalf("aim: eye equals target")
	}
	d = d.Normalize()
	h.W.SetView(eye, math.Atan2(-d.X(), -d.Z()), math.Asin(d.Y()))
	h.last = h.W.Snapshot()
	return h.last
}

// Click aims and presses interact for one tick. Aiming is exact because the
// input carries no movement or look delta.
func (h *Harness) Click(eye, target mgl64.Vec3) world.Snapshot {
	h.T.Helper()
	h.Aim(eye, target)
	return h.Step(world.Input{InteractPressed: true})
}

// ShelfFace is a point on the +X face of the front copy of catalog entry i.
func (h *Harness) ShelfFace(typeID string) (eye, target mgl64.Vec3) {
	h.T.Helper()
	i := h.Cat.Order(typeID)
	if i < 0 {
		h.T.Fatalf("unknown block type %q", typeID)
	}
	sh := h.W.Config().Shelf
	row, col := i/sh.Columns, i%sh.Columns
	front := sh.Origin.X + (sh.Copies-1)*sh.CopyStep.X
	y := float64(sh.Origin.Y + row*sh.RowStep.Y)
	z := float64(sh.Origin.Z + col*sh.ColStep.Z)
	target = mgl64.Vec3{float64(front) + 0.5, y + 0.5, z}
	eye = mgl64.Vec3{target.X() + 2.5, y + 1, z}
	return eye, target
}

func (h *Harness) PickFromShelf(typeID string) world.Snapshot {
	h.T.Helper()
	eye, target := h.ShelfFace(typeID)
	s := h.Click(eye, target)
	if s.Result == nil || s.Result.Outcome != world.OutcomePickedResource {
		h.T.Fatalf("pick %s from shelf: %+v", typeID, s.Result)
	}
	return s
}

// PlaceOnFloor places the held block in the floor cell (x, 0, z) by aiming
// down at it from the room centre.
func (h *Harness) PlaceOnFloor(x, z int) world.Snapshot {
	h.T.Helper()
	s := h.Click(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{float64(x) + 0.2, 0, float64(z) + 0.1})
	if s.Result == nil || s.Result.Outcome != world.OutcomePlaced {
		h.T.Fatalf("place at (%d,0,%d): %+v", x, z, s.Result)
	}
	return s
}
