package world

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/ids"
	"voxelyard.dev/internal/sim/interact"
	"voxelyard.dev/internal/sim/manifest"
	"voxelyard.dev/internal/sim/tuning"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type memLogs struct {
	ticks  []TickLogEntry
	audits []AuditEntry
}

func (m *memLogs) WriteTick(e TickLogEntry) error { m.ticks = append(m.ticks, e); return nil }
func (m *memLogs) WriteAudit(e AuditEntry) error  { m.audits = append(m.audits, e); return nil }

func newTestWorld(t *testing.T, opts ...Option) *World {
	t.Helper()
	base := []Option{WithIDs(ids.NewSequential("blk")), WithClock(func() time.Time { return fixedNow })}
	w, err := New(ConfigFromTuning("test", tuning.Defaults()), catalogs.Default(), append(base, opts...)...)
	require.NoError(t, err)
	return w
}

func aim(w *World, eye, target mgl64.Vec3) {
	d := target.Sub(eye).Normalize()
	w.SetView(eye, math.Atan2(-d.X(), -d.Z()), math.Asin(d.Y()))
}

// Shelf row 0 sits at y=1; type i of the first row is at z = -4 + 2i and its
// copies at x = -18, -17, -16. Aiming from x=-13 hits the last copy's +X face.
func aimAtShelf(w *World, z float64) {
	aim(w, mgl64.Vec3{-13, 2, z}, mgl64.Vec3{-15.5, 1.5, z})
}

func TestNewSeedsShelf(t *testing.T) {
	w := newTestWorld(t)
	snap := w.Snapshot()
	assert.Len(t, snap.Resources, 39)
	assert.Empty(t, snap.Placed)
	assert.Empty(t, snap.Held)
	for _, id := range catalogs.Default().IDs() {
		assert.Equal(t, 3, snap.Supply[id], id)
	}
	assert.Equal(t, [3]float64{0, 2, 5}, snap.Player.Position)
}

func TestNewRejectsEmptyCatalog(t *testing.T) {
	_, err := New(ConfigFromTuning("test", tuning.Defaults()), nil)
	assert.Error(t, err)
}

func TestConfigFromTuning(t *testing.T) {
	cfg := ConfigFromTuning("w", tuning.Defaults())
	assert.Equal(t, mgl64.Vec3{-19.5, 0, -19.5}, cfg.Room.Min)
	assert.Equal(t, mgl64.Vec3{19.5, 15, 19.5}, cfg.Room.Max)
	assert.Equal(t, geom.Cell{X: -19, Y: 0, Z: -19}, cfg.PlaceMin)
	assert.Equal(t, geom.Cell{X: 19, Y: 14, Z: 19}, cfg.PlaceMax)
	assert.Equal(t, 100.0, cfg.MaxRange)
}

func TestScenarioPickUpResourceAndPlaceAtWall(t *testing.T) {
	logs := &memLogs{}
	w := newTestWorld(t, WithAuditLogger(logs))

	aimAtShelf(w, -4)
	hv, ok := w.Hover()
	require.True(t, ok)
	require.Equal(t, interact.KindResource, hv.Kind)
	assert.Equal(t, "res-ai-2", hv.InstanceID)

	res := w.Interact()
	require.Equal(t, OutcomePickedResource, res.Outcome)
	assert.Equal(t, 2, w.supply.Remaining("ai"))
	held, ok := w.Held()
	require.True(t, ok)
	assert.Equal(t, "ai", held.ID)

	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{19.5, 0.5, 0})
	hv, ok = w.Hover()
	require.True(t, ok)
	assert.Equal(t, interact.KindEnvironment, hv.Kind)

	res = w.Interact()
	require.Equal(t, OutcomePlaced, res.Outcome)
	assert.Equal(t, geom.Cell{X: 19, Y: 0, Z: 0}, res.Cell)
	assert.Equal(t, "blk_1", res.InstanceID)

	_, holding := w.Held()
	assert.False(t, holding)
	placed := w.PlacedBlocks()
	require.Len(t, placed, 1)
	assert.Equal(t, "ai", placed[0].TypeID)
	assert.Equal(t, geom.Cell{X: 19, Y: 0, Z: 0}, placed[0].Cell)

	require.Len(t, logs.audits, 2)
	assert.Equal(t, "PICKED_RESOURCE", logs.audits[0].Action)
	assert.Equal(t, "PLACED", logs.audits[1].Action)
}

// placeSimOnFloor takes a sim block from the shelf and puts it at (0,0,-3).
func placeSimOnFloor(t *testing.T, w *World) {
	t.Helper()
	aimAtShelf(w, -2)
	require.Equal(t, OutcomePickedResource, w.Interact().Outcome)
	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0.2, 0, -3})
	res := w.Interact()
	require.Equal(t, OutcomePlaced, res.Outcome)
	require.Equal(t, geom.Cell{X: 0, Y: 0, Z: -3}, res.Cell)
}

func TestScenarioPickUpPlacedBlock(t *testing.T) {
	w := newTestWorld(t)
	placeSimOnFloor(t, w)
	require.Equal(t, 2, w.supply.Remaining("sim"))

	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0.5, -2.5})
	hv, ok := w.Hover()
	require.True(t, ok)
	require.Equal(t, interact.KindPlaced, hv.Kind)

	res := w.Interact()
	require.Equal(t, OutcomePickedPlaced, res.Outcome)
	assert.Empty(t, w.PlacedBlocks())
	held, _ := w.Held()
	assert.Equal(t, "sim", held.ID)
	assert.Equal(t, 2, w.supply.Remaining("sim"))
}

func TestPickUpSkipsTargetMissingFromIndex(t *testing.T) {
	w := newTestWorld(t)
	placeSimOnFloor(t, w)
	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0.5, -2.5})
	hv, ok := w.Hover()
	require.True(t, ok)

	// Drop the block from the index without refreshing the hover target.
	_, err := w.index.Remove(hv.InstanceID)
	require.NoError(t, err)

	res := w.Interact()
	assert.Equal(t, OutcomeNone, res.Outcome)
	_, holding := w.Held()
	assert.False(t, holding)
}

func TestScenarioPlaceWithEmptyHandIsNoop(t *testing.T) {
	w := newTestWorld(t)
	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0.2, 0, -3})
	before := w.Digest()

	res := w.Interact()
	assert.Equal(t, OutcomeNone, res.Outcome)
	assert.Equal(t, before, w.Digest())
	assert.Empty(t, w.PlacedBlocks())
}

func TestScenarioPlaceIntoOccupiedCell(t *testing.T) {
	w := newTestWorld(t)
	placeSimOnFloor(t, w)
	aimAtShelf(w, -4)
	require.Equal(t, OutcomePickedResource, w.Interact().Outcome)

	// A hover resolved against an older frame can name a cell that has since
	// been filled.
	w.hover = interact.Target{Kind: interact.KindEnvironment, PlacementCell: geom.Cell{X: 0, Y: 0, Z: -3}, HasPlacement: true}
	w.hovering = true
	before := w.Digest()

	res := w.Interact()
	assert.Equal(t, OutcomeCellOccupied, res.Outcome)
	held, ok := w.Held()
	require.True(t, ok)
	assert.Equal(t, "ai", held.ID)
	assert.Len(t, w.PlacedBlocks(), 1)
	assert.Equal(t, before, w.Digest())
}

func TestPlaceOutOfBoundsIsRejected(t *testing.T) {
	w := newTestWorld(t)
	aimAtShelf(w, -4)
	require.Equal(t, OutcomePickedResource, w.Interact().Outcome)

	w.hover = interact.Target{Kind: interact.KindEnvironment, PlacementCell: geom.Cell{X: 20, Y: 0, Z: 0}, HasPlacement: true}
	w.hovering = true
	assert.Equal(t, OutcomeOutOfBounds, w.Interact().Outcome)
	_, ok := w.Held()
	assert.True(t, ok)
	assert.Empty(t, w.PlacedBlocks())
}

func TestPlaceWithoutPlacementCell(t *testing.T) {
	w := newTestWorld(t)
	aimAtShelf(w, -4)
	require.Equal(t, OutcomePickedResource, w.Interact().Outcome)

	w.hover = interact.Target{Kind: interact.KindPlaced, InstanceID: "x", TypeID: "ai"}
	w.hovering = true
	assert.Equal(t, OutcomeNoPlacementCell, w.Interact().Outcome)
	_, ok := w.Held()
	assert.True(t, ok)
}

func TestPickUpEnvironmentIsNoop(t *testing.T) {
	w := newTestWorld(t)
	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{19.5, 0.5, 0})
	hv, ok := w.Hover()
	require.True(t, ok)
	require.Equal(t, interact.KindEnvironment, hv.Kind)
	assert.Equal(t, OutcomeNone, w.Interact().Outcome)
}

func TestRoundTripRestoresConfiguration(t *testing.T) {
	w := newTestWorld(t)
	placeSimOnFloor(t, w)
	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0.5, -2.5})
	before := w.Digest()
	firstID := w.PlacedBlocks()[0].InstanceID

	require.Equal(t, OutcomePickedPlaced, w.Interact().Outcome)
	res := w.Interact()
	require.Equal(t, OutcomePlaced, res.Outcome)
	assert.Equal(t, geom.Cell{X: 0, Y: 0, Z: -3}, res.Cell)

	assert.Equal(t, before, w.Digest())
	assert.NotEqual(t, firstID, w.PlacedBlocks()[0].InstanceID)
}

func TestResourceIsNeverRestocked(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < 3; i++ {
		aimAtShelf(w, -4)
		require.Equal(t, OutcomePickedResource, w.Interact().Outcome)
		aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{float64(i) * 2, 0, -6})
		require.Equal(t, OutcomePlaced, w.Interact().Outcome)
	}
	assert.Equal(t, 0, w.supply.Remaining("ai"))
	_, listed := w.Snapshot().Supply["ai"]
	assert.False(t, listed)

	aimAtShelf(w, -4)
	hv, ok := w.Hover()
	require.True(t, ok)
	assert.Equal(t, interact.KindEnvironment, hv.Kind)
	assert.Equal(t, OutcomeNone, w.Interact().Outcome)
}

func TestHeldBlockAndPreviewDoNotBlockAim(t *testing.T) {
	w := newTestWorld(t)
	aimAtShelf(w, -2)
	require.Equal(t, OutcomePickedResource, w.Interact().Outcome)

	aimAtShelf(w, -4)
	hv, ok := w.Hover()
	require.True(t, ok)
	assert.Equal(t, interact.KindResource, hv.Kind)

	// The ghost now sits in front of the aimed face; resolving again must
	// still see the shelf block, not the ghost.
	w.refreshHover()
	hv2, ok := w.Hover()
	require.True(t, ok)
	assert.Equal(t, hv.InstanceID, hv2.InstanceID)

	snap := w.Snapshot()
	require.NotNil(t, snap.Preview)
	assert.Equal(t, geom.Cell{X: -15, Y: 1, Z: -4}, *snap.Preview)
	require.NotNil(t, snap.Hover)
	assert.Equal(t, HintPlaceHere, snap.Hover.Hint)
	assert.Equal(t, "Artificial Intelligence", snap.Hover.Name)
}

func TestSnapshotHoverHint(t *testing.T) {
	w := newTestWorld(t)
	aimAtShelf(w, -4)
	snap := w.Snapshot()
	require.NotNil(t, snap.Hover)
	assert.Equal(t, "RESOURCE", snap.Hover.Kind)
	assert.Equal(t, HintPickUp, snap.Hover.Hint)
	assert.Nil(t, snap.Preview)

	aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{19.5, 0.5, 0})
	snap = w.Snapshot()
	require.NotNil(t, snap.Hover)
	assert.Equal(t, "ENVIRONMENT", snap.Hover.Kind)
	assert.Empty(t, snap.Hover.Hint)
	assert.Empty(t, snap.Hover.Name)
}

func TestTickAppliesInputAndLogs(t *testing.T) {
	logs := &memLogs{}
	w := newTestWorld(t, WithTickLogger(logs), WithAuditLogger(logs))
	aimAtShelf(w, -4)

	snap := w.Tick(1.0/30, Input{InteractPressed: true})
	require.NotNil(t, snap.Result)
	assert.Equal(t, OutcomePickedResource, snap.Result.Outcome)
	assert.Equal(t, "ai", snap.Held)
	assert.Equal(t, uint64(0), snap.Tick)
	assert.Equal(t, uint64(1), w.CurrentTick())

	snap = w.Tick(1.0/30, Input{MoveForward: true, LookDeltaYaw: 0.1})
	assert.Nil(t, snap.Result)
	assert.Greater(t, mgl64.Vec3(snap.Player.Velocity).Len(), 0.0)

	require.Len(t, logs.ticks, 2)
	assert.Equal(t, "PICKED_RESOURCE", logs.ticks[0].Outcome)
	assert.Empty(t, logs.ticks[1].Outcome)
	assert.Equal(t, snap.Digest, logs.ticks[1].Digest)
	assert.Len(t, logs.audits, 1)
}

func TestResetRestoresInitialWorld(t *testing.T) {
	w := newTestWorld(t)
	initial := w.Digest()
	placeSimOnFloor(t, w)
	aimAtShelf(w, -4)
	w.Interact()
	require.NotEqual(t, initial, w.Digest())

	w.Reset()
	assert.Equal(t, initial, w.Digest())
	assert.Len(t, w.ResourceBlocks(), 39)
	assert.Empty(t, w.PlacedBlocks())
	_, holding := w.Held()
	assert.False(t, holding)
}

func TestManifestFromWorld(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.Manifest()
	assert.True(t, errors.Is(err, manifest.ErrNothingPlaced))

	for _, z := range []float64{-4, -4, -2} {
		aimAtShelf(w, z)
		require.Equal(t, OutcomePickedResource, w.Interact().Outcome)
		aim(w, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{float64(len(w.placed)) * 2, 0, -6})
		require.Equal(t, OutcomePlaced, w.Interact().Outcome)
	}
	m, err := w.Manifest()
	require.NoError(t, err)
	assert.Equal(t, 3, m.Total)
	assert.Equal(t, []manifest.Entry{
		{TypeID: "ai", Name: "Artificial Intelligence", Count: 2},
		{TypeID: "sim", Name: "Simulation", Count: 1},
	}, m.Entries)
	assert.Equal(t, fixedNow, m.GeneratedAt)
}

type countingCloser struct {
	n   int
	err error
}

func (c *countingCloser) Close() error { c.n++; return c.err }

func TestReleaseIsIdempotent(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.Release())

	mic, stream := &countingCloser{}, &countingCloser{err: errors.New("broken pipe")}
	w.AttachResource("mic", mic)
	w.AttachResource("live", stream)
	err := w.Release()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live")
	require.NoError(t, w.Release())
	assert.Equal(t, 1, mic.n)
	assert.Equal(t, 1, stream.n)
}

// Random play must never put two blocks in one cell, hold more than one
// item, or create or destroy blocks.
func TestRandomPlayKeepsInvariants(t *testing.T) {
	w := newTestWorld(t)
	rng := rand.New(rand.NewSource(42))
	targets := []mgl64.Vec3{
		{-15.5, 1.5, -4}, {-15.5, 1.5, -2}, {-15.5, 1.5, 0},
		{0, 0, -3}, {1, 0, -3}, {0, 0.5, -2.5}, {19.5, 0.5, 0}, {3, 0, 3},
	}
	for i := 0; i < 2000; i++ {
		if rng.Intn(4) == 0 {
			eye := mgl64.Vec3{rng.Float64()*6 - 14, 2 + rng.Float64()*3, rng.Float64()*6 - 5}
			aim(w, eye, targets[rng.Intn(len(targets))])
		}
		snap := w.Tick(1.0/30, Input{
			MoveForward:     rng.Intn(3) == 0,
			MoveLeft:        rng.Intn(5) == 0,
			LookDeltaYaw:    rng.Float64()*0.2 - 0.1,
			LookDeltaPitch:  rng.Float64()*0.2 - 0.1,
			InteractPressed: rng.Intn(3) == 0,
		})

		seen := map[geom.Cell]bool{}
		for _, b := range snap.Resources {
			require.False(t, seen[b.Cell], "tick %d: duplicate cell %v", i, b.Cell)
			seen[b.Cell] = true
		}
		for _, b := range snap.Placed {
			require.False(t, seen[b.Cell], "tick %d: duplicate cell %v", i, b.Cell)
			seen[b.Cell] = true
		}
		held := 0
		if snap.Held != "" {
			held = 1
		}
		require.Equal(t, 39, len(snap.Resources)+len(snap.Placed)+held, "tick %d", i)

		p := snap.Player.Position
		require.True(t, p[0] >= -19 && p[0] <= 19 && p[2] >= -19 && p[2] <= 19 && p[1] >= 2 && p[1] <= 13)
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	run := func() string {
		w := newTestWorld(t)
		for i := 0; i < 60; i++ {
			w.StepOnce(Input{MoveForward: i%2 == 0, LookDeltaYaw: 0.01, InteractPressed: i%7 == 0})
		}
		return w.Digest()
	}
	assert.Equal(t, run(), run())
}

func TestInputMerge(t *testing.T) {
	a := Input{MoveForward: true, LookDeltaYaw: 0.1, InteractPressed: true}
	b := Input{MoveLeft: true, LookDeltaYaw: 0.2, LookDeltaPitch: -0.1}
	m := a.merge(b)
	assert.False(t, m.MoveForward)
	assert.True(t, m.MoveLeft)
	assert.InDelta(t, 0.3, m.LookDeltaYaw, 1e-12)
	assert.InDelta(t, -0.1, m.LookDeltaPitch, 1e-12)
	assert.True(t, m.InteractPressed)

	c := m.consumed()
	assert.True(t, c.MoveLeft)
	assert.Zero(t, c.LookDeltaYaw)
	assert.False(t, c.InteractPressed)
}

func TestOutcomeJSON(t *testing.T) {
	b, err := json.Marshal(Result{Outcome: OutcomeCellOccupied})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"CELL_OCCUPIED","cell":{"x":0,"y":0,"z":0}}`, string(b))

	var r Result
	require.NoError(t, json.Unmarshal(b, &r))
	assert.Equal(t, OutcomeCellOccupied, r.Outcome)
	assert.Error(t, json.Unmarshal([]byte(`{"outcome":"EXPLODED"}`), &r))
}
