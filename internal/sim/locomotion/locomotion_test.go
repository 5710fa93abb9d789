package locomotion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelyard.dev/internal/sim/tuning"
)

func defaultParams() Params { return ParamsFromTuning(tuning.Defaults()) }

func assertVec(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d", i)
	}
}

func TestViewAndBasis(t *testing.T) {
	p := Player{}
	assertVec(t, mgl64.Vec3{0, 0, -1}, p.ViewDirection())
	assertVec(t, mgl64.Vec3{1, 0, 0}, p.Right())

	p.Yaw = math.Pi / 2
	assertVec(t, mgl64.Vec3{-1, 0, 0}, p.Forward())
	assertVec(t, mgl64.Vec3{0, 0, -1}, p.Right())

	p.Pitch = math.Pi / 4
	assert.InDelta(t, 0, p.Forward().Y(), 1e-12)
	assert.Greater(t, p.ViewDirection().Y(), 0.0)
}

func TestStepForwardAccumulatesAndDamps(t *testing.T) {
	params := defaultParams()
	p := NewPlayer(mgl64.Vec3{0, 2, 5})
	p.Step(0.1, Intent{Forward: true}, params)

	// v = (4 * 0.1 * 5) * 0.9 along -Z
	assertVec(t, mgl64.Vec3{0, 0, -1.8}, p.Velocity)
	assertVec(t, mgl64.Vec3{0, 2, 5 - 0.18}, p.Position)

	p.Step(0.1, Intent{}, params)
	assertVec(t, mgl64.Vec3{0, 0, -1.62}, p.Velocity)
}

func TestSprintDoublesImpulse(t *testing.T) {
	params := defaultParams()
	walk, run := Player{Position: mgl64.Vec3{0, 2, 0}}, Player{Position: mgl64.Vec3{0, 2, 0}}
	walk.Step(0.05, Intent{Forward: true}, params)
	run.Step(0.05, Intent{Forward: true, Sprint: true}, params)
	assert.InDelta(t, 2*walk.Velocity.Len(), run.Velocity.Len(), 1e-9)
}

func TestDiagonalIsNormalized(t *testing.T) {
	d := Direction(Player{}, Intent{Forward: true, Right: true}, 0.2)
	assert.InDelta(t, 1, d.Len(), 1e-12)
	assertVec(t, mgl64.Vec3{math.Sqrt2 / 2, 0, -math.Sqrt2 / 2}, d)
}

func TestOpposingKeysCancel(t *testing.T) {
	assert.Equal(t, mgl64.Vec3{}, Direction(Player{}, Intent{Forward: true, Back: true}, 0.2))
}

func TestAnalogThreshold(t *testing.T) {
	p := Player{}
	assert.Equal(t, mgl64.Vec3{}, Direction(p, Intent{AnalogX: 0.19, AnalogY: -0.2}, 0.2))
	assertVec(t, mgl64.Vec3{0, 0, -1}, Direction(p, Intent{AnalogY: 0.21}, 0.2))
	assertVec(t, mgl64.Vec3{-1, 0, 0}, Direction(p, Intent{AnalogX: -5}, 0.2))
}

func TestLookClampsPitch(t *testing.T) {
	p := Player{}
	p.Look(0, -10, 1)
	assert.Equal(t, math.Pi/2, p.Pitch)
	p.Look(0, 20, 1)
	assert.Equal(t, -math.Pi/2, p.Pitch)

	p.Look(0.5, 0, 1)
	assert.InDelta(t, -0.5, p.Yaw, 1e-12)
}

func TestPositionStaysInBounds(t *testing.T) {
	params := defaultParams()
	rng := rand.New(rand.NewSource(7))
	p := NewPlayer(mgl64.Vec3{0, 2, 5})
	for i := 0; i < 5000; i++ {
		p.Look(rng.Float64()*0.4-0.2, rng.Float64()*0.4-0.2, 1)
		p.Step(rng.Float64()*0.1, Intent{
			Forward: rng.Intn(2) == 0,
			Left:    rng.Intn(3) == 0,
			Sprint:  rng.Intn(2) == 0,
			AnalogX: rng.Float64()*2 - 1,
			AnalogY: rng.Float64()*2 - 1,
		}, params)
		require.True(t, p.Position.X() >= -19 && p.Position.X() <= 19, "x=%v", p.Position.X())
		require.True(t, p.Position.Z() >= -19 && p.Position.Z() <= 19, "z=%v", p.Position.Z())
		require.True(t, p.Position.Y() >= 2 && p.Position.Y() <= 13, "y=%v", p.Position.Y())
	}
}

func TestClampIsPerAxis(t *testing.T) {
	b := defaultParams().Bounds
	assertVec(t, mgl64.Vec3{19, 2, -3}, b.Clamp(mgl64.Vec3{40, -1, -3}))
	assertVec(t, mgl64.Vec3{-19, 13, 19}, b.Clamp(mgl64.Vec3{-40, 99, 25}))
}

func TestStepTreatsNonFiniteDeltaAsZero(t *testing.T) {
	params := defaultParams()
	for _, delta := range []float64{math.Inf(1), math.Inf(-1), math.NaN(), -0.5} {
		p := Player{Position: mgl64.Vec3{1, 2, 3}, Velocity: mgl64.Vec3{0, 0, -1}}
		p.Step(delta, Intent{Forward: true, Right: true}, params)
		assertVec(t, mgl64.Vec3{1, 2, 3}, p.Position)
		assertVec(t, mgl64.Vec3{0, 0, -0.9}, p.Velocity)
	}
}
