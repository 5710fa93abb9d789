package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "voxelyard.dev/internal/persistence/log"
	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/ids"
	"voxelyard.dev/internal/sim/tuning"
	"voxelyard.dev/internal/sim/world"
)

// recordSession plays random input for n ticks with one reset in the middle
// and returns the session dir.
func recordSession(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	tickLog := persistlog.NewTickLogger(dir)
	auditLog := persistlog.NewAuditLogger(dir)

	w, err := world.New(world.ConfigFromTuning("rec", tuning.Defaults()), catalogs.Default(),
		world.WithIDs(ids.NewSequential("rec")),
		world.WithTickLogger(tickLog),
		world.WithAuditLogger(auditLog),
	)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		if i == n/2 {
			w.Reset()
		}
		w.Tick(1/float64(w.TickRateHz()), world.Input{
			MoveForward:     rng.Intn(3) == 0,
			MoveLeft:        rng.Intn(5) == 0,
			Sprint:          rng.Intn(4) == 0,
			AnalogY:         rng.Float64()*2 - 1,
			LookDeltaYaw:    rng.Float64()*40 - 20,
			LookDeltaPitch:  rng.Float64()*40 - 20,
			InteractPressed: rng.Intn(4) == 0,
		})
	}
	require.NoError(t, tickLog.Close())
	require.NoError(t, auditLog.Close())
	return dir
}

func TestReplayReproducesDigests(t *testing.T) {
	dir := recordSession(t, 400)

	res, err := replay(dir, catalogs.Default(), tuning.Defaults(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), res.Checked)
	assert.Equal(t, 1, res.Resets)
	assert.Equal(t, uint64(399), res.LastTick)
}

func TestReplayWindow(t *testing.T) {
	dir := recordSession(t, 100)

	res, err := replay(dir, catalogs.Default(), tuning.Defaults(), 20, 59)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), res.Checked)
	assert.Equal(t, uint64(59), res.LastTick)
}

func TestReplayDetectsDivergence(t *testing.T) {
	dir := recordSession(t, 50)

	tune := tuning.Defaults()
	tune.Locomotion.BaseSpeed *= 2
	_, err := replay(dir, catalogs.Default(), tune, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestReplayNeedsEvents(t *testing.T) {
	_, err := replay(t.TempDir(), catalogs.Default(), tuning.Defaults(), 0, 0)
	assert.Error(t, err)
}
