package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelyard.dev/internal/persistence/indexdb"
)

func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveTick(2 * time.Millisecond)
	c.ObserveTick(3 * time.Millisecond)
	c.CountOutcome("PLACED")
	c.CountOutcome("PLACED")
	c.CountOutcome("CELL_OCCUPIED")
	c.SetPlaced(4)
	c.ClientConnected()
	c.ClientConnected()
	c.ClientDisconnected()
	c.CountChat("demo")

	got := gathered(t, reg)
	assert.Equal(t, 2.0, got["voxelyard_world_tick_duration_seconds"])
	assert.Equal(t, 2.0, got["voxelyard_world_interactions_total{outcome=PLACED}"])
	assert.Equal(t, 1.0, got["voxelyard_world_interactions_total{outcome=CELL_OCCUPIED}"])
	assert.Equal(t, 4.0, got["voxelyard_world_placed_blocks"])
	assert.Equal(t, 1.0, got["voxelyard_ws_connected_clients"])
	assert.Equal(t, 1.0, got["voxelyard_chat_requests_total{result=demo}"])
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestUnregistered(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	c.SetPlaced(1)
}

func TestRegisterIndexQueue(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := indexdb.QueueStats{QueueDepth: 3, QueueCapacity: 16, DropTickTotal: 5, DropAuditTotal: 1}
	require.NoError(t, RegisterIndexQueue(reg, func() indexdb.QueueStats { return st }))

	got := gathered(t, reg)
	assert.Equal(t, 3.0, got["voxelyard_index_queue_depth"])
	assert.Equal(t, 16.0, got["voxelyard_index_queue_capacity"])
	assert.Equal(t, 5.0, got["voxelyard_index_dropped_total{kind=tick}"])
	assert.Equal(t, 1.0, got["voxelyard_index_dropped_total{kind=audit}"])
	assert.Equal(t, 0.0, got["voxelyard_index_dropped_total{kind=submission}"])

	st.DropSubmissionTotal = 2
	assert.Equal(t, 2.0, gathered(t, reg)["voxelyard_index_dropped_total{kind=submission}"])
}
