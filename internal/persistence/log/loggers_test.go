package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelyard.dev/internal/sim/world"
)

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	want := []world.TickLogEntry{
		{Tick: 0, Delta: 1.0 / 30, Input: world.Input{MoveForward: true}, Digest: "a"},
		{Tick: 1, Delta: 1.0 / 30, Input: world.Input{InteractPressed: true, LookDeltaYaw: 0.25}, Outcome: "PICKED_RESOURCE", Digest: "b"},
	}
	for _, e := range want {
		require.NoError(t, l.WriteTick(e))
	}
	require.NoError(t, l.Close())

	files, err := StreamFiles(dir, EventsStream)
	require.NoError(t, err)
	require.Len(t, files, 1)

	var got []world.TickLogEntry
	require.NoError(t, ReadTicks(files[0], func(e world.TickLogEntry) error {
		got = append(got, e)
		return nil
	}))
	assert.Equal(t, want, got)
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewSegmentWriter(dir, "audit")
	now := time.Date(2024, 6, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Write(world.AuditEntry{Tick: 1, Action: "PLACED"}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Write(world.AuditEntry{Tick: 2, Action: "PICKED_PLACED"}))
	require.NoError(t, w.Close())

	files, err := ListFiles(dir, "audit")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "audit-2024-06-01-10.jsonl.zst"),
		filepath.Join(dir, "audit-2024-06-01-11.jsonl.zst"),
	}, files)

	var actions []string
	for _, f := range files {
		require.NoError(t, ReadAudits(f, func(e world.AuditEntry) error {
			actions = append(actions, e.Action)
			return nil
		}))
	}
	assert.Equal(t, []string{"PLACED", "PICKED_PLACED"}, actions)
}

func TestListFilesSkipsOtherPrefixes(t *testing.T) {
	dir := t.TempDir()
	a := NewSegmentWriter(dir, "events")
	b := NewSegmentWriter(dir, "audit")
	require.NoError(t, a.Write(map[string]int{"n": 1}))
	require.NoError(t, b.Write(map[string]int{"n": 2}))
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())

	files, err := ListFiles(dir, "events")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
