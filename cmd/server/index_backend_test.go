package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelyard.dev/internal/sim/world"
)

type recTicks struct{ n int }

func (r *recTicks) WriteTick(world.TickLogEntry) error { r.n++; return nil }

type recAudits struct{ n int }

func (r *recAudits) WriteAudit(world.AuditEntry) error { r.n++; return nil }

func TestMultiLoggersToleratesNil(t *testing.T) {
	a := &recTicks{}
	require.NoError(t, multiTickLogger{a: a}.WriteTick(world.TickLogEntry{Tick: 1}))
	assert.Equal(t, 1, a.n)

	b := &recAudits{}
	require.NoError(t, multiAuditLogger{b: b}.WriteAudit(world.AuditEntry{Tick: 1}))
	assert.Equal(t, 1, b.n)
}

func TestOpenRuntimeIndex(t *testing.T) {
	dir := t.TempDir()

	idx, err := openRuntimeIndex(dir, true)
	require.NoError(t, err)
	assert.Nil(t, idx)

	t.Setenv("VY_INDEX_BACKEND", "off")
	idx, err = openRuntimeIndex(dir, false)
	require.NoError(t, err)
	assert.Nil(t, idx)

	t.Setenv("VY_INDEX_BACKEND", "postgres")
	_, err = openRuntimeIndex(dir, false)
	assert.Error(t, err)

	t.Setenv("VY_INDEX_BACKEND", "")
	idx, err = openRuntimeIndex(dir, false)
	require.NoError(t, err)
	require.NotNil(t, idx)
	require.NoError(t, idx.Close())
	_, err = os.Stat(filepath.Join(dir, "index", "session.sqlite"))
	assert.NoError(t, err)
}

func TestEnvBoolAndLoopback(t *testing.T) {
	t.Setenv("VY_TEST_FLAG", "yes")
	assert.True(t, envBool("VY_TEST_FLAG", false))
	t.Setenv("VY_TEST_FLAG", "0")
	assert.False(t, envBool("VY_TEST_FLAG", true))
	t.Setenv("VY_TEST_FLAG", "maybe")
	assert.True(t, envBool("VY_TEST_FLAG", true))

	assert.True(t, isLoopbackRemote("127.0.0.1:5555"))
	assert.True(t, isLoopbackRemote("[::1]:80"))
	assert.False(t, isLoopbackRemote("10.0.0.2:80"))
}
