// registry_test.go — session selection and stale sweeping.
package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistrySession(t *testing.T, registry *Registry) *Session {
	t.Helper()
	serverConn, _ := newConnPair(t)
	sess := NewSession(serverConn, testSessionConfig(), testLogger(), &resolverRecorder{}, &sinkRecorder{}, func(s *Session) {
		registry.Remove(s.ID)
	})
	registry.Add(sess)
	return sess
}

func TestCurrentPrefersMostRecentlyActive(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	older := newRegistrySession(t, registry)
	newer := newRegistrySession(t, registry)

	now := time.Now()
	older.lastActivity.Store(now.Add(-10 * time.Second).UnixNano())
	newer.lastActivity.Store(now.UnixNano())

	current := registry.Current()
	require.NotNil(t, current)
	assert.Equal(t, newer.ID, current.ID)

	// The fresher session going away falls back to the older one.
	newer.ForceEvict("test")
	current = registry.Current()
	require.NotNil(t, current)
	assert.Equal(t, older.ID, current.ID)
}

func TestCurrentEmptyRegistry(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	assert.Nil(t, registry.Current())
	assert.Equal(t, 0, registry.ActiveCount())
}

func TestSweepStaleEvictsOnlyIdleSessions(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	stale := newRegistrySession(t, registry)
	fresh := newRegistrySession(t, registry)

	stale.lastActivity.Store(time.Now().Add(-time.Minute).UnixNano())

	evicted := registry.SweepStale(30 * time.Second)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, StateEvicting, stale.State())
	assert.Equal(t, StateActive, fresh.State())
	assert.Equal(t, 1, registry.ActiveCount())
}

func TestSnapshotReportsAllSessions(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(testLogger())
	a := newRegistrySession(t, registry)
	b := newRegistrySession(t, registry)

	infos := registry.Snapshot()
	require.Len(t, infos, 2)
	ids := map[string]bool{infos[0].ID: true, infos[1].ID: true}
	assert.True(t, ids[a.ID])
	assert.True(t, ids[b.ID])
}
