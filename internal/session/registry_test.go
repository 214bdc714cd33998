package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/pkg/apperrors"
	"storyweave/pkg/config"
)

func newTestRegistry(t *testing.T, cfg config.Session) *Registry {
	t.Helper()
	dir := t.TempDir()
	return NewRegistry(dir, cfg, config.LLM{}, nil, nil, nil)
}

func TestGetOrCreate_CreatesOnceAndReusesAfter(t *testing.T) {
	r := newTestRegistry(t, testSessionConfig())

	s1, _, err := r.GetOrCreate("alice")
	require.NoError(t, err)
	s2, _, err := r.GetOrCreate("alice")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Count())
}

func TestGet_NotFoundForUnknownSession(t *testing.T) {
	r := newTestRegistry(t, testSessionConfig())
	_, err := r.Get("ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDestroy_RemovesSessionAndClosesStore(t *testing.T) {
	r := newTestRegistry(t, testSessionConfig())
	r.GetOrCreate("bob")
	require.NoError(t, r.Destroy("bob"))
	_, err := r.Get("bob")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEvictIfNeeded_EvictsLeastRecentlyUsedUnderLRUPolicy(t *testing.T) {
	cfg := testSessionConfig()
	cfg.EvictionPolicy = config.EvictionLRU
	cfg.MaxSessions = 2
	r := newTestRegistry(t, cfg)

	r.GetOrCreate("a")
	r.GetOrCreate("b")
	r.Get("a") // touch a, making b the least recently used
	r.GetOrCreate("c")

	assert.Equal(t, 2, r.Count())
	ids := r.List()
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "c")
	assert.NotContains(t, ids, "b")
}

func TestList_ReturnsAllLiveSessionIDs(t *testing.T) {
	r := newTestRegistry(t, testSessionConfig())
	r.GetOrCreate("x")
	r.GetOrCreate("y")
	assert.ElementsMatch(t, []string{"x", "y"}, r.List())
}
