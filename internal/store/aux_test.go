package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/statetable"
	"storyweave/internal/turnbuffer"
)

func TestSyncAuxThenLoadAux_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	buf := turnbuffer.New(10)
	buf.Append("hello", "hi there")
	st := statetable.New()
	st.Put("world_time", "Day 2")

	require.NoError(t, s.SyncAux(buf, st))

	pairs, entries, warnings, err := s.LoadAux()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, pairs, 1)
	assert.Equal(t, "hello", pairs[0].User)
	require.Contains(t, entries, "world_time")
	assert.Equal(t, "Day 2", entries["world_time"].Value)
}

func TestLoadAux_EmptyWhenNoFilesExist(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	pairs, entries, warnings, err := s.LoadAux()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Nil(t, pairs)
	assert.Nil(t, entries)
}
