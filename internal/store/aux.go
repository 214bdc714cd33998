package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"storyweave/internal/statetable"
	"storyweave/internal/turnbuffer"
	"storyweave/pkg/apperrors"
)

const (
	bufferFileName = "conversation_buffer.json"
	stateFileName  = "state.json"
)

// SyncAux writes the TurnBuffer and StateTable snapshots called out by
// spec §6's persisted-state layout (conversation_buffer.json,
// state.json), atomically, alongside the graph files written by Sync.
func (s *Store) SyncAux(buf *turnbuffer.TurnBuffer, st *statetable.StateTable) error {
	pairs := buf.Snapshot()
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return apperrors.NewCorrupt("marshaling conversation buffer", err)
	}
	if err := atomicWrite(filepath.Join(s.dir, bufferFileName), data); err != nil {
		return err
	}

	entries := st.Snapshot()
	data, err = json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return apperrors.NewCorrupt("marshaling state table", err)
	}
	return atomicWrite(filepath.Join(s.dir, stateFileName), data)
}

// LoadAux reads back the TurnBuffer and StateTable snapshots at session
// boot. Missing files are treated as empty; a corrupt file yields a
// warning and an empty result, per spec §7's Corrupt kind.
func (s *Store) LoadAux() (pairs []turnbuffer.Pair, entries map[string]statetable.Entry, warnings []string, err error) {
	pairs, w := s.loadBuffer()
	warnings = append(warnings, w...)
	entries, w = s.loadState()
	warnings = append(warnings, w...)
	return pairs, entries, warnings, nil
}

func (s *Store) loadBuffer() ([]turnbuffer.Pair, []string) {
	raw, readErr := os.ReadFile(filepath.Join(s.dir, bufferFileName))
	if os.IsNotExist(readErr) {
		return nil, nil
	}
	if readErr != nil {
		return nil, []string{"reading conversation buffer: " + readErr.Error()}
	}
	var pairs []turnbuffer.Pair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, []string{"conversation buffer corrupt, starting empty: " + err.Error()}
	}
	return pairs, nil
}

func (s *Store) loadState() (map[string]statetable.Entry, []string) {
	raw, readErr := os.ReadFile(filepath.Join(s.dir, stateFileName))
	if os.IsNotExist(readErr) {
		return nil, nil
	}
	if readErr != nil {
		return nil, []string{"reading state table: " + readErr.Error()}
	}
	var entries map[string]statetable.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, []string{"state table corrupt, starting empty: " + err.Error()}
	}
	return entries, nil
}
