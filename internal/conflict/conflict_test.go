package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/window"
)

func TestSync_SyncReconciliationScenario(t *testing.T) {
	// Scenario (d) from spec §8.
	w := window.New(4, 0)
	t1 := w.Append("u1", "a1")
	t2 := w.Append("u2", "a2")
	w.Append("u3", "a3")
	w.Append("u4", "a4")
	w.MarkProcessed(t2.TurnID, true)

	r := New(w)
	// Prime snapshots as if these turns were admitted through Sync before.
	r.snapshots[t1.TurnID] = snapshot{turnID: t1.TurnID, contentHash: contentHash("u1", "a1")}
	r.snapshots[t2.TurnID] = snapshot{turnID: t2.TurnID, contentHash: contentHash("u2", "a2")}

	externalT2 := t2.TurnID
	result := r.Sync([]ExternalTurn{
		{ID: t1.TurnID, Sequence: t1.Sequence, User: "u1", Assistant: "a1"},
		{ID: externalT2, Sequence: t2.Sequence, User: "u2", Assistant: "a2-changed"},
		{ID: "", User: "u5", Assistant: "a5"},
	})

	assert.Equal(t, 1, result.ConflictsDetected)
	assert.Equal(t, 1, result.ConflictsResolved)
	assert.Equal(t, 1, result.NewTurns)

	updated := w.GetById(t2.TurnID)
	require.NotNil(t, updated)
	assert.Equal(t, "a2-changed", updated.AssistantResponse)
	assert.False(t, updated.Processed, "an updated turn must become re-eligible for processing")
}

func TestSync_OutOfWindowLeavesWindowUnchanged(t *testing.T) {
	// Scenario (e) from spec §8.
	w := window.New(4, 0)
	w.Append("u10", "a10")
	w.Append("u11", "a11")
	w.Append("u12", "a12")
	w.Append("u13", "a13")

	r := New(w)
	before := w.Info()

	result := r.Sync([]ExternalTurn{
		{ID: "ghost-turn", Sequence: 5, User: "u5-edit", Assistant: "a5-edit"},
	})

	assert.Equal(t, 1, result.OutOfWindow)
	assert.Equal(t, before, w.Info())
}

func TestSync_ConflictsResolvedNeverExceedsDetected(t *testing.T) {
	w := window.New(4, 0)
	t1 := w.Append("u1", "a1")
	r := New(w)
	r.snapshots[t1.TurnID] = snapshot{turnID: t1.TurnID, contentHash: contentHash("u1", "a1")}

	result := r.Sync([]ExternalTurn{
		{ID: t1.TurnID, Sequence: t1.Sequence, User: "u1", Assistant: "a1-edited"},
	})
	assert.LessOrEqual(t, result.ConflictsResolved, result.ConflictsDetected)
}
