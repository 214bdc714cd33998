package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend_SequenceMonotonicallyIncreases(t *testing.T) {
	w := New(4, 1)
	t1 := w.Append("u1", "a1")
	t2 := w.Append("u2", "a2")
	t3 := w.Append("u3", "a3")

	assert.Equal(t, 1, t1.Sequence)
	assert.Equal(t, 2, t2.Sequence)
	assert.Equal(t, 3, t3.Sequence)
}

func TestPickProcessingTarget_TrailsTailByDelay(t *testing.T) {
	w := New(4, 1)
	w.Append("u1", "a1")
	target := w.PickProcessingTarget()
	assert.Nil(t, target, "with only one turn and delay=1, nothing is committable yet")

	w.Append("u2", "a2")
	target = w.PickProcessingTarget()
	require.NotNil(t, target)
	assert.Equal(t, "u1", target.UserInput)
}

func TestWindowDelayScenario_FourTurnsDelayInvariantHolds(t *testing.T) {
	// W=4, D=1: the newest D turns must never be processed=true, per
	// the delay invariant in spec §8. The exact processed count follows
	// the literal PickProcessingTarget contract in spec §4.8 (target at
	// position len-1-D from the tail, evaluated after each append).
	w := New(4, 1)
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		w.Append(u, u+"-resp")
		if target := w.PickProcessingTarget(); target != nil {
			w.MarkProcessed(target.TurnID, true)
		}
	}
	info := w.Info()
	assert.Equal(t, 3, info.ProcessedTurns)

	newest := w.Recent(1)[0]
	assert.False(t, newest.Processed, "the newest turn must never be processed")
}

func TestUpdate_ClearsProcessedAndBumpsVersion(t *testing.T) {
	w := New(4, 1)
	t1 := w.Append("u1", "a1")
	w.MarkProcessed(t1.TurnID, true)

	edited := "edited u1"
	ok := w.Update(t1.TurnID, &edited, nil)
	require.True(t, ok)

	got := w.GetById(t1.TurnID)
	assert.Equal(t, "edited u1", got.UserInput)
	assert.False(t, got.Processed)
	assert.Equal(t, 2, got.Version)
}

func TestAppend_EvictsOldestPermanently(t *testing.T) {
	w := New(2, 0)
	t1 := w.Append("u1", "a1")
	w.Append("u2", "a2")
	w.Append("u3", "a3")

	assert.False(t, w.Contains(t1.TurnID))
	assert.Len(t, w.AllTurns(), 2)
}
