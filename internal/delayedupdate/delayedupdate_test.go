package delayedupdate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/extract/rule"
	"storyweave/internal/graph"
	"storyweave/internal/memory"
	"storyweave/internal/plan"
	"storyweave/internal/statetable"
	"storyweave/internal/store"
	"storyweave/internal/turnbuffer"
	"storyweave/internal/window"
)

func newTestFacade(t *testing.T) *memory.Facade {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return memory.New(graph.New(), turnbuffer.New(10), statetable.New(), s, nil)
}

// alwaysErrExtractor always fails, so both OnNewTurn's extractor call and
// the "no fallback available" path can be exercised directly.
type alwaysErrExtractor struct{}

func (alwaysErrExtractor) Analyze(context.Context, string, string, *graph.KnowledgeGraph, string) (*plan.UpdatePlan, error) {
	return nil, errors.New("extraction unavailable")
}

func TestOnNewTurn_NoTargetUntilWindowExceedsDelay(t *testing.T) {
	f := newTestFacade(t)
	win := window.New(4, 1)
	m := New(win, rule.New(), f)

	// first turn: window has 1 turn, delay 1, so n <= delay, no target yet
	result := m.OnNewTurn(context.Background(), "hello", "hi there")
	assert.True(t, result.TurnAccepted)
	assert.Empty(t, result.TargetTurnID)
	assert.False(t, result.TargetCommitted)
}

func TestOnNewTurn_CommitsTargetAndAdvancesBuffer(t *testing.T) {
	f := newTestFacade(t)
	win := window.New(4, 1)
	m := New(win, rule.New(), f)

	m.OnNewTurn(context.Background(), "Kael the Warrior arrives.", "Kael joins the party.")
	result := m.OnNewTurn(context.Background(), "Kael takes 10 damage.", "Kael grimaces in pain.")

	require.NotEmpty(t, result.TargetTurnID)
	assert.True(t, result.TargetCommitted)
	assert.Equal(t, 1, f.Buffer().Len(), "the committed target's pair is recorded into the turn buffer")

	info := win.Info()
	assert.Equal(t, 1, info.ProcessedTurns)
}

func TestOnNewTurn_ExtractorFailureLeavesTargetUnprocessed(t *testing.T) {
	f := newTestFacade(t)
	win := window.New(4, 1)
	m := New(win, alwaysErrExtractor{}, f)

	m.OnNewTurn(context.Background(), "first", "turn")
	result := m.OnNewTurn(context.Background(), "second", "turn")

	require.NotEmpty(t, result.TargetTurnID)
	assert.False(t, result.TargetCommitted)
	assert.Equal(t, 0, f.Buffer().Len(), "a failed extraction must not record the turn pair")

	target := win.GetById(result.TargetTurnID)
	require.NotNil(t, target)
	assert.False(t, target.Processed, "unprocessed target is retried on the next trigger")
}

func TestOnTurnEdited_OutOfWindowWhenEvicted(t *testing.T) {
	f := newTestFacade(t)
	win := window.New(2, 0)
	m := New(win, rule.New(), f)

	first := win.Append("a", "b")
	win.Append("c", "d")
	win.Append("e", "f") // third turn exceeds capacity 2 and evicts "first"

	edit := m.OnTurnEdited(first.TurnID, nil, nil)
	assert.True(t, edit.OutOfWindow)
}

func TestOnTurnEdited_UpdatesContentWhenInWindow(t *testing.T) {
	f := newTestFacade(t)
	win := window.New(4, 1)
	m := New(win, rule.New(), f)

	turn := win.Append("original", "reply")
	updated := "edited text"

	edit := m.OnTurnEdited(turn.TurnID, &updated, nil)
	assert.False(t, edit.OutOfWindow)
	assert.Equal(t, "edited text", win.GetById(turn.TurnID).UserInput)
}
